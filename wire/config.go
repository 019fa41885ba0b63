package wire

import "os"

// Config controls optional strengthenings and compatibility toggles on top
// of the baseline wire-format behavior. Defaults reproduce the documented
// reference behavior; every field here corresponds to a "permitted
// strengthening" or an open question around signed/unsigned asymmetry.
type Config struct {
	// StrictVarintLength rejects varints longer than 10 bytes (more than
	// 64 significant bits) during decode. Off by default: an over-long
	// varint is consumed in full with the excess bits dropped.
	StrictVarintLength bool

	// UnsignedFixed records whether schema-less tooling built on top of
	// this package reads Fixed32/Fixed64 payloads as unsigned rather than
	// the signed default. A schema-typed
	// decode never consults it: a record's own Go field type (uint32 vs.
	// int32) already disambiguates signedness per field, which is why
	// codec.decodeScalar resolves from the FieldDescriptor directly instead
	// of this flag.
	UnsignedFixed bool

	// RangeCheckVarintWidth range-checks Int32/UInt32/SInt32 values against
	// their declared bit width on encode, rejecting values that only fit
	// in 64 bits. By default such values are emitted as-is; this opts into
	// stricter validation.
	RangeCheckVarintWidth bool

	// PreserveUnknownBytes retains the raw encoded bytes of each unknown
	// field run alongside its decoded RawValue, so a decode-then-encode
	// round trip can reproduce unknown fields byte-for-byte.
	PreserveUnknownBytes bool
}

var config = Config{}

// SetConfig replaces the package-level configuration.
func SetConfig(c Config) { config = c }

// GetConfig returns the current package-level configuration.
func GetConfig() Config { return config }

func init() {
	if envBool("PROTOLITE_STRICT_VARINT_LENGTH") {
		config.StrictVarintLength = true
	}
	if envBool("PROTOLITE_UNSIGNED_FIXED") {
		config.UnsignedFixed = true
	}
	if envBool("PROTOLITE_RANGE_CHECK_VARINT_WIDTH") {
		config.RangeCheckVarintWidth = true
	}
	if envBool("PROTOLITE_PRESERVE_UNKNOWN_BYTES") {
		config.PreserveUnknownBytes = true
	}
}

func envBool(name string) bool {
	v := os.Getenv(name)
	return v == "1" || v == "true"
}
