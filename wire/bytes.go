package wire

// AppendBytes appends data as a length-delimited field: a varint length
// prefix followed by the raw bytes.
func AppendBytes(buf []byte, data []byte) []byte {
	buf = AppendVarint(buf, uint64(len(data)))
	return append(buf, data...)
}

// AppendString appends s as a length-delimited field.
func AppendString(buf []byte, s string) []byte {
	buf = AppendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// ConsumeBytes reads a length-delimited byte field from the front of buf.
// The returned slice is a copy; it does not alias buf.
func ConsumeBytes(buf []byte) (data []byte, n int, err error) {
	length, ln, err := ConsumeVarint(buf)
	if err != nil {
		if err == ErrEOF {
			err = ErrTruncated
		}
		return nil, 0, err
	}
	rest := buf[ln:]
	if uint64(len(rest)) < length {
		return nil, 0, ErrTruncated
	}
	out := make([]byte, length)
	copy(out, rest[:length])
	return out, ln + int(length), nil
}

// ConsumeRawBytes is ConsumeBytes without copying: the returned slice
// aliases buf and is only valid as long as buf is not reused.
func ConsumeRawBytes(buf []byte) (data []byte, n int, err error) {
	length, ln, err := ConsumeVarint(buf)
	if err != nil {
		if err == ErrEOF {
			err = ErrTruncated
		}
		return nil, 0, err
	}
	rest := buf[ln:]
	if uint64(len(rest)) < length {
		return nil, 0, ErrTruncated
	}
	return rest[:length], ln + int(length), nil
}

// ConsumeString reads a length-delimited string field from the front of buf.
func ConsumeString(buf []byte) (s string, n int, err error) {
	data, n, err := ConsumeRawBytes(buf)
	if err != nil {
		return "", 0, err
	}
	return string(data), n, nil
}

// BytesSize returns the number of bytes AppendBytes would emit for data.
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}

// StringSize returns the number of bytes AppendString would emit for s.
func StringSize(s string) int {
	return VarintSize(uint64(len(s))) + len(s)
}
