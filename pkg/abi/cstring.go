package abi

import (
	"bytes"
	"strings"
)

// EncodeCString returns s as UTF-8 followed by a single NUL byte.
// A string with an embedded NUL is rejected: the provider would silently
// truncate it at the first zero.
func EncodeCString(s string) ([]byte, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return nil, &EncodingError{Offset: i}
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return buf, nil
}

// DecodeCString returns the bytes of b up to the first NUL.
// Without a NUL the whole slice is returned.
func DecodeCString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
