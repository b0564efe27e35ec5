package filters

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"io"
)

// ASCIIHexDecode decodes pairs of hex digits. Whitespace is ignored, '>' ends
// the data, and an odd final digit is treated as if followed by 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false

	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, ok := hexNibble(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit: %q", c)
		}
		if !half {
			hi = v
			half = true
			continue
		}
		out = append(out, hi<<4|v)
		half = false
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes Ascii85 data, with or without the "<~" and "~>"
// delimiters.
func ASCII85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}

	out, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
