package filters

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// MaxFaxBytes bounds the decoded output of CCITTFaxDecode, 1<<26 pixels at
// one bit each.
const MaxFaxBytes = 1 << 23

// maxFaxColumns bounds /Columns; the decoder allocates per-row buffers.
const maxFaxColumns = 1 << 16

// CCITTFaxDecode decodes Group 3 (K = 0) or Group 4 (K < 0) fax data into
// 1-bit rows, MSB first, each row padded to a byte.
//
// With /BlackIs1 false (the default) the output uses 0 for black, matching a
// 1-bit DeviceGray image. Mixed 2-D Group 3 (K > 0) is not supported by the
// underlying decoder.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	k := getIntParam(params, "K", 0)
	if columns <= 0 || columns > maxFaxColumns {
		return nil, fmt.Errorf("CCITT /Columns %d out of range", columns)
	}
	rowBytes := (columns + 7) / 8
	if rows > MaxFaxBytes/rowBytes {
		return nil, fmt.Errorf("CCITT %dx%d exceeds %d bytes", columns, rows, MaxFaxBytes)
	}

	var sf ccitt.SubFormat
	switch {
	case k < 0:
		sf = ccitt.Group4
	case k == 0:
		sf = ccitt.Group3
	default:
		return nil, fmt.Errorf("CCITT mixed 2-D encoding (K=%d) is not supported", k)
	}

	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}
	opts := &ccitt.Options{
		Align:  getBoolParam(params, "EncodedByteAlign", false),
		Invert: getBoolParam(params, "BlackIs1", false),
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts)
	out, err := io.ReadAll(io.LimitReader(r, MaxFaxBytes+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxFaxBytes {
		return nil, fmt.Errorf("CCITT output exceeds %d bytes", MaxFaxBytes)
	}
	return out, nil
}
