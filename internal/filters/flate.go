package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes any predictor named in params.
//
// Scanners frequently write streams with a bad Adler-32 checksum or a missing
// final block. Whatever was inflated before the error is kept as long as it is
// not empty.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}
	out, err = applyPredictor(out, predictor, params)
	if err != nil {
		return nil, fmt.Errorf("predictor failed: %w", err)
	}
	return out, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, zr)
	if err != nil {
		if buf.Len() > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) {
			return buf.Bytes(), nil
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// applyPredictor reverses predictor 2 (TIFF) or 10-15 (PNG). The same
// predictors are used by LZWDecode.
func applyPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	columns := getIntParam(params, "Columns", 1)
	if colors < 1 || columns < 1 {
		return nil, fmt.Errorf("invalid predictor geometry: colors=%d columns=%d", colors, columns)
	}

	rowBytes := (columns*colors*bpc + 7) / 8
	bpp := (colors*bpc + 7) / 8

	switch {
	case predictor == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("TIFF predictor with %d bits per component is not supported", bpc)
		}
		return tiffPredictor(data, rowBytes, colors), nil
	case predictor >= 10 && predictor <= 15:
		return pngPredictor(data, rowBytes, bpp)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

func tiffPredictor(data []byte, rowBytes, colors int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start+rowBytes <= len(out); start += rowBytes {
		row := out[start : start+rowBytes]
		for i := colors; i < len(row); i++ {
			row[i] += row[i-colors]
		}
	}
	return out
}

// pngPredictor decodes rows that each start with a PNG filter-type byte.
// A short last row is decoded as far as it goes.
func pngPredictor(data []byte, rowBytes, bpp int) ([]byte, error) {
	stride := rowBytes + 1
	rows := (len(data) + stride - 1) / stride
	out := make([]byte, 0, rows*rowBytes)
	prev := make([]byte, rowBytes)
	cur := make([]byte, rowBytes)

	for r := 0; r < rows; r++ {
		start := r * stride
		end := start + stride
		if end > len(data) {
			end = len(data)
		}
		if end-start < 2 {
			break
		}
		ft := data[start]
		src := data[start+1 : end]
		for i := range cur {
			cur[i] = 0
		}
		copy(cur, src)

		for i := 0; i < len(src); i++ {
			var left, up, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up = prev[i]
			switch ft {
			case 0:
			case 1:
				cur[i] += left
			case 2:
				cur[i] += up
			case 3:
				cur[i] += byte((int(left) + int(up)) / 2)
			case 4:
				cur[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter type %d in row %d", ft, r)
			}
		}
		out = append(out, cur[:len(src)]...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
