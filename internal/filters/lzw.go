package filters

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data. PDF's default /EarlyChange 1 is the same
// off-by-one code-width switch TIFF uses, so the x/image TIFF decoder handles
// it; /EarlyChange 0 is plain MSB-first LZW.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var rc io.ReadCloser
	if getIntParam(params, "EarlyChange", 1) == 0 {
		rc = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		rc = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil && !(buf.Len() > 0 && errors.Is(err, io.ErrUnexpectedEOF)) {
		return nil, fmt.Errorf("lzw decompression failed: %w", err)
	}

	out := buf.Bytes()
	if predictor := getIntParam(params, "Predictor", 1); predictor > 1 {
		var err error
		if out, err = applyPredictor(out, predictor, params); err != nil {
			return nil, fmt.Errorf("predictor failed: %w", err)
		}
	}
	return out, nil
}
