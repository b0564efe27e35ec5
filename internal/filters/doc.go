// Package filters implements the PDF stream decompression filters needed to
// read scanned land-title documents.
//
// # Supported Filters
//
//   - FlateDecode, with TIFF predictor 2 and PNG predictors 10-15
//   - LZWDecode, honouring /EarlyChange
//   - ASCIIHexDecode and ASCII85Decode
//   - RunLengthDecode
//   - CCITTFaxDecode (Group 3 1-D and Group 4)
//
// Image codecs that produce a complete image (DCTDecode, JPXDecode) are not
// filters in this sense; the reader package hands them to an image decoder.
//
// # Decode Parameters
//
// Filters accept a Params map built from the stream's /DecodeParms:
//
//	params := filters.Params{
//	    "Predictor": 15,
//	    "Columns":   640,
//	    "Colors":    1,
//	}
//	decoded, err := filters.FlateDecode(data, params)
package filters
