package core

import (
	"fmt"

	"github.com/tsawler/deedscan/internal/filters"
)

// Filter is one stage of a stream's filter chain.
type Filter struct {
	Name   string
	Params Dict
}

// Image codecs produce a complete image rather than a byte stream. Decode
// passes DCT and JPX data through unchanged; DecodeForImage stops at any of
// them.
var imageCodecs = map[string]bool{
	"DCTDecode":      true,
	"JPXDecode":      true,
	"JBIG2Decode":    true,
	"CCITTFaxDecode": true,
}

var filterAbbreviations = map[string]string{
	"Fl":  "FlateDecode",
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"LZW": "LZWDecode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": "DCTDecode",
}

// Filters returns the stream's filter chain with abbreviated names expanded
// and each stage paired with its /DecodeParms entry.
func (s *Stream) Filters() ([]Filter, error) {
	parms := s.Dict.Get("DecodeParms")
	if parms == nil {
		parms = s.Dict.Get("DP")
	}
	paramsAt := func(i int) Dict {
		switch v := parms.(type) {
		case Dict:
			return v
		case Array:
			if d, ok := v.Get(i).(Dict); ok {
				return d
			}
		}
		return nil
	}

	f := s.Dict.Get("Filter")
	if f == nil {
		f = s.Dict.Get("F")
	}
	switch v := f.(type) {
	case nil:
		return nil, nil
	case Name:
		return []Filter{{Name: expandFilterName(string(v)), Params: paramsAt(0)}}, nil
	case Array:
		chain := make([]Filter, 0, len(v))
		for i, item := range v {
			name, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %s", i, item.Type())
			}
			chain = append(chain, Filter{Name: expandFilterName(string(name)), Params: paramsAt(i)})
		}
		return chain, nil
	}
	return nil, fmt.Errorf("invalid /Filter type: %s", f.Type())
}

func expandFilterName(name string) string {
	if full, ok := filterAbbreviations[name]; ok {
		return full
	}
	return name
}

// Decode applies the whole filter chain. DCT and JPX data is returned as is
// for an image decoder to handle.
func (s *Stream) Decode() ([]byte, error) {
	chain, err := s.Filters()
	if err != nil {
		return nil, err
	}
	data := s.Data
	for i, f := range chain {
		if f.Name == "DCTDecode" || f.Name == "JPXDecode" {
			return data, nil
		}
		data, err = decodeFilter(data, f)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, f.Name, err)
		}
	}
	return data, nil
}

// DecodeForImage applies the filter chain up to the first image codec and
// returns the partially decoded data with that codec. codec is nil when the
// chain contains no image codec, in which case data holds raw samples.
func (s *Stream) DecodeForImage() (data []byte, codec *Filter, err error) {
	chain, err := s.Filters()
	if err != nil {
		return nil, nil, err
	}
	data = s.Data
	for i, f := range chain {
		if imageCodecs[f.Name] {
			f := f
			return data, &f, nil
		}
		data, err = decodeFilter(data, f)
		if err != nil {
			return nil, nil, fmt.Errorf("filter %d (%s): %w", i, f.Name, err)
		}
	}
	return data, nil, nil
}

func decodeFilter(data []byte, f Filter) ([]byte, error) {
	switch f.Name {
	case "FlateDecode":
		return filters.FlateDecode(data, FilterParams(f.Params))
	case "LZWDecode":
		return filters.LZWDecode(data, FilterParams(f.Params))
	case "ASCIIHexDecode":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode":
		return filters.ASCII85Decode(data)
	case "RunLengthDecode":
		return filters.RunLengthDecode(data)
	case "CCITTFaxDecode":
		return filters.CCITTFaxDecode(data, FilterParams(f.Params))
	case "Crypt":
		// Only the Identity crypt filter is meaningful without decryption.
		if name, ok := f.Params.GetName("Name"); !ok || name == "Identity" {
			return data, nil
		}
		return nil, fmt.Errorf("encrypted streams are not supported")
	case "JBIG2Decode":
		return nil, fmt.Errorf("JBIG2Decode is not supported")
	}
	return nil, fmt.Errorf("unknown filter %s", f.Name)
}

// FilterParams converts decode parameters to the primitive form the filters
// package expects.
func FilterParams(d Dict) filters.Params {
	if d == nil {
		return nil
	}
	params := make(filters.Params, len(d))
	for k, v := range d {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		case String:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
