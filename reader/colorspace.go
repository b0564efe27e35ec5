package reader

import (
	"fmt"

	"github.com/tsawler/deedscan/core"
)

const maxColorSpaceDepth = 8

// colorSpace is a resolved image colour space.
type colorSpace struct {
	family string
	// comps is the number of components per sample in the image data.
	comps int

	// Indexed only.
	base   *colorSpace
	hival  int
	lookup []byte
}

func (r *Reader) colorSpace(obj core.Object, resources core.Dict, depth int) (*colorSpace, error) {
	if depth > maxColorSpaceDepth {
		return nil, fmt.Errorf("colour space nesting too deep")
	}
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve colour space: %w", err)
	}

	switch v := resolved.(type) {
	case core.Name:
		if cs := deviceSpace(string(v)); cs != nil {
			return cs, nil
		}
		// A named resource from the /ColorSpace dictionary.
		named, err := r.Resolve(resources.Get("ColorSpace"))
		if err == nil {
			if d, ok := named.(core.Dict); ok && d.Has(string(v)) {
				return r.colorSpace(d.Get(string(v)), resources, depth+1)
			}
		}
		return nil, fmt.Errorf("colour space %s: %w", v, ErrUnsupportedImage)
	case core.Array:
		return r.arrayColorSpace(v, resources, depth)
	}
	return nil, fmt.Errorf("colour space of type %s: %w", resolved.Type(), ErrUnsupportedImage)
}

func deviceSpace(name string) *colorSpace {
	switch name {
	case "DeviceGray", "G", "CalGray":
		return &colorSpace{family: "DeviceGray", comps: 1}
	case "DeviceRGB", "RGB", "CalRGB":
		return &colorSpace{family: "DeviceRGB", comps: 3}
	case "DeviceCMYK", "CMYK":
		return &colorSpace{family: "DeviceCMYK", comps: 4}
	}
	return nil
}

func (r *Reader) arrayColorSpace(arr core.Array, resources core.Dict, depth int) (*colorSpace, error) {
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty colour space array")
	}
	family, _ := arr[0].(core.Name)
	if len(arr) == 1 {
		return r.colorSpace(family, resources, depth+1)
	}

	switch family {
	case "CalGray":
		return &colorSpace{family: "CalGray", comps: 1}, nil
	case "CalRGB":
		return &colorSpace{family: "CalRGB", comps: 3}, nil
	case "Lab":
		return &colorSpace{family: "Lab", comps: 3}, nil
	case "ICCBased":
		return r.iccColorSpace(arr[1], resources, depth)
	case "Indexed", "I":
		return r.indexedColorSpace(arr, resources, depth)
	case "Separation":
		return &colorSpace{family: "Separation", comps: 1}, nil
	case "DeviceN":
		names, _ := r.Resolve(arr[1])
		n, _ := names.(core.Array)
		return &colorSpace{family: "DeviceN", comps: max(len(n), 1)}, nil
	}
	return nil, fmt.Errorf("colour space %s: %w", family, ErrUnsupportedImage)
}

// iccColorSpace maps an ICC profile to the device space with the same number
// of components; the profile itself is not applied.
func (r *Reader) iccColorSpace(obj core.Object, resources core.Dict, depth int) (*colorSpace, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve ICC profile: %w", err)
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("ICC profile is not a stream")
	}
	n, ok := r.intValue(stream.Dict.Get("N"))
	if !ok {
		if alt := stream.Dict.Get("Alternate"); alt != nil {
			return r.colorSpace(alt, resources, depth+1)
		}
		n = 3
	}
	var cs *colorSpace
	switch n {
	case 1:
		cs = deviceSpace("DeviceGray")
	case 4:
		cs = deviceSpace("DeviceCMYK")
	default:
		cs = deviceSpace("DeviceRGB")
	}
	cs.family = "ICCBased"
	return cs, nil
}

func (r *Reader) indexedColorSpace(arr core.Array, resources core.Dict, depth int) (*colorSpace, error) {
	if len(arr) < 4 {
		return nil, fmt.Errorf("indexed colour space needs 4 elements, has %d", len(arr))
	}
	base, err := r.colorSpace(arr[1], resources, depth+1)
	if err != nil {
		return nil, fmt.Errorf("indexed base: %w", err)
	}
	if base.family == "Indexed" {
		return nil, fmt.Errorf("indexed base cannot be indexed")
	}
	hival, ok := r.intValue(arr[2])
	if !ok || hival < 0 || hival > 255 {
		return nil, fmt.Errorf("indexed hival %v out of range", arr[2])
	}

	lookupObj, err := r.Resolve(arr[3])
	if err != nil {
		return nil, fmt.Errorf("resolve indexed lookup: %w", err)
	}
	var lookup []byte
	switch v := lookupObj.(type) {
	case core.String:
		lookup = []byte(v)
	case *core.Stream:
		if lookup, err = v.Decode(); err != nil {
			return nil, fmt.Errorf("decode indexed lookup: %w", err)
		}
	default:
		return nil, fmt.Errorf("indexed lookup of type %s", lookupObj.Type())
	}
	return &colorSpace{family: "Indexed", comps: 1, base: base, hival: hival, lookup: lookup}, nil
}
