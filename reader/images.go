package reader

import (
	"fmt"
	"slices"

	"github.com/tsawler/deedscan/contentstream"
	"github.com/tsawler/deedscan/core"
	"github.com/tsawler/deedscan/graphicsstate"
)

// maxFormDepth bounds nesting of form XObjects while looking for images.
const maxFormDepth = 12

// PageImage is a raster image found on a page, not yet decoded.
type PageImage struct {
	// Name is the XObject resource name, or "inline-N" for the Nth inline
	// image of the page.
	Name             string
	Width            int
	Height           int
	BitsPerComponent int
	// ColorSpace is the colour space family, such as DeviceRGB or Indexed.
	ColorSpace string
	// Filter is the image codec (DCTDecode, CCITTFaxDecode, ...), or empty
	// for raw samples.
	Filter string
	// Matrix maps the unit square to user space where the image was
	// painted. It is the zero matrix for images that were never painted.
	Matrix  graphicsstate.Matrix
	Painted bool

	stream *core.Stream
	cs     *colorSpace
}

// PageImages lists the raster images of page i. Images come in the order
// the content stream paints them, including images inside form XObjects and
// inline images. Image XObjects in the page resources that are never
// painted follow, sorted by name. An image painted more than once is listed
// once.
func (r *Reader) PageImages(i int) ([]PageImage, error) {
	page, err := r.Page(i)
	if err != nil {
		return nil, err
	}
	content, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", i, err)
	}
	resources, err := page.Resources()
	if err != nil {
		return nil, fmt.Errorf("page %d resources: %w", i, err)
	}

	w := &imageWalker{
		r:    r,
		gs:   graphicsstate.New(),
		seen: make(map[*core.Stream]bool),
	}
	w.walk(content, resources, 0)
	w.unpainted(resources)
	return w.images, nil
}

type imageWalker struct {
	r      *Reader
	gs     *graphicsstate.GraphicsState
	seen   map[*core.Stream]bool
	inline int
	images []PageImage
}

func (w *imageWalker) walk(content []byte, resources core.Dict, depth int) {
	// A damaged stream still yields the operations before the damage.
	ops, _ := contentstream.Parse(content)
	for _, op := range ops {
		if w.gs.Apply(op) {
			continue
		}
		switch op.Operator {
		case "Do":
			if len(op.Operands) == 1 {
				if name, ok := op.Operands[0].(core.Name); ok {
					w.xobject(string(name), resources, depth)
				}
			}
		case "BI":
			if op.Image != nil {
				w.addInline(op.Image, resources)
			}
		}
	}
}

func (w *imageWalker) xobject(name string, resources core.Dict, depth int) {
	stream, ok := w.lookup(name, resources)
	if !ok {
		return
	}
	switch st, _ := stream.Dict.GetName("Subtype"); st {
	case "Image":
		w.add(name, stream, resources, w.gs.CTM, true)
	case "Form":
		if depth >= maxFormDepth || w.seen[stream] {
			return
		}
		w.seen[stream] = true
		content, err := stream.Decode()
		if err != nil {
			return
		}
		formRes := resources
		if d, ok := w.dict(stream.Dict.Get("Resources")); ok {
			formRes = d
		}
		w.gs.Save()
		depthBefore := w.gs.Depth()
		if m, ok := w.matrix(stream.Dict.Get("Matrix")); ok {
			w.gs.Concat(m)
		}
		w.walk(content, formRes, depth+1)
		for w.gs.Depth() >= depthBefore {
			w.gs.Restore()
		}
	}
}

// unpainted appends the page's image XObjects that were never painted.
func (w *imageWalker) unpainted(resources core.Dict) {
	xobjects, ok := w.dict(resources.Get("XObject"))
	if !ok {
		return
	}
	names := xobjects.Keys()
	slices.Sort(names)
	for _, name := range names {
		stream, ok := w.lookup(name, resources)
		if !ok {
			continue
		}
		if st, _ := stream.Dict.GetName("Subtype"); st == "Image" {
			w.add(name, stream, resources, graphicsstate.Matrix{}, false)
		}
	}
}

func (w *imageWalker) lookup(name string, resources core.Dict) (*core.Stream, bool) {
	xobjects, ok := w.dict(resources.Get("XObject"))
	if !ok {
		return nil, false
	}
	obj, err := w.r.Resolve(xobjects.Get(name))
	if err != nil {
		return nil, false
	}
	stream, ok := obj.(*core.Stream)
	return stream, ok
}

func (w *imageWalker) add(name string, stream *core.Stream, resources core.Dict, m graphicsstate.Matrix, painted bool) {
	if w.seen[stream] {
		return
	}
	w.seen[stream] = true
	img, err := w.r.newPageImage(name, stream, resources)
	if err != nil {
		return
	}
	img.Matrix = m
	img.Painted = painted
	w.images = append(w.images, img)
}

func (w *imageWalker) addInline(in *contentstream.InlineImage, resources core.Dict) {
	name := fmt.Sprintf("inline-%d", w.inline)
	w.inline++
	img, err := w.r.newPageImage(name, in.Stream(), resources)
	if err != nil {
		return
	}
	img.Matrix = w.gs.CTM
	img.Painted = true
	w.images = append(w.images, img)
}

func (w *imageWalker) dict(obj core.Object) (core.Dict, bool) {
	resolved, err := w.r.Resolve(obj)
	if err != nil {
		return nil, false
	}
	d, ok := resolved.(core.Dict)
	return d, ok
}

func (w *imageWalker) matrix(obj core.Object) (graphicsstate.Matrix, bool) {
	resolved, err := w.r.Resolve(obj)
	if err != nil {
		return graphicsstate.Matrix{}, false
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 6 {
		return graphicsstate.Matrix{}, false
	}
	var m graphicsstate.Matrix
	for i := range m {
		v, ok := core.Number(arr[i])
		if !ok {
			return graphicsstate.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

// newPageImage reads the image dictionary and resolves its colour space.
func (r *Reader) newPageImage(name string, stream *core.Stream, resources core.Dict) (PageImage, error) {
	d := stream.Dict
	width, ok1 := r.intValue(d.Get("Width"))
	height, ok2 := r.intValue(d.Get("Height"))
	if !ok1 || !ok2 || width <= 0 || height <= 0 {
		return PageImage{}, fmt.Errorf("image %s: missing or invalid size", name)
	}

	img := PageImage{
		Name:   name,
		Width:  width,
		Height: height,
		stream: stream,
	}

	if filters, err := stream.Filters(); err == nil {
		for _, f := range filters {
			if imageCodec(f.Name) {
				img.Filter = f.Name
				break
			}
		}
	}

	mask, _ := d.GetBool("ImageMask")
	bpc, ok := r.intValue(d.Get("BitsPerComponent"))
	switch {
	case bool(mask) || img.Filter == "CCITTFaxDecode" || img.Filter == "JBIG2Decode":
		bpc = 1
	case !ok:
		bpc = 8
	}
	img.BitsPerComponent = bpc

	if mask {
		img.ColorSpace = "ImageMask"
		return img, nil
	}
	csObj := d.Get("ColorSpace")
	if csObj == nil {
		// JPEG and JPEG 2000 streams carry their own colour space.
		img.ColorSpace = "DeviceGray"
		img.cs = &colorSpace{family: "DeviceGray", comps: 1}
		return img, nil
	}
	cs, err := r.colorSpace(csObj, resources, 0)
	if err != nil {
		return PageImage{}, fmt.Errorf("image %s: %w", name, err)
	}
	img.ColorSpace = cs.family
	img.cs = cs
	return img, nil
}

func imageCodec(name string) bool {
	switch name {
	case "DCTDecode", "JPXDecode", "JBIG2Decode", "CCITTFaxDecode":
		return true
	}
	return false
}

func (r *Reader) intValue(obj core.Object) (int, bool) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, false
	}
	v, ok := core.Number(resolved)
	return int(v), ok
}
