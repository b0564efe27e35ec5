package text

import (
	"fmt"
	"strings"

	"github.com/tsawler/deedscan/contentstream"
	"github.com/tsawler/deedscan/core"
	"github.com/tsawler/deedscan/font"
	"github.com/tsawler/deedscan/graphicsstate"
)

// maxFormDepth bounds nesting of form XObjects.
const maxFormDepth = 12

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Fragment is a run of text shown by one string operand.
type Fragment struct {
	Text string
	// X and Y are the baseline origin in user space.
	X, Y float64
	// Width is the distance the string advanced the pen.
	Width float64
	// Size is the rendered font size.
	Size     float64
	Font     string
	Vertical bool
}

// Extractor turns content streams into fragments. It caches fonts loaded
// through indirect references, so one Extractor should serve one document.
type Extractor struct {
	r     Resolver
	fonts map[core.IndirectRef]*font.Font
}

// NewExtractor returns an extractor resolving objects through r.
func NewExtractor(r Resolver) *Extractor {
	return &Extractor{r: r, fonts: make(map[core.IndirectRef]*font.Font)}
}

// run is the state of one content stream being interpreted.
type run struct {
	e         *Extractor
	gs        *graphicsstate.GraphicsState
	resources core.Dict
	local     map[string]*font.Font
	depth     int
	out       *[]Fragment
}

// Extract interprets content with the given resources.
func (e *Extractor) Extract(content []byte, resources core.Dict) ([]Fragment, error) {
	var frags []Fragment
	r := &run{
		e:         e,
		gs:        graphicsstate.New(),
		resources: resources,
		local:     make(map[string]*font.Font),
		out:       &frags,
	}
	if err := r.exec(content); err != nil {
		return frags, err
	}
	return frags, nil
}

func (r *run) exec(content []byte) error {
	ops, err := contentstream.Parse(content)
	for _, op := range ops {
		if r.gs.Apply(op) {
			continue
		}
		switch op.Operator {
		case "Tj":
			if len(op.Operands) == 1 {
				r.show(op.Operands[0])
			}
		case "TJ":
			if len(op.Operands) == 1 {
				if arr, ok := op.Operands[0].(core.Array); ok {
					r.showArray(arr)
				}
			}
		case "'":
			r.gs.NextLine()
			if len(op.Operands) == 1 {
				r.show(op.Operands[0])
			}
		case `"`:
			if len(op.Operands) == 3 {
				r.gs.Text.WordSpacing = op.Number(0)
				r.gs.Text.CharSpacing = op.Number(1)
				r.gs.NextLine()
				r.show(op.Operands[2])
			}
		case "Do":
			if len(op.Operands) == 1 {
				if name, ok := op.Operands[0].(core.Name); ok {
					r.form(string(name))
				}
			}
		}
	}
	if err != nil {
		return fmt.Errorf("content stream: %w", err)
	}
	return nil
}

func (r *run) show(operand core.Object) {
	s, ok := operand.(core.String)
	if !ok {
		return
	}
	f := r.font()
	ts := &r.gs.Text

	trm := r.gs.RenderMatrix()
	x0, y0 := trm.Apply(0, 0)
	size := trm.ScaleY()

	var b strings.Builder
	for _, c := range f.Decode([]byte(s)) {
		b.WriteString(c.Text)
		spacing := ts.CharSpacing
		if c.IsSpace {
			spacing += ts.WordSpacing
		}
		if f.Vertical {
			r.gs.Advance(0, -ts.FontSize+spacing)
		} else {
			r.gs.Advance((c.Width/1000*ts.FontSize+spacing)*ts.Scale, 0)
		}
	}

	x1, y1 := r.gs.RenderMatrix().Apply(0, 0)
	text := font.Normalize(b.String())
	if text == "" {
		return
	}
	*r.out = append(*r.out, Fragment{
		Text:     text,
		X:        x0,
		Y:        y0,
		Width:    distance(x0, y0, x1, y1),
		Size:     size,
		Font:     ts.FontName,
		Vertical: f.Vertical,
	})
}

func (r *run) showArray(arr core.Array) {
	for _, item := range arr {
		if n, ok := core.Number(item); ok {
			ts := r.gs.Text
			adj := -n / 1000 * ts.FontSize
			if r.font().Vertical {
				r.gs.Advance(0, adj)
			} else {
				r.gs.Advance(adj*ts.Scale, 0)
			}
			continue
		}
		r.show(item)
	}
}

// font returns the current font, loading it from the resources on first use.
// Unknown names fall back to a WinAnsi font so text is never dropped.
func (r *run) font() *font.Font {
	name := r.gs.Text.FontName
	if f, ok := r.local[name]; ok {
		return f
	}
	f := r.loadFont(name)
	r.local[name] = f
	return f
}

func (r *run) loadFont(name string) *font.Font {
	fonts, ok := r.dict(r.resources.Get("Font"))
	if !ok {
		return font.Fallback(name)
	}
	obj := fonts.Get(name)
	ref, isRef := obj.(core.IndirectRef)
	if isRef {
		if f, ok := r.e.fonts[ref]; ok {
			return f
		}
	}
	dict, ok := r.dict(obj)
	if !ok {
		return font.Fallback(name)
	}
	f, err := font.Load(name, dict, r.e.r)
	if err != nil {
		return font.Fallback(name)
	}
	if isRef {
		r.e.fonts[ref] = f
	}
	return f
}

// form runs a form XObject. Image XObjects are ignored here.
func (r *run) form(name string) {
	if r.depth >= maxFormDepth {
		return
	}
	xobjects, ok := r.dict(r.resources.Get("XObject"))
	if !ok {
		return
	}
	obj, err := r.e.r.Resolve(xobjects.Get(name))
	if err != nil {
		return
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return
	}
	if st, _ := stream.Dict.GetName("Subtype"); st != "Form" {
		return
	}
	content, err := stream.Decode()
	if err != nil {
		return
	}

	resources := r.resources
	if res, ok := r.dict(stream.Dict.Get("Resources")); ok {
		resources = res
	}

	r.gs.Save()
	depth := r.gs.Depth()
	defer func() {
		// Drop any q the form left open, then the save above.
		for r.gs.Depth() >= depth {
			r.gs.Restore()
		}
	}()
	if m, ok := r.matrix(stream.Dict.Get("Matrix")); ok {
		r.gs.Concat(m)
	}
	child := &run{
		e:         r.e,
		gs:        r.gs,
		resources: resources,
		local:     make(map[string]*font.Font),
		depth:     r.depth + 1,
		out:       r.out,
	}
	// Errors inside a form only cut the form short.
	_ = child.exec(content)
}

func (r *run) dict(obj core.Object) (core.Dict, bool) {
	if obj == nil {
		return nil, false
	}
	resolved, err := r.e.r.Resolve(obj)
	if err != nil {
		return nil, false
	}
	d, ok := resolved.(core.Dict)
	return d, ok
}

func (r *run) matrix(obj core.Object) (graphicsstate.Matrix, bool) {
	resolved, err := r.e.r.Resolve(obj)
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
