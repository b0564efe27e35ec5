package font

import (
	"fmt"
	"strings"

	"github.com/tsawler/deedscan/core"
)

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Char is one decoded character code.
type Char struct {
	Code uint32
	// Text is the Unicode text of the code, empty when unknown.
	Text string
	// Width is the horizontal advance in thousandths of text space units.
	Width float64
	// IsSpace marks the single-byte code 32, which word spacing applies to.
	IsSpace bool
}

// Font decodes text strings shown with one font resource.
type Font struct {
	Name     string
	BaseFont string
	Subtype  string
	Vertical bool

	composite  bool
	toUnicode  *CMap
	encCMap    *CMap
	predefined *predefinedCMap
	simple     *SimpleEncoding

	widths       map[uint32]float64
	defaultWidth float64
}

// Fallback returns a WinAnsi font for text shown with a font name that is not
// in the page resources.
func Fallback(name string) *Font {
	return &Font{
		Name:         name,
		Subtype:      "Type1",
		simple:       winAnsi,
		widths:       map[uint32]float64{},
		defaultWidth: 500,
	}
}

// Load builds a Font from a /Font resource dictionary.
func Load(name string, dict core.Dict, r Resolver) (*Font, error) {
	subtype, _ := dict.GetName("Subtype")
	baseFont, _ := dict.GetName("BaseFont")
	f := &Font{
		Name:     name,
		BaseFont: string(baseFont),
		Subtype:  string(subtype),
		widths:   make(map[uint32]float64),
	}

	if obj := dict.Get("ToUnicode"); obj != nil {
		if cm, err := loadCMapStream(obj, r); err == nil {
			f.toUnicode = cm
		}
	}

	if subtype == "Type0" {
		f.composite = true
		if err := f.loadComposite(dict, r); err != nil {
			return nil, fmt.Errorf("font %s: %w", name, err)
		}
		return f, nil
	}

	f.loadSimpleEncoding(dict, r)
	f.loadSimpleWidths(dict, r)
	return f, nil
}

func loadCMapStream(obj core.Object, r Resolver) (*CMap, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("cmap is %s, not a stream", resolved.Type())
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode cmap: %w", err)
	}
	return ParseCMap(data)
}

func (f *Font) loadSimpleEncoding(dict core.Dict, r Resolver) {
	base := winAnsi
	if f.Subtype == "Type1" && !strings.Contains(f.BaseFont, "Symbol") && !strings.Contains(f.BaseFont, "Dingbats") {
		if !isStandard14(f.BaseFont) {
			base = standard
		}
	}

	encObj, _ := r.Resolve(dict.Get("Encoding"))
	switch enc := encObj.(type) {
	case core.Name:
		if b := BaseEncoding(string(enc)); b != nil {
			base = b
		}
	case core.Dict:
		if name, ok := enc.GetName("BaseEncoding"); ok {
			if b := BaseEncoding(string(name)); b != nil {
				base = b
			}
		}
		if diffs, err := r.Resolve(enc.Get("Differences")); err == nil {
			if arr, ok := diffs.(core.Array); ok {
				base = withDifferences(base, arr)
			}
		}
	}
	f.simple = base
}

func (f *Font) loadSimpleWidths(dict core.Dict, r Resolver) {
	f.defaultWidth = 500
	if fd, err := r.Resolve(dict.Get("FontDescriptor")); err == nil {
		if d, ok := fd.(core.Dict); ok {
			if mw, ok := core.Number(d.Get("MissingWidth")); ok && mw > 0 {
				f.defaultWidth = mw
			}
		}
	}

	// Type3 glyph widths are in glyph space; FontMatrix maps them to text space.
	scale := 1.0
	if f.Subtype == "Type3" {
		if m, err := r.Resolve(dict.Get("FontMatrix")); err == nil {
			if arr, ok := m.(core.Array); ok && len(arr) == 6 {
				if a, ok := core.Number(arr[0]); ok {
					scale = a * 1000
				}
			}
		}
	}

	first := 0
	if fc, ok := dict.GetInt("FirstChar"); ok {
		first = int(fc)
	}
	wObj, err := r.Resolve(dict.Get("Widths"))
	if err != nil {
		return
	}
	widths, ok := wObj.(core.Array)
	if !ok {
		return
	}
	for i, w := range widths {
		resolved, _ := r.Resolve(w)
		if v, ok := core.Number(resolved); ok {
			f.widths[uint32(first+i)] = v * scale
		}
	}
}

func (f *Font) loadComposite(dict core.Dict, r Resolver) error {
	encObj, err := r.Resolve(dict.Get("Encoding"))
	if err != nil {
		return fmt.Errorf("resolve /Encoding: %w", err)
	}
	switch enc := encObj.(type) {
	case core.Name:
		f.setCMapName(string(enc))
	case *core.Stream:
		data, err := enc.Decode()
		if err != nil {
			return fmt.Errorf("decode encoding cmap: %w", err)
		}
		cm, err := ParseCMap(data)
		if err != nil {
			return fmt.Errorf("parse encoding cmap: %w", err)
		}
		f.encCMap = cm
		f.Vertical = cm.Vertical
		if cm.UseCMap != "" {
			f.setCMapName(cm.UseCMap)
		}
	}

	f.defaultWidth = 1000
	descObj, err := r.Resolve(dict.Get("DescendantFonts"))
	if err != nil {
		return nil
	}
	descs, ok := descObj.(core.Array)
	if !ok || len(descs) == 0 {
		return nil
	}
	d, err := r.Resolve(descs[0])
	if err != nil {
		return nil
	}
	desc, ok := d.(core.Dict)
	if !ok {
		return nil
	}
	if dw, ok := core.Number(desc.Get("DW")); ok {
		f.defaultWidth = dw
	}
	if wObj, err := r.Resolve(desc.Get("W")); err == nil {
		if w, ok := wObj.(core.Array); ok {
			f.parseCIDWidths(w, r)
		}
	}
	return nil
}

func (f *Font) setCMapName(name string) {
	f.Vertical = f.Vertical || isVerticalCMapName(name)
	if p, ok := lookupPredefined(name); ok {
		f.predefined = p
	}
}

// parseCIDWidths reads a /W array: "c [w1 w2 ...]" gives consecutive widths
// starting at CID c; "c1 c2 w" gives one width to a CID range.
func (f *Font) parseCIDWidths(w core.Array, r Resolver) {
	for i := 0; i < len(w); {
		start, ok := core.Number(w[i])
		if !ok || i+1 >= len(w) {
			return
		}
		next, _ := r.Resolve(w[i+1])
		if arr, ok := next.(core.Array); ok {
			for j, v := range arr {
				if width, ok := core.Number(v); ok {
					f.widths[uint32(int(start)+j)] = width
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			return
		}
		end, ok1 := core.Number(next)
		width, ok2 := core.Number(w[i+2])
		if ok1 && ok2 && end >= start && end-start < 65536 {
			for c := int(start); c <= int(end); c++ {
				f.widths[uint32(c)] = width
			}
		}
		i += 3
	}
}

// IsComposite reports whether the font is a Type0 font.
func (f *Font) IsComposite() bool { return f.composite }

// Decode splits data into character codes and decodes each one.
func (f *Font) Decode(data []byte) []Char {
	chars := make([]Char, 0, len(data))
	for len(data) > 0 {
		c, n := f.decodeOne(data)
		if n <= 0 {
			n = 1
		}
		chars = append(chars, c)
		data = data[n:]
	}
	return chars
}

// DecodeString decodes data to normalised Unicode text.
func (f *Font) DecodeString(data []byte) string {
	var b strings.Builder
	for _, c := range f.Decode(data) {
		b.WriteString(c.Text)
	}
	return Normalize(b.String())
}

func (f *Font) decodeOne(data []byte) (Char, int) {
	if !f.composite {
		code := uint32(data[0])
		c := Char{Code: code, Width: f.width(code), IsSpace: code == 32}
		if s, ok := f.toUnicode.lookup(code); ok {
			c.Text = s
		} else if r := f.simple[code]; r != 0 {
			c.Text = string(r)
		}
		return c, 1
	}

	var code uint32
	var n int
	var text string
	switch {
	case f.encCMap != nil && f.encCMap.HasCodespace():
		code, n = f.encCMap.NextCode(data, 2)
	case f.predefined != nil:
		code, n, text = f.predefined.next(data)
	case f.toUnicode != nil && f.toUnicode.HasCodespace():
		code, n = f.toUnicode.NextCode(data, 2)
	default:
		code, n = identityCode(data)
	}

	c := Char{Code: code, IsSpace: n == 1 && code == 32}
	if s, ok := f.toUnicode.lookup(code); ok {
		c.Text = s
	} else {
		c.Text = text
	}

	cid := code
	if f.encCMap != nil {
		cid = uint32(f.encCMap.CID(code))
	}
	if f.predefined != nil && f.encCMap == nil {
		// Codes of a legacy-encoding CMap are not CIDs.
		c.Width = f.defaultWidth
	} else {
		c.Width = f.width(cid)
	}
	return c, n
}

func identityCode(data []byte) (uint32, int) {
	if len(data) < 2 {
		return uint32(data[0]), 1
	}
	return uint32(data[0])<<8 | uint32(data[1]), 2
}

func (f *Font) width(key uint32) float64 {
	if w, ok := f.widths[key]; ok {
		return w
	}
	return f.defaultWidth
}

func (cm *CMap) lookup(code uint32) (string, bool) {
	if cm == nil {
		return "", false
	}
	return cm.Lookup(code)
}

var standard14 = map[string]bool{
	"Times-Roman": true, "Times-Bold": true, "Times-Italic": true, "Times-BoldItalic": true,
	"Helvetica": true, "Helvetica-Bold": true, "Helvetica-Oblique": true, "Helvetica-BoldOblique": true,
	"Courier": true, "Courier-Bold": true, "Courier-Oblique": true, "Courier-BoldOblique": true,
	"Symbol": true, "ZapfDingbats": true,
}

// isStandard14 reports whether a base font is one of the standard 14. Those
// are typically written without an embedded program and read best as WinAnsi.
func isStandard14(baseFont string) bool {
	return standard14[baseFont]
}
