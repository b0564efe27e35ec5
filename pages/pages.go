package pages

import (
	"bytes"
	"fmt"

	"github.com/tsawler/deedscan/core"
)

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// inheritable lists the page attributes a page takes from its ancestors.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// maxDepth bounds the tree walk for pathological files.
const maxDepth = 64

// Catalog is the document catalog (the trailer's /Root).
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog wraps a catalog dictionary.
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	ref := c.dict.Get("Pages")
	if ref == nil {
		return nil, fmt.Errorf("catalog missing /Pages")
	}
	obj, err := c.resolver.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve /Pages: %w", err)
	}
	d, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/Pages is %s, not a dictionary", obj.Type())
	}
	return d, nil
}

// PageTree is the flattened page tree.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
	loaded   bool
}

// NewPageTree returns a tree rooted at the given /Pages dictionary. The tree
// is walked lazily on first access.
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Pages returns every page in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if !t.loaded {
		visited := make(map[core.IndirectRef]bool)
		if err := t.walk(t.root, core.Dict{}, visited, 0); err != nil {
			return nil, fmt.Errorf("walk page tree: %w", err)
		}
		t.loaded = true
	}
	return t.pages, nil
}

// Count returns the number of leaf pages actually found, which may differ
// from a wrong /Count entry.
func (t *PageTree) Count() (int, error) {
	pages, err := t.Pages()
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// GetPage returns the page at a 0-based index.
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}
	return pages[index], nil
}

func (t *PageTree) walk(node core.Dict, inherited core.Dict, visited map[core.IndirectRef]bool, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxDepth)
	}

	attrs := make(core.Dict, len(inherited))
	for k, v := range inherited {
		attrs[k] = v
	}
	for _, key := range inheritable {
		if v := node.Get(key); v != nil {
			attrs[key] = v
		}
	}

	typ, _ := node.GetName("Type")
	kidsObj := node.Get("Kids")
	if typ == "Page" || (typ == "" && kidsObj == nil) {
		t.pages = append(t.pages, &Page{dict: node, inherited: attrs, resolver: t.resolver})
		return nil
	}
	if kidsObj == nil {
		return nil
	}

	resolved, err := t.resolver.Resolve(kidsObj)
	if err != nil {
		return fmt.Errorf("resolve /Kids: %w", err)
	}
	kids, ok := resolved.(core.Array)
	if !ok {
		return fmt.Errorf("/Kids is not an array")
	}

	for i, kid := range kids {
		if ref, isRef := kid.(core.IndirectRef); isRef {
			if visited[ref] {
				continue
			}
			visited[ref] = true
		}
		obj, err := t.resolver.Resolve(kid)
		if err != nil {
			return fmt.Errorf("resolve kid %d: %w", i, err)
		}
		child, ok := obj.(core.Dict)
		if !ok {
			continue
		}
		if err := t.walk(child, attrs, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Page is a single page with its inherited attributes.
type Page struct {
	dict      core.Dict
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage wraps a page dictionary. inherited may be nil.
func NewPage(dict, inherited core.Dict, resolver ObjectResolver) *Page {
	if inherited == nil {
		inherited = core.Dict{}
	}
	return &Page{dict: dict, inherited: inherited, resolver: resolver}
}

// Dict returns the page's own dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

func (p *Page) attr(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	return p.inherited.Get(key)
}

// Resources returns the resource dictionary. A page without resources gets
// an empty dictionary.
func (p *Page) Resources() (core.Dict, error) {
	obj := p.attr("Resources")
	if obj == nil {
		return core.Dict{}, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /Resources: %w", err)
	}
	d, ok := resolved.(core.Dict)
	if !ok {
		return core.Dict{}, nil
	}
	return d, nil
}

// MediaBox returns [llx lly urx ury]. US Letter is assumed when the box is
// missing or malformed.
func (p *Page) MediaBox() [4]float64 {
	if box, ok := p.box("MediaBox"); ok {
		return box
	}
	return [4]float64{0, 0, 612, 792}
}

// CropBox returns the crop box, defaulting to the media box.
func (p *Page) CropBox() [4]float64 {
	if box, ok := p.box("CropBox"); ok {
		return box
	}
	return p.MediaBox()
}

func (p *Page) box(key string) ([4]float64, bool) {
	var box [4]float64
	obj := p.attr(key)
	if obj == nil {
		return box, false
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return box, false
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		return box, false
	}
	for i, v := range arr {
		f, ok := core.Number(v)
		if !ok {
			return box, false
		}
		box[i] = f
	}
	return box, true
}

// Rotate returns the rotation normalised to 0, 90, 180 or 270.
func (p *Page) Rotate() int {
	r, ok := p.attr("Rotate").(core.Int)
	if !ok {
		return 0
	}
	deg := int(r) % 360
	if deg < 0 {
		deg += 360
	}
	return deg / 90 * 90
}

// Contents returns the page's decoded content, with multiple content streams
// joined by a newline. A page without /Contents has empty content.
func (p *Page) Contents() ([]byte, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /Contents: %w", err)
	}

	var parts []core.Object
	switch v := resolved.(type) {
	case *core.Stream:
		parts = []core.Object{v}
	case core.Array:
		parts = v
	default:
		return nil, fmt.Errorf("/Contents is %s", resolved.Type())
	}

	var buf bytes.Buffer
	for i, part := range parts {
		obj, err := p.resolver.Resolve(part)
		if err != nil {
			return nil, fmt.Errorf("resolve contents[%d]: %w", i, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode contents[%d]: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
