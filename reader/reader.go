package reader

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/deedscan/core"
	"github.com/tsawler/deedscan/pages"
	"github.com/tsawler/deedscan/text"
)

// Version is the version in the file header.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader reads one PDF document held in memory.
type Reader struct {
	data     []byte
	version  Version
	xref     *core.XRefTable
	repaired bool

	cache      map[int]core.Object
	objStreams map[int]*core.ObjectStream
	loading    map[int]bool

	pages []*pages.Page
	text  *text.Extractor
}

var (
	_ pages.ObjectResolver   = (*Reader)(nil)
	_ core.ReferenceResolver = (*Reader)(nil)
)

// Open reads the file at path.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewReader(data)
}

// NewReader parses the header, cross-reference data and page tree of a PDF
// held in data. The slice is retained and must not be modified.
func NewReader(data []byte) (*Reader, error) {
	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		data:    data,
		version: version,
	}
	r.resetCache()

	table, err := core.NewXRefParser(data).ParseAll()
	if err != nil || !table.Trailer.Has("Root") {
		if err := r.repair(); err != nil {
			return nil, fmt.Errorf("load xref: %w", err)
		}
	} else {
		r.xref = table
	}

	if r.xref.Trailer.Has("Encrypt") {
		return nil, ErrEncrypted
	}

	if err := r.loadPages(); err != nil {
		if r.repaired {
			return nil, err
		}
		// The xref parsed but points at the wrong places.
		if rerr := r.repair(); rerr != nil {
			return nil, err
		}
		if err := r.loadPages(); err != nil {
			return nil, err
		}
	}
	r.text = text.NewExtractor(r)
	return r, nil
}

var versionPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader finds %PDF-x.y in the first kilobyte; some producers put junk
// before it.
func parseHeader(data []byte) (Version, error) {
	head := data[:min(len(data), 1024)]
	m := versionPattern.FindSubmatch(head)
	if m == nil {
		return Version{}, ErrNotPDF
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return Version{Major: major, Minor: minor}, nil
}

// repair rebuilds the cross-reference table by scanning the file.
func (r *Reader) repair() error {
	table, err := core.Rebuild(r.data)
	if err != nil {
		return err
	}
	r.xref = table
	r.repaired = true
	r.resetCache()
	return nil
}

func (r *Reader) resetCache() {
	r.cache = make(map[int]core.Object)
	r.objStreams = make(map[int]*core.ObjectStream)
	r.loading = make(map[int]bool)
}

// Version returns the header version.
func (r *Reader) Version() Version { return r.version }

// Trailer returns the trailer dictionary.
func (r *Reader) Trailer() core.Dict { return r.xref.Trailer }

// Repaired reports whether the cross-reference table had to be rebuilt.
func (r *Reader) Repaired() bool { return r.repaired }

// GetObject loads object num. Free and missing objects read as null.
func (r *Reader) GetObject(num int) (core.Object, error) {
	if obj, ok := r.cache[num]; ok {
		return obj, nil
	}
	entry, ok := r.xref.Get(num)
	if !ok || !entry.InUse {
		return core.Null{}, nil
	}
	if r.loading[num] {
		return nil, fmt.Errorf("object %d refers to itself", num)
	}
	r.loading[num] = true
	defer delete(r.loading, num)

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefEntryCompressed:
		obj, err = r.compressedObject(num, int(entry.Offset))
	default:
		obj, err = r.objectAt(num, entry.Offset)
		if err != nil && !r.repaired && r.repair() == nil {
			// A stale offset usually means the whole table is off.
			return r.GetObject(num)
		}
	}
	if err != nil {
		return nil, err
	}
	r.cache[num] = obj
	return obj, nil
}

func (r *Reader) objectAt(num int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d: offset %d outside file", num, offset)
	}
	p := core.NewParser(r.data)
	p.SetReferenceResolver(r)
	p.SetPos(int(offset))
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	if ind.Ref.Number != num {
		return nil, fmt.Errorf("object %d: found object %d at offset %d", num, ind.Ref.Number, offset)
	}
	return ind.Object, nil
}

func (r *Reader) compressedObject(num, streamNum int) (core.Object, error) {
	objStm, ok := r.objStreams[streamNum]
	if !ok {
		obj, err := r.GetObject(streamNum)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is %s", streamNum, obj.Type())
		}
		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
		}
		r.objStreams[streamNum] = objStm
	}
	return objStm.GetObjectByNumber(num)
}

// ResolveReference loads the object ref points to.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve follows obj if it is an indirect reference. A nil obj resolves to
// nil without error.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// Catalog returns the document catalog.
func (r *Reader) Catalog() (core.Dict, error) {
	obj, err := r.Resolve(r.xref.Trailer.Get("Root"))
	if err != nil {
		return nil, fmt.Errorf("resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary")
	}
	return catalog, nil
}

// Info returns the document information dictionary, or nil.
func (r *Reader) Info() core.Dict {
	obj, err := r.Resolve(r.xref.Trailer.Get("Info"))
	if err != nil {
		return nil
	}
	d, _ := obj.(core.Dict)
	return d
}

func (r *Reader) loadPages() error {
	catalog, err := r.Catalog()
	if err != nil {
		return err
	}
	root, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return err
	}
	list, err := pages.NewPageTree(root, r).Pages()
	if err != nil {
		return fmt.Errorf("page tree: %w", err)
	}
	r.pages = list
	return nil
}

// PageCount returns the number of pages.
func (r *Reader) PageCount() int { return len(r.pages) }

// Page returns page i (0-based).
func (r *Reader) Page(i int) (*pages.Page, error) {
	if i < 0 || i >= len(r.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", i, len(r.pages), ErrPageRange)
	}
	return r.pages[i], nil
}

// PageFragments returns the positioned text of page i in paint order.
func (r *Reader) PageFragments(i int) ([]text.Fragment, error) {
	page, err := r.Page(i)
	if err != nil {
		return nil, err
	}
	content, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", i, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}
	resources, err := page.Resources()
	if err != nil {
		return nil, fmt.Errorf("page %d resources: %w", i, err)
	}
	frags, err := r.text.Extract(content, resources)
	if err != nil && len(frags) == 0 {
		return nil, fmt.Errorf("page %d: %w", i, err)
	}
	return frags, nil
}

// PageText returns the text of page i in reading order, one line per text
// line.
func (r *Reader) PageText(i int) (string, error) {
	frags, err := r.PageFragments(i)
	if err != nil {
		return "", err
	}
	return text.Assemble(frags), nil
}

// Text returns the text of every page.
func (r *Reader) Text() ([]string, error) {
	out := make([]string, len(r.pages))
	for i := range r.pages {
		s, err := r.PageText(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
