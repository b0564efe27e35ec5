package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoXRef is returned when no startxref pointer can be found.
var ErrNoXRef = errors.New("startxref not found")

// XRefEntryType is the kind of a cross-reference entry.
type XRefEntryType int

const (
	XRefEntryFree XRefEntryType = iota
	XRefEntryUncompressed
	XRefEntryCompressed
)

// XRefEntry locates one object. For compressed entries Offset holds the
// object stream number and Generation the index inside that stream.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
	InUse      bool
}

// XRefTable maps object numbers to their locations.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict
	IsStream bool
}

// NewXRefTable returns an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	e, ok := x.Entries[objNum]
	return e, ok
}

func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// mergeOlder fills entries and trailer keys missing from x with those of an
// older revision.
func (x *XRefTable) mergeOlder(older *XRefTable) {
	for num, e := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = e
		}
	}
	for k, v := range older.Trailer {
		if !x.Trailer.Has(k) {
			x.Trailer[k] = v
		}
	}
}

// XRefParser reads cross-reference sections from a whole PDF file held in
// memory.
type XRefParser struct {
	data []byte
	pos  int
}

// NewXRefParser returns a parser over the complete file contents.
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

// FindXRef returns the offset named by the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	tail := x.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoXRef
	}
	rest := tail[idx+len("startxref"):]
	i := 0
	for i < len(rest) && isWhitespace(rest[i]) {
		i++
	}
	j := i
	for j < len(rest) && isDigit(rest[j]) {
		j++
	}
	if j == i {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return strconv.ParseInt(string(rest[i:j]), 10, 64)
}

// ParseXRef parses the section at offset, which may be a classic table or
// an xref stream.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref offset %d outside file (size %d)", offset, len(x.data))
	}
	x.pos = int(offset)
	x.skipSpace()

	if bytes.HasPrefix(x.data[x.pos:], []byte("xref")) {
		return x.parseXRefTable()
	}
	if x.isXRefStream() {
		return x.parseXRefStream()
	}
	return nil, fmt.Errorf("no xref section at offset %d", offset)
}

// ParseAll parses the newest section and every older one reachable through
// /Prev, merged so that newer entries win.
func (x *XRefParser) ParseAll() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var merged *XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			break
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			if merged == nil {
				return nil, err
			}
			// A broken older revision still leaves the newer ones usable.
			break
		}
		if merged == nil {
			merged = table
		} else {
			merged.mergeOlder(table)
		}

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	delete(merged.Trailer, "Prev")
	delete(merged.Trailer, "XRefStm")
	return merged, nil
}

func (x *XRefParser) skipSpace() {
	for x.pos < len(x.data) {
		b := x.data[x.pos]
		if b == '%' {
			for x.pos < len(x.data) && x.data[x.pos] != '\n' && x.data[x.pos] != '\r' {
				x.pos++
			}
			continue
		}
		if !isWhitespace(b) {
			return
		}
		x.pos++
	}
}

func (x *XRefParser) readWord() string {
	x.skipSpace()
	start := x.pos
	for x.pos < len(x.data) && !isWhitespace(x.data[x.pos]) && !isDelimiter(x.data[x.pos]) {
		x.pos++
	}
	return string(x.data[start:x.pos])
}

func (x *XRefParser) parseXRefTable() (*XRefTable, error) {
	x.pos += len("xref")
	table := NewXRefTable()

	for {
		x.skipSpace()
		if x.pos >= len(x.data) {
			return nil, fmt.Errorf("xref table has no trailer")
		}
		if bytes.HasPrefix(x.data[x.pos:], []byte("trailer")) {
			x.pos += len("trailer")
			break
		}

		start, err1 := strconv.Atoi(x.readWord())
		count, err2 := strconv.Atoi(x.readWord())
		if err1 != nil || err2 != nil || start < 0 || count < 0 {
			return nil, fmt.Errorf("invalid xref subsection header at offset %d", x.pos)
		}

		for i := 0; i < count; i++ {
			entry, err := parseEntry(x.readWord(), x.readWord(), x.readWord())
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", start+i, err)
			}
			// Some writers number the first subsection from 1 while still
			// listing the free head of object 0.
			if i == 0 && start == 1 && !entry.InUse && entry.Generation == 65535 {
				start = 0
			}
			if _, dup := table.Entries[start+i]; !dup {
				table.Set(start+i, entry)
			}
		}
	}

	p := NewParser(x.data)
	p.SetPos(x.pos)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("parse trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %s, not a dictionary", obj.Type())
	}
	table.Trailer = trailer

	// Hybrid files list compressed objects in a separate xref stream.
	if stm, ok := trailer.GetInt("XRefStm"); ok {
		if streamTable, err := x.ParseXRef(int64(stm)); err == nil {
			for num, e := range streamTable.Entries {
				if cur, ok := table.Entries[num]; !ok || !cur.InUse {
					table.Entries[num] = e
				}
			}
		}
	}
	return table, nil
}

// parseEntry parses the three fields of a classic "oooooooooo ggggg n" entry.
func parseEntry(offset, gen, kind string) (*XRefEntry, error) {
	off, err := strconv.ParseInt(offset, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q", offset)
	}
	g, err := strconv.Atoi(gen)
	if err != nil {
		return nil, fmt.Errorf("invalid generation %q", gen)
	}
	switch kind {
	case "n":
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: off, Generation: g, InUse: true}, nil
	case "f":
		return &XRefEntry{Type: XRefEntryFree, Offset: off, Generation: g}, nil
	}
	return nil, fmt.Errorf("invalid entry type %q", kind)
}
