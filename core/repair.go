package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

var objHeader = regexp.MustCompile(`(?:^|[\r\n])\s*(\d+)\s+(\d+)\s+obj\b`)

// Rebuild recovers a cross-reference table from a file whose xref data is
// missing or corrupt. It scans for "n g obj" headers (later definitions win),
// folds in compressed entries from any xref streams it finds, and assembles a
// trailer from the last "trailer" dictionary or, failing that, the catalog.
func Rebuild(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	var xrefStreams []int

	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Set(num, &XRefEntry{Type: XRefEntryUncompressed, Offset: int64(m[2]), Generation: gen, InUse: true})

		// Peek at the dictionary for /Type /XRef without a full parse.
		head := data[m[1]:min(len(data), m[1]+256)]
		if bytes.Contains(head, []byte("/XRef")) && !bytes.Contains(head, []byte("/XRefStm")) {
			xrefStreams = append(xrefStreams, m[2])
		}
	}
	if table.Size() == 0 {
		return nil, fmt.Errorf("no objects found")
	}

	x := NewXRefParser(data)
	for _, off := range xrefStreams {
		x.pos = off
		st, err := x.parseXRefStream()
		if err != nil {
			continue
		}
		for num, e := range st.Entries {
			if e.Type == XRefEntryCompressed {
				if _, ok := table.Entries[num]; !ok {
					table.Set(num, e)
				}
			}
		}
		for k, v := range st.Trailer {
			if k != "Prev" && k != "Size" {
				table.Trailer[k] = v
			}
		}
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		p := NewParser(data)
		p.SetPos(idx + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if d, ok := obj.(Dict); ok {
				for k, v := range d {
					if k != "Prev" && k != "XRefStm" {
						table.Trailer[k] = v
					}
				}
			}
		}
	}

	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		ref, err := findCatalog(data, table)
		if err != nil {
			return nil, err
		}
		table.Trailer["Root"] = ref
	}

	maxNum := 0
	for num := range table.Entries {
		maxNum = max(maxNum, num)
	}
	table.Trailer["Size"] = Int(maxNum + 1)
	return table, nil
}

func findCatalog(data []byte, table *XRefTable) (IndirectRef, error) {
	p := NewParser(data)
	var found *IndirectRef
	for num, e := range table.Entries {
		if e.Type != XRefEntryUncompressed {
			continue
		}
		p.SetPos(int(e.Offset))
		obj, err := p.ParseIndirectObject()
		if err != nil {
			continue
		}
		d, ok := obj.Object.(Dict)
		if !ok {
			continue
		}
		if typ, _ := d.GetName("Type"); typ == "Catalog" {
			// Prefer the highest object number, typically the newest revision.
			if found == nil || num > found.Number {
				found = &IndirectRef{Number: num, Generation: e.Generation}
			}
		}
	}
	if found == nil {
		return IndirectRef{}, fmt.Errorf("no document catalog found")
	}
	return *found, nil
}
