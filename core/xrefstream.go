package core

import (
	"fmt"
)

// isXRefStream reports whether the parser sits on an "n g obj" header, the
// start of a PDF 1.5 cross-reference stream.
func (x *XRefParser) isXRefStream() bool {
	lex := NewLexer(x.data)
	lex.SetPos(x.pos)
	for i, want := range []TokenType{TokenInteger, TokenInteger, TokenKeyword} {
		tok, err := lex.NextToken()
		if err != nil || tok.Type != want {
			return false
		}
		if i == 2 && string(tok.Value) != "obj" {
			return false
		}
	}
	return true
}

func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	p := NewParser(x.data)
	p.SetPos(x.pos)
	indObj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("parse xref stream object: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref object %d is not a stream", indObj.Ref.Number)
	}

	if typ, ok := stream.Dict.GetName("Type"); !ok || typ != "XRef" {
		return nil, fmt.Errorf("xref stream has /Type %v, want /XRef", stream.Dict.Get("Type"))
	}
	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}
	wArr, ok := stream.Dict.GetArray("W")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /W")
	}
	if len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream /W has %d elements, want 3", len(wArr))
	}
	w := make([]int, 3)
	for i, v := range wArr {
		n, ok := v.(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid /W[%d]: %v", i, v)
		}
		w[i] = int(n)
	}

	index := []int{0, int(size)}
	if idx, ok := stream.Dict.GetArray("Index"); ok {
		if len(idx)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length %d", len(idx))
		}
		index = index[:0]
		for _, v := range idx {
			n, ok := v.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element %v", v)
			}
			index = append(index, int(n))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.IsStream = true
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			entry, n, err := parseXRefStreamEntry(data[pos:], w)
			if err != nil {
				return nil, fmt.Errorf("xref stream entry %d: %w", first+j, err)
			}
			pos += n
			table.Set(first+j, entry)
		}
	}

	// The stream dictionary doubles as the trailer.
	for k, v := range stream.Dict {
		switch k {
		case "Type", "W", "Index", "Length", "Filter", "DecodeParms":
			continue
		}
		table.Trailer[k] = v
	}
	return table, nil
}

// parseXRefStreamEntry decodes one binary entry of the given field widths and
// returns it with the number of bytes consumed.
func parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, int, error) {
	n := w[0] + w[1] + w[2]
	if len(data) < n {
		return nil, 0, fmt.Errorf("need %d bytes, have %d", n, len(data))
	}

	typ := int64(1) // a zero-width type field defaults to 1
	if w[0] > 0 {
		typ = readBigEndianInt(data, w[0])
	}
	f2 := readBigEndianInt(data[w[0]:], w[1])
	f3 := readBigEndianInt(data[w[0]+w[1]:], w[2])

	switch typ {
	case 1:
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: f2, Generation: int(f3), InUse: true}, n, nil
	case 2:
		return &XRefEntry{Type: XRefEntryCompressed, Offset: f2, Generation: int(f3), InUse: true}, n, nil
	default:
		// Type 0 and unknown types both read as free.
		return &XRefEntry{Type: XRefEntryFree, Offset: f2, Generation: int(f3)}, n, nil
	}
}

func readBigEndianInt(data []byte, width int) int64 {
	var v int64
	for i := 0; i < width && i < len(data); i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}
