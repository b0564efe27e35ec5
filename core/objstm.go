package core

import (
	"fmt"
)

// ObjectStream is a decoded /ObjStm stream holding several compressed
// objects (PDF 1.5+). Parsed objects are cached.
type ObjectStream struct {
	n       int
	first   int
	extends *IndirectRef
	data    []byte
	numbers []int
	offsets []int
	cache   map[int]Object
}

// NewObjectStream validates the stream dictionary, decodes the stream and
// reads its header of object number / offset pairs.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typ, ok := stream.Dict.GetName("Type"); !ok || typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream (/Type %v)", stream.Dict.Get("Type"))
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First %v", stream.Dict.Get("First"))
	}

	os := &ObjectStream{
		n:     int(n),
		first: int(first),
		cache: make(map[int]Object),
	}
	if ref, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		os.extends = &ref
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode object stream: %w", err)
	}
	os.data = data
	if err := os.parseHeader(); err != nil {
		return nil, err
	}
	return os, nil
}

// N returns the number of objects in the stream.
func (os *ObjectStream) N() int { return os.n }

// Extends returns the object stream this one extends, if any.
func (os *ObjectStream) Extends() *IndirectRef { return os.extends }

func (os *ObjectStream) parseHeader() error {
	if os.first > len(os.data) {
		return fmt.Errorf("object stream /First %d beyond data length %d", os.first, len(os.data))
	}
	lex := NewLexer(os.data[:os.first])
	for i := 0; i < os.n; i++ {
		num, err1 := lex.NextToken()
		off, err2 := lex.NextToken()
		if err1 != nil || err2 != nil || num.Type != TokenInteger || off.Type != TokenInteger {
			return fmt.Errorf("object stream header truncated at pair %d", i)
		}
		os.numbers = append(os.numbers, int(parseInt(num.Value)))
		os.offsets = append(os.offsets, int(parseInt(off.Value)))
	}
	return nil
}

// ObjectNumbers returns the object numbers in stream order.
func (os *ObjectStream) ObjectNumbers() []int {
	out := make([]int, len(os.numbers))
	copy(out, os.numbers)
	return out
}

// GetObjectByIndex returns the index-th object and its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if index < 0 || index >= len(os.numbers) {
		return nil, 0, fmt.Errorf("index %d out of range [0,%d)", index, len(os.numbers))
	}
	num := os.numbers[index]
	if obj, ok := os.cache[index]; ok {
		return obj, num, nil
	}

	start := os.first + os.offsets[index]
	if start > len(os.data) {
		return nil, 0, fmt.Errorf("object %d offset %d beyond data", num, start)
	}
	p := NewParser(os.data)
	p.SetPos(start)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("parse object %d: %w", num, err)
	}
	os.cache[index] = obj
	return obj, num, nil
}

// GetObjectByNumber finds an object by its object number.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, error) {
	for i, n := range os.numbers {
		if n == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", objNum)
}
