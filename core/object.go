package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF object.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType identifies the concrete kind of an Object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
)

var objectTypeNames = [...]string{
	ObjNull:     "Null",
	ObjBool:     "Bool",
	ObjInt:      "Int",
	ObjReal:     "Real",
	ObjString:   "String",
	ObjName:     "Name",
	ObjArray:    "Array",
	ObjDict:     "Dict",
	ObjStream:   "Stream",
	ObjIndirect: "IndirectRef",
}

func (t ObjectType) String() string {
	if t >= 0 && int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return "Unknown"
}

// Null is the PDF null object.
type Null struct{}

func (Null) Type() ObjectType { return ObjNull }
func (Null) String() string   { return "null" }

// Bool is a PDF boolean.
type Bool bool

func (Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Int is a PDF integer.
type Int int64

func (Int) Type() ObjectType { return ObjInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (Real) Type() ObjectType { return ObjReal }
func (r Real) String() string { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String is a PDF string. The bytes are the decoded string contents; their
// text encoding depends on where the string is used.
type String string

func (String) Type() ObjectType { return ObjString }
func (s String) String() string { return string(s) }

// Name is a PDF name without its leading slash.
type Name string

func (Name) Type() ObjectType { return ObjName }
func (n Name) String() string { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (Array) Type() ObjectType { return ObjArray }

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = obj.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Get returns the element at index, or nil when out of range.
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// Dict is a PDF dictionary keyed by name (without the slash).
type Dict map[string]Object

func (Dict) Type() ObjectType { return ObjDict }

// String renders the dictionary with sorted keys so output is stable.
func (d Dict) String() string {
	keys := d.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("/%s %s", k, d[k].String())
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get returns the value for key, or nil.
func (d Dict) Get(key string) Object { return d[key] }

// Has reports whether key is present.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Keys returns the keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetName returns a direct Name value.
func (d Dict) GetName(key string) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// GetInt returns a direct Int value.
func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d[key].(Int)
	return i, ok
}

// GetDict returns a direct Dict value.
func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// GetArray returns a direct Array value.
func (d Dict) GetArray(key string) (Array, bool) {
	a, ok := d[key].(Array)
	return a, ok
}

// GetBool returns a direct Bool value.
func (d Dict) GetBool(key string) (Bool, bool) {
	b, ok := d[key].(Bool)
	return b, ok
}

// GetIndirectRef returns an IndirectRef value.
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	r, ok := d[key].(IndirectRef)
	return r, ok
}

// Stream is a PDF stream: its dictionary and the raw bytes between the
// stream and endstream keywords.
type Stream struct {
	Dict Dict
	Data []byte
}

func (*Stream) Type() ObjectType { return ObjStream }

func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// IndirectRef is a reference "n g R" to an indirect object.
type IndirectRef struct {
	Number     int
	Generation int
}

func (IndirectRef) Type() ObjectType { return ObjIndirect }

func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject is an "n g obj ... endobj" definition.
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

// Number converts an Int or Real to float64.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}
