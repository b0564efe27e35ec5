package contentstream

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tsawler/deedscan/core"
)

// Operation is one operator together with the operands that preceded it.
type Operation struct {
	Operator string
	Operands []core.Object
	// Image is set for inline images only.
	Image *InlineImage
}

// InlineImage is an image embedded directly in a content stream.
type InlineImage struct {
	// Dict holds the image parameters with abbreviated keys and names
	// expanded, so it reads like an image XObject dictionary.
	Dict core.Dict
	Data []byte
}

// Stream returns the image as a stream object so it can be decoded like an
// image XObject.
func (img *InlineImage) Stream() *core.Stream {
	return &core.Stream{Dict: img.Dict, Data: img.Data}
}

// Number returns operand i as a float, or 0.
func (op Operation) Number(i int) float64 {
	if i < 0 || i >= len(op.Operands) {
		return 0
	}
	v, _ := core.Number(op.Operands[i])
	return v
}

// Parser reads operations from a content stream.
type Parser struct {
	lex      *core.Lexer
	operands []core.Object
}

// NewParser returns a parser over data.
func NewParser(data []byte) *Parser {
	return &Parser{lex: core.NewLexer(data)}
}

// Parse is shorthand for NewParser(data).Parse().
func Parse(data []byte) ([]Operation, error) {
	return NewParser(data).Parse()
}

// Parse returns every operation in the stream. Operands left on the stack at
// the end of the stream are dropped.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	for {
		op, err := p.Next()
		if err != nil {
			return ops, err
		}
		if op == nil {
			return ops, nil
		}
		ops = append(ops, *op)
	}
}

// Next returns the next operation, or nil at the end of the stream.
func (p *Parser) Next() (*Operation, error) {
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			// Unbalanced delimiters: drop what was collected and carry on.
			p.operands = p.operands[:0]
			continue
		}
		switch tok.Type {
		case core.TokenEOF:
			return nil, nil
		case core.TokenKeyword:
			switch kw := string(tok.Value); kw {
			case "true":
				p.operands = append(p.operands, core.Bool(true))
			case "false":
				p.operands = append(p.operands, core.Bool(false))
			case "null":
				p.operands = append(p.operands, core.Null{})
			case "BI":
				p.operands = p.operands[:0]
				img, err := p.inlineImage()
				if err != nil {
					return nil, err
				}
				return &Operation{Operator: "BI", Image: img}, nil
			default:
				op := &Operation{Operator: kw, Operands: append([]core.Object(nil), p.operands...)}
				p.operands = p.operands[:0]
				return op, nil
			}
		default:
			obj, err := p.operand(tok)
			if err != nil {
				p.operands = p.operands[:0]
				continue
			}
			p.operands = append(p.operands, obj)
		}
	}
}

func (p *Parser) operand(tok core.Token) (core.Object, error) {
	switch tok.Type {
	case core.TokenInteger:
		if v, ok := parseNumber(tok.Value); ok {
			return core.Int(int64(v)), nil
		}
		return core.Int(0), nil
	case core.TokenReal:
		v, _ := parseNumber(tok.Value)
		return core.Real(v), nil
	case core.TokenString, core.TokenHexString:
		return core.String(tok.Value), nil
	case core.TokenName:
		return core.Name(tok.Value), nil
	case core.TokenArrayStart:
		return p.array()
	case core.TokenDictStart:
		return p.dict(false)
	}
	return nil, fmt.Errorf("unexpected %s at offset %d", tok.Type, tok.Pos)
}

func (p *Parser) array() (core.Object, error) {
	var arr core.Array
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case core.TokenArrayEnd:
			return arr, nil
		case core.TokenEOF:
			return nil, fmt.Errorf("unterminated array")
		case core.TokenKeyword:
			// Operators cannot appear inside arrays; keep literals only.
			switch string(tok.Value) {
			case "true":
				arr = append(arr, core.Bool(true))
			case "false":
				arr = append(arr, core.Bool(false))
			case "null":
				arr = append(arr, core.Null{})
			default:
				return nil, fmt.Errorf("operator %q inside array at offset %d", tok.Value, tok.Pos)
			}
			continue
		}
		obj, err := p.operand(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// dict reads key/value pairs up to ">>". Inline image dictionaries end at
// the ID keyword instead.
func (p *Parser) dict(inline bool) (core.Dict, error) {
	d := core.Dict{}
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		if !inline && tok.Type == core.TokenDictEnd {
			return d, nil
		}
		if inline && tok.Type == core.TokenKeyword && string(tok.Value) == "ID" {
			return d, nil
		}
		if tok.Type == core.TokenEOF {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if tok.Type != core.TokenName {
			return nil, fmt.Errorf("dictionary key must be a name, got %s at offset %d", tok.Type, tok.Pos)
		}
		key := string(tok.Value)

		vtok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		var val core.Object
		if vtok.Type == core.TokenKeyword {
			switch string(vtok.Value) {
			case "true":
				val = core.Bool(true)
			case "false":
				val = core.Bool(false)
			case "null":
				continue
			default:
				return nil, fmt.Errorf("bad value for /%s at offset %d", key, vtok.Pos)
			}
		} else if val, err = p.operand(vtok); err != nil {
			return nil, err
		}
		d[key] = val
	}
}

func (p *Parser) inlineImage() (*InlineImage, error) {
	params, err := p.dict(true)
	if err != nil {
		return nil, fmt.Errorf("inline image: %w", err)
	}
	dict := expandInlineDict(params)

	data := p.lex.Data()
	start := p.lex.Pos()
	// A single whitespace byte separates ID from the image data.
	if start < len(data) && isSpace(data[start]) {
		start++
	}

	end := -1
	if n, ok := inlineLength(dict); ok && start+n <= len(data) && eiFollows(data, start+n) {
		end = start + n
	} else {
		end = findEI(data, start)
	}
	if end < 0 {
		p.lex.SetPos(len(data))
		return nil, fmt.Errorf("inline image at offset %d has no EI", start)
	}

	img := &InlineImage{Dict: dict, Data: bytes.Clone(data[start:end])}
	i := end
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	p.lex.SetPos(i + 2) // past "EI"
	return img, nil
}

// inlineLength computes the byte length of unfiltered inline image data.
func inlineLength(d core.Dict) (int, bool) {
	if d.Has("Filter") {
		return 0, false
	}
	w, _ := core.Number(d.Get("Width"))
	h, _ := core.Number(d.Get("Height"))
	bpc, ok := core.Number(d.Get("BitsPerComponent"))
	if !ok {
		bpc = 1
	}
	comps := 1
	if mask, _ := d.GetBool("ImageMask"); !bool(mask) {
		switch cs, _ := d.GetName("ColorSpace"); cs {
		case "DeviceRGB", "CalRGB":
			comps = 3
		case "DeviceCMYK":
			comps = 4
		}
	}
	if w <= 0 || h <= 0 {
		return 0, false
	}
	rowBytes := (int(w)*comps*int(bpc) + 7) / 8
	return rowBytes * int(h), true
}

// findEI finds the "EI" that ends inline image data: whitespace before it and
// whitespace or end of data after it.
func findEI(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > from && !isSpace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && !isSpace(data[i+2]) {
			continue
		}
		end := i
		if end > from && isSpace(data[end-1]) {
			end--
		}
		return end
	}
	return -1
}

func eiFollows(data []byte, pos int) bool {
	for pos < len(data) && isSpace(data[pos]) {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("EI"))
}

var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"I":   "Interpolate",
	"IM":  "ImageMask",
	"W":   "Width",
	"L":   "Length",
}

var inlineNames = map[core.Name]core.Name{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

func expandInlineDict(in core.Dict) core.Dict {
	out := make(core.Dict, len(in))
	for k, v := range in {
		if full, ok := inlineKeys[k]; ok {
			k = full
		}
		out[k] = expandInlineValue(v)
	}
	return out
}

func expandInlineValue(v core.Object) core.Object {
	switch t := v.(type) {
	case core.Name:
		if full, ok := inlineNames[t]; ok {
			return full
		}
	case core.Array:
		out := make(core.Array, len(t))
		for i, e := range t {
			out[i] = expandInlineValue(e)
		}
		return out
	}
	return v
}

// parseNumber accepts the malformed numbers some producers write, such as
// "--5" or "1.2.3", keeping the longest valid prefix.
func parseNumber(b []byte) (float64, bool) {
	s := string(b)
	for len(s) > 1 && (s[0] == '-' || s[0] == '+') && (s[1] == '-' || s[1] == '+') {
		s = s[1:]
	}
	for len(s) > 0 {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
		s = s[:len(s)-1]
	}
	return 0, false
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}
