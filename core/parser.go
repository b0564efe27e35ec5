package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// ReferenceResolver resolves indirect references while parsing. The parser
// uses it for stream /Length values given as "n g R".
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from the tokens of a Lexer.
type Parser struct {
	lexer    *Lexer
	pending  []Token // lookahead, oldest first
	resolver ReferenceResolver
}

// NewParser returns a parser positioned at the start of data.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// SetReferenceResolver installs the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetPos moves the parser to offset and drops any lookahead.
func (p *Parser) SetPos(offset int) {
	p.pending = p.pending[:0]
	p.lexer.SetPos(offset)
}

// Pos returns the offset of the next unconsumed token.
func (p *Parser) Pos() int {
	if len(p.pending) > 0 {
		return p.pending[0].Pos
	}
	return p.lexer.Pos()
}

func (p *Parser) next() (Token, error) {
	if len(p.pending) > 0 {
		tok := p.pending[0]
		p.pending = p.pending[1:]
		return tok, nil
	}
	return p.lexer.NextToken()
}

// peek returns the n-th upcoming token (0-based) without consuming it.
func (p *Parser) peek(n int) (Token, error) {
	for len(p.pending) <= n {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		p.pending = append(p.pending, tok)
	}
	return p.pending[n], nil
}

// ParseObject parses the next direct object. Streams are only recognised by
// ParseIndirectObject.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of data at offset %d", tok.Pos)
	case TokenInteger:
		return p.parseIntegerOrRef(tok)
	case TokenReal:
		return parseReal(tok.Value), nil
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	case TokenKeyword:
		switch string(tok.Value) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	}
	return nil, fmt.Errorf("unexpected %s token at offset %d", tok.Type, tok.Pos)
}

// parseIntegerOrRef looks ahead for "g R" after an integer.
func (p *Parser) parseIntegerOrRef(tok Token) (Object, error) {
	n := parseInt(tok.Value)

	gen, err := p.peek(0)
	if err != nil || gen.Type != TokenInteger {
		return Int(n), nil
	}
	r, err := p.peek(1)
	if err != nil || r.Type != TokenKeyword || string(r.Value) != "R" {
		return Int(n), nil
	}
	p.pending = p.pending[2:]
	return IndirectRef{Number: int(n), Generation: int(parseInt(gen.Value))}, nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array")
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key must be a name, got %s at offset %d", tok.Type, tok.Pos)
		}

		key := string(tok.Value)
		valTok, err := p.next()
		if err != nil {
			return nil, err
		}
		if valTok.Type == TokenDictEnd {
			// "/Key >>": treat the dangling key as null.
			return dict, nil
		}
		val, err := p.parseFrom(valTok)
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		if _, isNull := val.(Null); !isNull {
			dict[key] = val
		}
	}
}

// ParseIndirectObject parses "n g obj <object> endobj", including a stream
// body when the object is a dictionary followed by "stream". A missing
// endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok, err := p.next()
	if err != nil {
		return nil, err
	}
	genTok, err := p.next()
	if err != nil {
		return nil, err
	}
	objTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger ||
		objTok.Type != TokenKeyword || string(objTok.Value) != "obj" {
		return nil, fmt.Errorf("expected 'n g obj' at offset %d", numTok.Pos)
	}
	ref := IndirectRef{Number: int(parseInt(numTok.Value)), Generation: int(parseInt(genTok.Value))}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", ref.Number, ref.Generation, err)
	}

	tok, err := p.peek(0)
	if err == nil && tok.Type == TokenKeyword {
		switch string(tok.Value) {
		case "stream":
			dict, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("object %d %d: stream without dictionary", ref.Number, ref.Generation)
			}
			p.pending = p.pending[:0]
			stream, err := p.parseStream(dict, tok.Pos+len("stream"))
			if err != nil {
				return nil, fmt.Errorf("object %d %d: %w", ref.Number, ref.Generation, err)
			}
			obj = stream
			p.skipKeyword("endobj")
		case "endobj":
			p.next()
		}
	}

	return &IndirectObject{Ref: ref, Object: obj}, nil
}

// parseStream reads the stream body that begins right after the "stream"
// keyword at offset start.
func (p *Parser) parseStream(dict Dict, start int) (*Stream, error) {
	data := p.lexer.Data()
	// The keyword is followed by CRLF or LF; a lone CR is accepted too.
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	length := p.streamLength(dict)
	end := -1
	if length >= 0 && start+length <= len(data) && endstreamFollows(data, start+length) {
		end = start + length
	}
	if end < 0 {
		// Missing or wrong /Length: scan for the terminator.
		idx := bytes.Index(data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("endstream not found")
		}
		end = start + idx
		if end > start && data[end-1] == '\n' {
			end--
		}
		if end > start && data[end-1] == '\r' {
			end--
		}
	}

	body := make([]byte, end-start)
	copy(body, data[start:end])

	after := end + bytes.Index(data[end:], []byte("endstream")) + len("endstream")
	p.lexer.SetPos(after)
	return &Stream{Dict: dict, Data: body}, nil
}

func (p *Parser) streamLength(dict Dict) int {
	switch v := dict["Length"].(type) {
	case Int:
		return int(v)
	case IndirectRef:
		if p.resolver == nil {
			return -1
		}
		obj, err := p.resolver.ResolveReference(v)
		if err != nil {
			return -1
		}
		if n, ok := obj.(Int); ok {
			return int(n)
		}
	}
	return -1
}

func (p *Parser) skipKeyword(kw string) {
	tok, err := p.peek(0)
	if err == nil && tok.Type == TokenKeyword && string(tok.Value) == kw {
		p.next()
	}
}

func endstreamFollows(data []byte, pos int) bool {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("endstream"))
}

func parseInt(b []byte) int64 {
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		return n
	}
	return int64(parseReal(b))
}

// parseReal parses a number leniently: stray signs after the first byte are
// dropped and unparseable input yields zero.
func parseReal(b []byte) Real {
	if f, err := strconv.ParseFloat(string(b), 64); err == nil {
		return Real(f)
	}
	clean := make([]byte, 0, len(b))
	for i, c := range b {
		if (c == '-' || c == '+') && i > 0 {
			continue
		}
		clean = append(clean, c)
	}
	f, _ := strconv.ParseFloat(string(clean), 64)
	return Real(f)
}
