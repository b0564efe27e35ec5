package core

import (
	"bytes"
	"fmt"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenKeyword
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

var tokenTypeNames = [...]string{
	TokenEOF:        "EOF",
	TokenKeyword:    "Keyword",
	TokenInteger:    "Integer",
	TokenReal:       "Real",
	TokenString:     "String",
	TokenHexString:  "HexString",
	TokenName:       "Name",
	TokenArrayStart: "ArrayStart",
	TokenArrayEnd:   "ArrayEnd",
	TokenDictStart:  "DictStart",
	TokenDictEnd:    "DictEnd",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "Unknown"
}

// Token is one lexical unit. For strings and names Value holds the decoded
// bytes; for everything else it is the raw text.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
}

// Lexer tokenizes PDF syntax from a byte slice. Comments and whitespace are
// skipped.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer returns a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int { return l.pos }

// SetPos moves the lexer to offset. Offsets past the end are clamped.
func (l *Lexer) SetPos(offset int) {
	switch {
	case offset < 0:
		l.pos = 0
	case offset > len(l.data):
		l.pos = len(l.data)
	default:
		l.pos = offset
	}
}

// Data returns the underlying buffer.
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token. At the end of input it returns a token of
// type TokenEOF and a nil error.
func (l *Lexer) NextToken() (Token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]
	switch b {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.peekAt(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		l.pos++
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case '/':
		return l.readName(), nil
	case '{', '}':
		// PostScript calculator braces only appear in function streams.
		l.pos++
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
	case ')':
		l.pos++
		return Token{}, fmt.Errorf("unbalanced ')' at offset %d", start)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber(), nil
	}
	return l.readKeyword(), nil
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// readString decodes a literal string, handling nested parentheses, escape
// sequences, octal codes and line continuations.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1

	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(b)
		case '\\':
			l.readEscape(&buf)
		case '\r':
			// EOL in a literal string reads as a single newline.
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		default:
			buf.WriteByte(b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string starting at offset %d", start)
}

func (l *Lexer) readEscape(buf *bytes.Buffer) {
	if l.pos >= len(l.data) {
		return
	}
	b := l.data[l.pos]
	l.pos++
	switch b {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '(', ')', '\\':
		buf.WriteByte(b)
	case '\r':
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
	default:
		if !isOctalDigit(b) {
			// Unknown escapes drop the backslash.
			buf.WriteByte(b)
			return
		}
		v := int(b - '0')
		for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
			v = v*8 + int(l.data[l.pos]-'0')
			l.pos++
		}
		buf.WriteByte(byte(v))
	}
}

func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // <
	var out []byte
	var hi byte
	half := false

	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return Token{Type: TokenHexString, Value: out, Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return Token{}, fmt.Errorf("invalid hex digit %q at offset %d", b, l.pos-1)
		}
		if half {
			out = append(out, hi<<4|hexValue(b))
			half = false
		} else {
			hi = hexValue(b)
			half = true
		}
	}
	return Token{}, fmt.Errorf("unterminated hex string starting at offset %d", start)
}

// readName decodes a name, resolving #xx escapes. The returned value has no
// leading slash.
func (l *Lexer) readName() Token {
	start := l.pos
	l.pos++ // /
	var out []byte
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		if b == '#' && l.pos+2 < len(l.data) && isHexDigit(l.data[l.pos+1]) && isHexDigit(l.data[l.pos+2]) {
			out = append(out, hexValue(l.data[l.pos+1])<<4|hexValue(l.data[l.pos+2]))
			l.pos += 3
			continue
		}
		out = append(out, b)
		l.pos++
	}
	return Token{Type: TokenName, Value: out, Pos: start}
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	isReal := false
	if b := l.data[l.pos]; b == '-' || b == '+' {
		l.pos++
	}
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b == '.' {
			isReal = true
		} else if !isDigit(b) && b != '-' {
			// Some writers emit "0-12"; stray signs stay in the token and
			// are dropped by the parser.
			break
		}
		l.pos++
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return Token{Type: typ, Value: l.data[start:l.pos], Pos: start}
}

func (l *Lexer) readKeyword() Token {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
