package font

import (
	"fmt"
	"unicode/utf16"

	"github.com/tsawler/deedscan/core"
)

// codespaceRange is one begincodespacerange entry. Codes whose first bytes
// fall within the range have the range's byte length.
type codespaceRange struct {
	low, high uint32
	length    int
}

type bfRange struct {
	low, high uint32
	dst       []byte // UTF-16BE destination of low; the last byte increments
}

type cidRange struct {
	low, high uint32
	cid       int
}

// CMap maps character codes to Unicode text and, for composite fonts, to
// CIDs.
type CMap struct {
	Name     string
	UseCMap  string
	Vertical bool

	codespace []codespaceRange
	chars     map[uint32]string
	ranges    []bfRange
	cidChars  map[uint32]int
	cidRanges []cidRange
}

func newCMap() *CMap {
	return &CMap{
		chars:    make(map[uint32]string),
		cidChars: make(map[uint32]int),
	}
}

// ParseCMap parses an embedded CMap program. Unknown operators are skipped
// so a partly malformed CMap still yields the mappings it does contain.
func ParseCMap(data []byte) (*CMap, error) {
	cm := newCMap()
	lex := core.NewLexer(data)

	var operands []core.Token
	var arrays [][]core.Token
	var inArray []core.Token
	inArr := false
	var lastName string

	for guard := 0; guard < len(data)+1; guard++ {
		tok, err := lex.NextToken()
		if err != nil {
			continue
		}
		if tok.Type == core.TokenEOF {
			break
		}

		switch tok.Type {
		case core.TokenArrayStart:
			inArr = true
			inArray = nil
			continue
		case core.TokenArrayEnd:
			inArr = false
			arrays = append(arrays, inArray)
			// A marker keeps the array's position among the operands.
			operands = append(operands, core.Token{Type: core.TokenArrayStart, Pos: len(arrays) - 1})
			continue
		}
		if inArr {
			inArray = append(inArray, tok)
			continue
		}

		if tok.Type != core.TokenKeyword {
			if tok.Type == core.TokenName {
				lastName = string(tok.Value)
			}
			operands = append(operands, tok)
			continue
		}

		switch string(tok.Value) {
		case "endcodespacerange":
			cm.addCodespace(operands)
		case "endbfchar":
			cm.addBFChars(operands)
		case "endbfrange":
			cm.addBFRanges(operands, arrays)
		case "endcidchar":
			cm.addCIDChars(operands)
		case "endcidrange":
			cm.addCIDRanges(operands)
		case "usecmap":
			cm.UseCMap = lastName
		case "def":
			if len(operands) >= 2 && operands[0].Type == core.TokenName {
				switch string(operands[0].Value) {
				case "CMapName":
					if operands[1].Type == core.TokenName {
						cm.Name = string(operands[1].Value)
					}
				case "WMode":
					cm.Vertical = string(operands[1].Value) == "1"
				}
			}
		}
		operands = operands[:0]
		arrays = arrays[:0]
	}

	if len(cm.chars) == 0 && len(cm.ranges) == 0 && len(cm.cidChars) == 0 &&
		len(cm.cidRanges) == 0 && len(cm.codespace) == 0 && cm.UseCMap == "" {
		return nil, fmt.Errorf("cmap has no mappings")
	}
	return cm, nil
}

func codeOf(tok core.Token) (uint32, int, bool) {
	if tok.Type != core.TokenHexString && tok.Type != core.TokenString {
		return 0, 0, false
	}
	var v uint32
	for _, b := range tok.Value {
		v = v<<8 | uint32(b)
	}
	return v, len(tok.Value), true
}

func intOf(tok core.Token) (int, bool) {
	if tok.Type != core.TokenInteger {
		return 0, false
	}
	n := 0
	for _, b := range tok.Value {
		if b < '0' || b > '9' {
			return 0, false
		}
		n = n*10 + int(b-'0')
	}
	return n, true
}

func (cm *CMap) addCodespace(ops []core.Token) {
	for i := 0; i+1 < len(ops); i += 2 {
		lo, n, ok1 := codeOf(ops[i])
		hi, _, ok2 := codeOf(ops[i+1])
		if ok1 && ok2 && n > 0 {
			cm.codespace = append(cm.codespace, codespaceRange{low: lo, high: hi, length: n})
		}
	}
}

func (cm *CMap) addBFChars(ops []core.Token) {
	for i := 0; i+1 < len(ops); i += 2 {
		src, _, ok := codeOf(ops[i])
		if !ok {
			continue
		}
		switch ops[i+1].Type {
		case core.TokenHexString, core.TokenString:
			cm.chars[src] = utf16BEString(ops[i+1].Value)
		case core.TokenName:
			if r, ok := glyphRune(string(ops[i+1].Value)); ok {
				cm.chars[src] = string(r)
			}
		}
	}
}

func (cm *CMap) addBFRanges(ops []core.Token, arrays [][]core.Token) {
	for i := 0; i+2 < len(ops); i += 3 {
		lo, _, ok1 := codeOf(ops[i])
		hi, _, ok2 := codeOf(ops[i+1])
		if !ok1 || !ok2 || hi < lo {
			continue
		}
		dst := ops[i+2]
		if dst.Type == core.TokenArrayStart {
			// Array form: one destination per code.
			arr := arrays[dst.Pos]
			for j, d := range arr {
				if lo+uint32(j) > hi {
					break
				}
				cm.chars[lo+uint32(j)] = utf16BEString(d.Value)
			}
			continue
		}
		if dst.Type == core.TokenHexString && len(dst.Value) > 0 {
			cm.ranges = append(cm.ranges, bfRange{low: lo, high: hi, dst: dst.Value})
		}
	}
}

func (cm *CMap) addCIDChars(ops []core.Token) {
	for i := 0; i+1 < len(ops); i += 2 {
		src, _, ok1 := codeOf(ops[i])
		cid, ok2 := intOf(ops[i+1])
		if ok1 && ok2 {
			cm.cidChars[src] = cid
		}
	}
}

func (cm *CMap) addCIDRanges(ops []core.Token) {
	for i := 0; i+2 < len(ops); i += 3 {
		lo, _, ok1 := codeOf(ops[i])
		hi, _, ok2 := codeOf(ops[i+1])
		cid, ok3 := intOf(ops[i+2])
		if ok1 && ok2 && ok3 && hi >= lo {
			cm.cidRanges = append(cm.cidRanges, cidRange{low: lo, high: hi, cid: cid})
		}
	}
}

// Lookup returns the Unicode text for a code.
func (cm *CMap) Lookup(code uint32) (string, bool) {
	if s, ok := cm.chars[code]; ok {
		return s, true
	}
	for _, r := range cm.ranges {
		if code < r.low || code > r.high {
			continue
		}
		dst := make([]byte, len(r.dst))
		copy(dst, r.dst)
		// Add the offset to the destination as a big-endian number.
		carry := code - r.low
		for i := len(dst) - 1; i >= 0 && carry > 0; i-- {
			sum := uint32(dst[i]) + carry
			dst[i] = byte(sum)
			carry = sum >> 8
		}
		return utf16BEString(dst), true
	}
	return "", false
}

// CID maps a code to a CID. Codes outside every cid mapping map to
// themselves, which is the Identity behaviour.
func (cm *CMap) CID(code uint32) int {
	if cid, ok := cm.cidChars[code]; ok {
		return cid
	}
	for _, r := range cm.cidRanges {
		if code >= r.low && code <= r.high {
			return r.cid + int(code-r.low)
		}
	}
	return int(code)
}

// HasCodespace reports whether the CMap declares its code lengths.
func (cm *CMap) HasCodespace() bool { return len(cm.codespace) > 0 }

// NextCode splits the next character code off data using the codespace
// ranges and returns the code with its byte length. Without a matching range
// it falls back to fallbackLen bytes.
func (cm *CMap) NextCode(data []byte, fallbackLen int) (uint32, int) {
	for n := 1; n <= 4 && n <= len(data); n++ {
		var code uint32
		for _, b := range data[:n] {
			code = code<<8 | uint32(b)
		}
		for _, r := range cm.codespace {
			if r.length == n && code >= r.low && code <= r.high {
				return code, n
			}
		}
	}
	n := min(fallbackLen, len(data))
	var code uint32
	for _, b := range data[:n] {
		code = code<<8 | uint32(b)
	}
	return code, n
}

// utf16BEString decodes UTF-16BE bytes. An odd trailing byte is taken as a
// single code unit.
func utf16BEString(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	units := make([]uint16, 0, (len(b)+1)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}
