package graphicsstate

import (
	"github.com/tsawler/deedscan/contentstream"
	"github.com/tsawler/deedscan/core"
)

// TextState holds the text parameters set by the Tc, Tw, Tz, TL, Tf, Tr and
// Ts operators and the two text matrices.
type TextState struct {
	FontName string
	FontSize float64

	CharSpacing float64
	WordSpacing float64
	// Scale is the horizontal scaling as a fraction (Tz 100 is 1.0).
	Scale   float64
	Leading float64
	Render  int
	Rise    float64

	Matrix     Matrix
	LineMatrix Matrix
}

// GraphicsState is the current state plus the stack saved by q.
type GraphicsState struct {
	CTM  Matrix
	Text TextState

	stack []saved
}

type saved struct {
	ctm  Matrix
	text TextState
}

// New returns a state with the identity CTM and default text parameters.
func New() *GraphicsState {
	return &GraphicsState{
		CTM: Identity(),
		Text: TextState{
			Scale:      1,
			Matrix:     Identity(),
			LineMatrix: Identity(),
		},
	}
}

// Save pushes the state (q).
func (gs *GraphicsState) Save() {
	gs.stack = append(gs.stack, saved{ctm: gs.CTM, text: gs.Text})
}

// Restore pops the state (Q). An unbalanced Q is ignored and reported as
// false.
func (gs *GraphicsState) Restore() bool {
	if len(gs.stack) == 0 {
		return false
	}
	s := gs.stack[len(gs.stack)-1]
	gs.stack = gs.stack[:len(gs.stack)-1]
	gs.CTM, gs.Text = s.ctm, s.text
	return true
}

// Depth is the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Concat pre-multiplies the CTM (cm).
func (gs *GraphicsState) Concat(m Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// BeginText resets both text matrices (BT).
func (gs *GraphicsState) BeginText() {
	gs.Text.Matrix = Identity()
	gs.Text.LineMatrix = Identity()
}

// MoveText starts a new line offset from the start of the current one (Td).
func (gs *GraphicsState) MoveText(tx, ty float64) {
	gs.Text.LineMatrix = Translation(tx, ty).Multiply(gs.Text.LineMatrix)
	gs.Text.Matrix = gs.Text.LineMatrix
}

// NextLine moves down by the leading (T*).
func (gs *GraphicsState) NextLine() {
	gs.MoveText(0, -gs.Text.Leading)
}

// SetTextMatrix replaces both text matrices (Tm).
func (gs *GraphicsState) SetTextMatrix(m Matrix) {
	gs.Text.Matrix = m
	gs.Text.LineMatrix = m
}

// Advance moves the text matrix along the baseline by (tx, ty) in
// unscaled text space.
func (gs *GraphicsState) Advance(tx, ty float64) {
	gs.Text.Matrix = Translation(tx, ty).Multiply(gs.Text.Matrix)
}

// RenderMatrix is the text rendering matrix: text space to device space.
func (gs *GraphicsState) RenderMatrix() Matrix {
	t := gs.Text
	m := Matrix{t.FontSize * t.Scale, 0, 0, t.FontSize, 0, t.Rise}
	return m.Multiply(t.Matrix).Multiply(gs.CTM)
}

// Apply updates the state for graphics state, text state and text
// positioning operators. It reports whether op was one of them; text
// showing operators are left to the caller.
func (gs *GraphicsState) Apply(op contentstream.Operation) bool {
	switch op.Operator {
	case "q":
		gs.Save()
	case "Q":
		gs.Restore()
	case "cm":
		if m, ok := matrixOperands(op); ok {
			gs.Concat(m)
		}
	case "BT":
		gs.BeginText()
	case "ET":
	case "Tf":
		if len(op.Operands) == 2 {
			if name, ok := op.Operands[0].(core.Name); ok {
				gs.Text.FontName = string(name)
			}
			gs.Text.FontSize = op.Number(1)
		}
	case "Tc":
		gs.Text.CharSpacing = op.Number(0)
	case "Tw":
		gs.Text.WordSpacing = op.Number(0)
	case "Tz":
		gs.Text.Scale = op.Number(0) / 100
	case "TL":
		gs.Text.Leading = op.Number(0)
	case "Tr":
		gs.Text.Render = int(op.Number(0))
	case "Ts":
		gs.Text.Rise = op.Number(0)
	case "Td":
		gs.MoveText(op.Number(0), op.Number(1))
	case "TD":
		gs.Text.Leading = -op.Number(1)
		gs.MoveText(op.Number(0), op.Number(1))
	case "Tm":
		if m, ok := matrixOperands(op); ok {
			gs.SetTextMatrix(m)
		}
	case "T*":
		gs.NextLine()
	default:
		return false
	}
	return true
}

func matrixOperands(op contentstream.Operation) (Matrix, bool) {
	if len(op.Operands) != 6 {
		return Matrix{}, false
	}
	var m Matrix
	for i := range m {
		v, ok := core.Number(op.Operands[i])
		if !ok {
			return Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}
