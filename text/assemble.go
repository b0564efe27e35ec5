package text

import (
	"math"
	"slices"
	"strings"
)

// Assemble joins fragments into page text, one line per output line.
func Assemble(frags []Fragment) string {
	var horiz, vert []Fragment
	for _, f := range frags {
		if f.Vertical {
			vert = append(vert, f)
		} else {
			horiz = append(horiz, f)
		}
	}

	var lines []string
	for _, line := range groupLines(horiz) {
		lines = append(lines, joinLine(line))
	}
	for _, col := range groupColumns(vert) {
		var b strings.Builder
		for _, f := range col {
			b.WriteString(f.Text)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// groupLines clusters fragments whose baselines are within half a font size
// of each other. Lines come out top to bottom, each sorted left to right.
func groupLines(frags []Fragment) [][]Fragment {
	if len(frags) == 0 {
		return nil
	}
	sorted := slices.Clone(frags)
	slices.SortStableFunc(sorted, func(a, b Fragment) int {
		switch {
		case a.Y > b.Y:
			return -1
		case a.Y < b.Y:
			return 1
		}
		return 0
	})

	var lines [][]Fragment
	var cur []Fragment
	var baseY, baseSize float64
	for _, f := range sorted {
		tol := max(f.Size, baseSize) / 2
		if len(cur) > 0 && math.Abs(f.Y-baseY) <= tol {
			cur = append(cur, f)
			continue
		}
		if len(cur) > 0 {
			lines = append(lines, cur)
		}
		cur = []Fragment{f}
		baseY, baseSize = f.Y, f.Size
	}
	lines = append(lines, cur)

	for _, line := range lines {
		slices.SortStableFunc(line, func(a, b Fragment) int {
			switch {
			case a.X < b.X:
				return -1
			case a.X > b.X:
				return 1
			}
			return 0
		})
	}
	return lines
}

// joinLine concatenates a line, inserting a space where the gap between two
// fragments is at least half a space wide. A space is taken as a quarter of
// the font size.
func joinLine(line []Fragment) string {
	var b strings.Builder
	for i, f := range line {
		if i > 0 {
			prev := line[i-1]
			gap := f.X - (prev.X + prev.Width)
			space := max(prev.Size, f.Size) * 0.25
			if gap >= space*0.5 && !endsWithSpace(b.String()) && !strings.HasPrefix(f.Text, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

func endsWithSpace(s string) bool {
	return strings.HasSuffix(s, " ")
}

// groupColumns clusters vertical fragments by x. Columns are read right to
// left and each column top to bottom.
func groupColumns(frags []Fragment) [][]Fragment {
	if len(frags) == 0 {
		return nil
	}
	sorted := slices.Clone(frags)
	slices.SortStableFunc(sorted, func(a, b Fragment) int {
		switch {
		case a.X > b.X:
			return -1
		case a.X < b.X:
			return 1
		}
		return 0
	})

	var cols [][]Fragment
	var cur []Fragment
	var baseX float64
	for _, f := range sorted {
		if len(cur) > 0 && math.Abs(f.X-baseX) <= f.Size/2 {
			cur = append(cur, f)
			continue
		}
		if len(cur) > 0 {
			cols = append(cols, cur)
		}
		cur = []Fragment{f}
		baseX = f.X
	}
	cols = append(cols, cur)

	for _, col := range cols {
		slices.SortStableFunc(col, func(a, b Fragment) int {
			switch {
			case a.Y > b.Y:
				return -1
			case a.Y < b.Y:
				return 1
			}
			return 0
		})
	}
	return cols
}

func distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}
