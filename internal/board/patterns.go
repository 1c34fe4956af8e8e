package board

import "slices"

// Pattern names
const (
	PatternRow         = "row"
	PatternColumn      = "column"
	PatternDiagonal    = "diagonal"
	PatternFourCorners = "four-corners"
	PatternFullHouse   = "full-house"
	PatternX           = "x"
	PatternCross       = "cross"
	PatternFrame       = "frame"
	PatternOneLine     = "one-line"
	PatternTwoLines    = "two-lines"
)

var legalPatterns = map[GameType][]string{
	Ball75:  {PatternRow, PatternColumn, PatternDiagonal, PatternFourCorners, PatternFullHouse},
	Pattern: {PatternFourCorners, PatternX, PatternCross, PatternFrame, PatternFullHouse},
	Ball90:  {PatternOneLine, PatternTwoLines, PatternFullHouse},
	Ball30:  {PatternRow, PatternColumn, PatternFullHouse},
}

type checkFunc func(grid [][]int, hit func(int) bool) bool

var checks = map[string]checkFunc{
	PatternRow:         func(g [][]int, hit func(int) bool) bool { return fullRows(g, hit) >= 1 },
	PatternOneLine:     func(g [][]int, hit func(int) bool) bool { return fullLines(g, hit) >= 1 },
	PatternTwoLines:    func(g [][]int, hit func(int) bool) bool { return fullLines(g, hit) >= 2 },
	PatternColumn:      anyColumn,
	PatternDiagonal:    func(g [][]int, hit func(int) bool) bool { return covered(diagonal(g, false), hit) || covered(diagonal(g, true), hit) },
	PatternX:           func(g [][]int, hit func(int) bool) bool { return covered(diagonal(g, false), hit) && covered(diagonal(g, true), hit) },
	PatternFourCorners: fourCorners,
	PatternCross:       cross,
	PatternFrame:       frame,
	PatternFullHouse:   func(g [][]int, hit func(int) bool) bool { return covered(slices.Concat(g...), hit) },
}

// DefaultPatterns returns every pattern legal for the variant
func DefaultPatterns(t GameType) []string {
	return slices.Clone(legalPatterns[t])
}

// Legal reports whether name is a pattern of the variant
func Legal(t GameType, name string) bool {
	return slices.Contains(legalPatterns[t], name)
}

// Check reports whether the board satisfies the pattern, counting a cell as
// covered when hit returns true for its number.
func Check(b Board, name string, hit func(int) bool) (bool, error) {
	if !Legal(b.Type, name) {
		return false, ErrUnknownPattern
	}

	return checks[name](b.Grid(), hit), nil
}

// covered is true when every non-empty cell is hit and there is at least one.
func covered(cells []int, hit func(int) bool) bool {
	n := 0
	for _, c := range cells {
		if c == 0 {
			continue
		}
		if !hit(c) {
			return false
		}
		n++
	}

	return n > 0
}

func fullRows(g [][]int, hit func(int) bool) int {
	n := 0
	for _, row := range g {
		if covered(row, hit) {
			n++
		}
	}

	return n
}

// fullLines counts covered 90-ball rows. A row shorter than a full ticket
// row is not a line.
func fullLines(g [][]int, hit func(int) bool) int {
	n := 0
	for _, row := range g {
		cells := 0
		for _, c := range row {
			if c != 0 {
				cells++
			}
		}

		if cells >= Ball90RowCells && covered(row, hit) {
			n++
		}
	}

	return n
}

func column(g [][]int, c int) []int {
	out := make([]int, 0, len(g))
	for _, row := range g {
		if c < len(row) {
			out = append(out, row[c])
		}
	}

	return out
}

func anyColumn(g [][]int, hit func(int) bool) bool {
	if len(g) == 0 {
		return false
	}
	for c := range g[0] {
		if covered(column(g, c), hit) {
			return true
		}
	}

	return false
}

func diagonal(g [][]int, anti bool) []int {
	out := make([]int, 0, len(g))
	for i, row := range g {
		j := i
		if anti {
			j = len(row) - 1 - i
		}
		if j >= 0 && j < len(row) {
			out = append(out, row[j])
		}
	}

	return out
}

func fourCorners(g [][]int, hit func(int) bool) bool {
	if len(g) == 0 {
		return false
	}
	top, bottom := g[0], g[len(g)-1]

	return covered([]int{top[0], top[len(top)-1], bottom[0], bottom[len(bottom)-1]}, hit)
}

func cross(g [][]int, hit func(int) bool) bool {
	if len(g) == 0 {
		return false
	}
	mid := len(g) / 2

	return covered(g[mid], hit) && covered(column(g, len(g[mid])/2), hit)
}

func frame(g [][]int, hit func(int) bool) bool {
	if len(g) == 0 {
		return false
	}
	last := len(g[0]) - 1

	return covered(g[0], hit) &&
		covered(g[len(g)-1], hit) &&
		covered(column(g, 0), hit) &&
		covered(column(g, last), hit)
}
