// Package board generates bingo boards and number draws for each supported
// game variant, and checks boards against named win patterns.
package board

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
)

// BoardError is a custom error type for board errors
type BoardError string

// Error implements the error interface
func (e BoardError) Error() string {
	return string(e)
}

const (
	ErrInvalidGameType BoardError = "unsupported game type"
	ErrPoolExhausted   BoardError = "draw pool exhausted"
	ErrUnknownPattern  BoardError = "unknown win pattern"
)

// GameType identifies a bingo variant
type GameType string

const (
	// Ball75 is American bingo: five columns of five, B-I-N-G-O labels
	Ball75 GameType = "75-ball"

	// Ball90 is British housie: nine columns of one to three numbers
	Ball90 GameType = "90-ball"

	// Ball30 is speed bingo: nine numbers on a 3x3 card
	Ball30 GameType = "30-ball"

	// Pattern uses the 75-ball card but only shape patterns win
	Pattern GameType = "pattern"
)

// GameTypes lists every supported variant
var GameTypes = []GameType{Ball75, Ball90, Ball30, Pattern}

// ParseGameType validates a user-supplied variant name
func ParseGameType(s string) (GameType, error) {
	t := GameType(s)
	if !slices.Contains(GameTypes, t) {
		return "", ErrInvalidGameType
	}

	return t, nil
}

// Max is the highest number drawn for the variant; draws cover 1..Max.
func (t GameType) Max() int {
	switch t {
	case Ball90:
		return 90
	case Ball30:
		return 30
	default:
		return 75
	}
}

const letters = "BINGO"

// Label is how a called number is announced
func Label(t GameType, n int) string {
	if t != Ball75 && t != Pattern {
		return strconv.Itoa(n)
	}

	i := min((n-1)/15, len(letters)-1)

	return string(letters[i]) + "-" + strconv.Itoa(n)
}

// Board is one player's card. Columns hold ascending numbers; a 30-ball
// board is a single column of nine. A 90-ball column always has three
// cells, top to bottom, with 0 for a blank.
type Board struct {
	Type    GameType `json:"type"`
	Columns [][]int  `json:"columns"`
}

// Numbers returns every number on the board
func (b Board) Numbers() []int {
	var out []int
	for _, col := range b.Columns {
		for _, n := range col {
			if n != 0 {
				out = append(out, n)
			}
		}
	}

	return out
}

// Grid lays the board out as rows of cells, 0 marking an empty cell.
func (b Board) Grid() [][]int {
	if b.Type == Ball30 {
		nums := b.Numbers()
		grid := make([][]int, 0, 3)
		for r := 0; r*3 < len(nums); r++ {
			grid = append(grid, nums[r*3:min(r*3+3, len(nums))])
		}

		return grid
	}

	rows := 0
	for _, col := range b.Columns {
		rows = max(rows, len(col))
	}
	if b.Type == Ball90 {
		rows = 3
	}

	grid := make([][]int, rows)
	for r := range grid {
		grid[r] = make([]int, len(b.Columns))
		for c, col := range b.Columns {
			if r < len(col) {
				grid[r][c] = col[r]
			}
		}
	}

	return grid
}

// Call is a drawn number with its announcement label
type Call struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
}

// Generator produces boards and draws. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Generator with a random seed
func New() *Generator {
	return NewSeeded(rand.Uint64(), rand.Uint64())
}

// NewSeeded returns a deterministic Generator
func NewSeeded(seed1, seed2 uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Board generates a fresh card for the variant
func (g *Generator) Board(t GameType) (Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := Board{Type: t}

	switch t {
	case Ball75, Pattern:
		for c := range 5 {
			b.Columns = append(b.Columns, g.sampleLocked(c*15+1, 15, 5))
		}
	case Ball90:
		layout := g.layout90Locked()
		for c := range 9 {
			k := 0
			for r := range 3 {
				if layout[r][c] {
					k++
				}
			}

			nums := g.sampleLocked(c*10+1, 10, k)
			col := make([]int, 3)
			for r := range 3 {
				if layout[r][c] {
					col[r], nums = nums[0], nums[1:]
				}
			}
			b.Columns = append(b.Columns, col)
		}
	case Ball30:
		b.Columns = [][]int{g.sampleLocked(1, 30, 9)}
	default:
		return Board{}, ErrInvalidGameType
	}

	return b, nil
}

// Ball90RowCells is how many numbers each row of a 90-ball ticket holds.
const Ball90RowCells = 5

// layout90Locked picks which cells of a 3x9 ticket hold numbers: five per
// row and at least one per column.
func (g *Generator) layout90Locked() [3][9]bool {
	for {
		var layout [3][9]bool
		for r := range 3 {
			for _, c := range g.rng.Perm(9)[:Ball90RowCells] {
				layout[r][c] = true
			}
		}

		ok := true
		for c := range 9 {
			if !layout[0][c] && !layout[1][c] && !layout[2][c] {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
}

// sampleLocked draws k distinct numbers from [lo, lo+width) in ascending order.
func (g *Generator) sampleLocked(lo, width, k int) []int {
	out := make([]int, 0, k)
	for _, i := range g.rng.Perm(width)[:k] {
		out = append(out, lo+i)
	}
	slices.Sort(out)

	return out
}

// Draw picks the next number from the variant range minus the numbers
// already called.
func (g *Generator) Draw(t GameType, called []int) (Call, error) {
	if !slices.Contains(GameTypes, t) {
		return Call{}, ErrInvalidGameType
	}

	seen := make(map[int]bool, len(called))
	for _, n := range called {
		seen[n] = true
	}

	pool := make([]int, 0, t.Max())
	for n := 1; n <= t.Max(); n++ {
		if !seen[n] {
			pool = append(pool, n)
		}
	}

	if len(pool) == 0 {
		return Call{}, ErrPoolExhausted
	}

	g.mu.Lock()
	n := pool[g.rng.IntN(len(pool))]
	g.mu.Unlock()

	return Call{Number: n, Label: Label(t, n)}, nil
}
