// Package board holds the minefield model: seeded generation, the reveal
// cascade, and per-agent flag bookkeeping. A Board is a pure function of
// (seed material, size, bomb count), see Generate and Verify.
package board

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/happybomber/arena-server/internal/rng"
)

var Log = logrus.New()

var (
	ErrBadDimensions = errors.New("board: grid size must be positive")
	ErrTooManyBombs  = errors.New("board: bomb count must be less than cell count")
	ErrOutOfBounds   = errors.New("board: coordinates out of bounds")
	ErrCellRevealed  = errors.New("board: cell is already revealed")
)

// bombAdjacent is the sentinel adjacency value carried by bomb cells.
// It is never read for game logic.
const bombAdjacent = -1

type Cell struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Bomb     bool `json:"bomb"`
	Adjacent int  `json:"adjacent"`
	Revealed bool `json:"revealed"`

	// flaggedBy is private per agent; it is never serialized and never
	// visible to other agents.
	flaggedBy map[string]bool
}

// FlaggedBy reports whether agentID has a flag on this cell.
func (c *Cell) FlaggedBy(agentID string) bool {
	return c.flaggedBy[agentID]
}

type Board struct {
	Size      int
	BombCount int
	cells     []Cell
	revealed  int
}

// neighborOffsets is the fixed neighbor iteration order. Cascade
// discovery order, and therefore round-result cell ordering, depends on
// it staying fixed.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Generate builds the board for the given seed material. Identical
// inputs always produce an identical board: the seed is reduced to a
// 32-bit integer, a Fisher-Yates shuffle of the flat index space is
// driven by the seeded float stream, and the first BombCount shuffled
// indices become bombs. Adjacency counts are computed once and never
// recomputed.
func Generate(seedMaterial string, size, bombCount int) (*Board, error) {
	if size <= 0 {
		return nil, ErrBadDimensions
	}
	if bombCount < 0 || bombCount >= size*size {
		return nil, fmt.Errorf("%w: %d bombs on %dx%d", ErrTooManyBombs, bombCount, size, size)
	}

	b := &Board{
		Size:      size,
		BombCount: bombCount,
		cells:     make([]Cell, size*size),
	}
	for i := range b.cells {
		b.cells[i] = Cell{X: i % size, Y: i / size}
	}

	perm := rng.FromMaterial(seedMaterial).Shuffle(size * size)
	for _, i := range perm[:bombCount] {
		b.cells[i].Bomb = true
		b.cells[i].Adjacent = bombAdjacent
	}

	for i := range b.cells {
		if b.cells[i].Bomb {
			continue
		}
		n := 0
		for _, d := range neighborOffsets {
			x, y := b.cells[i].X+d[0], b.cells[i].Y+d[1]
			if b.inBounds(x, y) && b.at(x, y).Bomb {
				n++
			}
		}
		b.cells[i].Adjacent = n
	}

	Log.WithFields(logrus.Fields{
		"size":  size,
		"bombs": bombCount,
	}).Debug("board generated")

	return b, nil
}

// Verify reproduces the bomb placement for a revealed seed without
// building a playable board. It returns the flat bomb indices in
// ascending order, which is the verification contract of a settled match.
func Verify(seedMaterial string, size, bombCount int) ([]int, error) {
	if size <= 0 {
		return nil, ErrBadDimensions
	}
	if bombCount < 0 || bombCount >= size*size {
		return nil, ErrTooManyBombs
	}
	perm := rng.FromMaterial(seedMaterial).Shuffle(size * size)
	bombs := make([]int, bombCount)
	copy(bombs, perm[:bombCount])
	sort.Ints(bombs)
	return bombs, nil
}

func (b *Board) inBounds(x, y int) bool {
	return 0 <= x && x < b.Size && 0 <= y && y < b.Size
}

func (b *Board) at(x, y int) *Cell {
	return &b.cells[y*b.Size+x]
}

// Cell returns the cell at (x, y) or an error when out of bounds.
func (b *Board) Cell(x, y int) (*Cell, error) {
	if !b.inBounds(x, y) {
		return nil, fmt.Errorf("%w: %d:%d", ErrOutOfBounds, x, y)
	}
	return b.at(x, y), nil
}

// MustCell returns the cell at (x, y), panicking when out of bounds.
// For coordinates already validated at an earlier boundary.
func (b *Board) MustCell(x, y int) *Cell {
	if !b.inBounds(x, y) {
		panic(fmt.Sprintf("board: coordinates out of bounds: %d:%d", x, y))
	}
	return b.at(x, y)
}

// Cells exposes the flat row-major cell slice.
func (b *Board) Cells() []Cell {
	return b.cells
}

// BombIndices returns the flat indices of all bombs in ascending order.
func (b *Board) BombIndices() []int {
	var bombs []int
	for i := range b.cells {
		if b.cells[i].Bomb {
			bombs = append(bombs, i)
		}
	}
	return bombs
}

// HiddenSafeCells lists unrevealed non-bomb cells in row-major order.
func (b *Board) HiddenSafeCells() []*Cell {
	var hidden []*Cell
	for i := range b.cells {
		if !b.cells[i].Revealed && !b.cells[i].Bomb {
			hidden = append(hidden, &b.cells[i])
		}
	}
	return hidden
}

// HiddenCells lists all unrevealed cells in row-major order.
func (b *Board) HiddenCells() []*Cell {
	var hidden []*Cell
	for i := range b.cells {
		if !b.cells[i].Revealed {
			hidden = append(hidden, &b.cells[i])
		}
	}
	return hidden
}

// Cleared reports whether every non-bomb cell has been revealed.
func (b *Board) Cleared() bool {
	return b.revealed == len(b.cells)-b.BombCount
}
