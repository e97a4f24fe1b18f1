package board

// Reveal opens the cell at (x, y) and returns every cell it revealed,
// in discovery order. A bomb target is revealed alone; elimination
// bookkeeping belongs to the caller. A zero-adjacency target cascades:
// the flood fill walks an explicit work list with the fixed neighbor
// order, so the returned ordering is reproducible. Revealing an already
// revealed cell is a no-op returning nil.
func (b *Board) Reveal(x, y int) []*Cell {
	if !b.inBounds(x, y) {
		return nil
	}
	start := b.at(x, y)
	if start.Revealed {
		return nil
	}

	if start.Bomb {
		b.reveal(start)
		return []*Cell{start}
	}

	var opened []*Cell
	queue := []*Cell{start}
	enqueued := map[*Cell]bool{start: true}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c.Revealed {
			continue
		}
		b.reveal(c)
		opened = append(opened, c)
		if c.Adjacent != 0 {
			continue // nonzero adjacency bounds the cascade
		}
		for _, d := range neighborOffsets {
			nx, ny := c.X+d[0], c.Y+d[1]
			if !b.inBounds(nx, ny) {
				continue
			}
			n := b.at(nx, ny)
			if !n.Revealed && !n.Bomb && !enqueued[n] {
				enqueued[n] = true
				queue = append(queue, n)
			}
		}
	}
	return opened
}

func (b *Board) reveal(c *Cell) {
	c.Revealed = true
	c.flaggedBy = nil // a revealed cell can never be flagged again
	if !c.Bomb {
		b.revealed++
	}
}

// ToggleFlag flips agentID's private flag on the cell at (x, y) and
// returns the resulting membership. Flags on revealed cells are
// rejected. Flags carry no game-mechanical effect.
func (b *Board) ToggleFlag(x, y int, agentID string) (bool, error) {
	c, err := b.Cell(x, y)
	if err != nil {
		return false, err
	}
	if c.Revealed {
		return false, ErrCellRevealed
	}
	if c.flaggedBy == nil {
		c.flaggedBy = make(map[string]bool)
	}
	if c.flaggedBy[agentID] {
		delete(c.flaggedBy, agentID)
		return false, nil
	}
	c.flaggedBy[agentID] = true
	return true, nil
}
