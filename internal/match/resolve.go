package match

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/happybomber/arena-server/internal/rng"
)

// ResolveRound resolves the current round as one atomic batch: fallback
// synthesis for silent agents, the reveal pass, the flag pass, history
// append, win evaluation, buffer reset. Returns (nil, nil) when the
// match is not active, so a late timer firing after settlement is
// harmless.
//
// Fallback moves are drawn from an RNG derived from the board seed and
// the round number, never from ambient entropy, so a full match replay
// from (seed, submitted moves) reproduces every synthesized move too.
func (m *Match) ResolveRound(now time.Time) (*RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusActive {
		return nil, nil
	}

	m.synthesizeFallbacks(now)

	result := RoundResult{Round: m.round}

	// Reveal pass, roster order. An agent eliminated here keeps its slot
	// in the roster; only its Alive flag drops.
	var lastRevealer string
	for _, a := range m.roster {
		move, ok := m.pending[a.ID]
		if !ok {
			continue
		}
		result.Moves = append(result.Moves, *move)
		if move.Action != ActionReveal {
			continue
		}
		target := m.board.MustCell(move.X, move.Y)
		if target.Revealed {
			continue // opened earlier this pass, move is spent
		}
		opened := m.board.Reveal(move.X, move.Y)
		for _, c := range opened {
			result.Revealed = append(result.Revealed, RevealedCell{
				X:        c.X,
				Y:        c.Y,
				Bomb:     c.Bomb,
				Adjacent: c.Adjacent,
			})
		}
		if target.Bomb {
			a.Alive = false
			result.Eliminated = append(result.Eliminated, a.ID)
			continue
		}
		lastRevealer = a.ID
	}

	// Flag pass. Flags on cells the reveal pass just opened are dropped.
	for _, a := range m.roster {
		move, ok := m.pending[a.ID]
		if !ok || move.Action != ActionFlag {
			continue
		}
		if m.board.MustCell(move.X, move.Y).Revealed {
			continue
		}
		// in bounds and unrevealed, the toggle cannot fail
		m.board.ToggleFlag(move.X, move.Y, a.ID)
	}

	m.history = append(m.history, result)
	m.evaluateOutcome(&result, lastRevealer, now)
	m.pending = make(map[string]*Move)

	Log.WithFields(logrus.Fields{
		"match":      m.id,
		"round":      result.Round,
		"moves":      len(result.Moves),
		"eliminated": len(result.Eliminated),
		"status":     m.status.String(),
	}).Info("round resolved")

	return &result, nil
}

// synthesizeFallbacks buffers a reveal move for every alive agent that
// stayed silent this round. Target preference: a hidden safe cell, then
// any hidden cell. An agent is skipped only when the board has no hidden
// cells left at all.
func (m *Match) synthesizeFallbacks(now time.Time) {
	r := rng.FromMaterial(m.seed + ":round:" + strconv.Itoa(m.round))
	for _, a := range m.roster {
		if !a.Alive {
			continue
		}
		if _, ok := m.pending[a.ID]; ok {
			continue
		}
		candidates := m.board.HiddenSafeCells()
		if len(candidates) == 0 {
			candidates = m.board.HiddenCells()
		}
		if len(candidates) == 0 {
			continue
		}
		c := candidates[r.IntN(len(candidates))]
		m.pending[a.ID] = &Move{
			AgentID:     a.ID,
			Action:      ActionReveal,
			X:           c.X,
			Y:           c.Y,
			SubmittedAt: now,
			Synthesized: true,
		}
	}
}

// evaluateOutcome applies the win conditions in precedence order: total
// wipeout, sole survivor, cleared board, otherwise next round.
func (m *Match) evaluateOutcome(result *RoundResult, lastRevealer string, now time.Time) {
	var alive []*Agent
	for _, a := range m.roster {
		if a.Alive {
			alive = append(alive, a)
		}
	}

	switch {
	case len(alive) == 0:
		// Everyone died this round; the last elimination wins by
		// outlasting the rest of the pass. A round that starts with
		// nobody alive has no eliminations and falls back to the
		// first roster entry.
		winner := m.roster[0].ID
		if len(result.Eliminated) > 0 {
			winner = result.Eliminated[len(result.Eliminated)-1]
		}
		m.settle(winner)
	case len(alive) == 1:
		m.settle(alive[0].ID)
	case m.board.Cleared():
		winner := lastRevealer
		if winner == "" {
			winner = alive[0].ID
		}
		m.settle(winner)
	default:
		m.round++
		m.deadline = now.Add(m.params.RoundDuration)
	}
}

func (m *Match) settle(winner string) {
	m.status = StatusSettled
	m.winner = winner
	m.deadline = time.Time{}
	Log.WithFields(logrus.Fields{
		"match":  m.id,
		"winner": winner,
		"rounds": len(m.history),
	}).Info("match settled")
}
