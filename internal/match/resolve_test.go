package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/happybomber/arena-server/internal/board"
)

func activeMatch(t *testing.T, id string, params Params, agents ...string) *Match {
	t.Helper()
	m := testMatch(t, id, params)
	fillRoster(t, m, agents...)
	require.NoError(t, m.Activate("entropy", time.Now()))
	return m
}

// bombCells returns (x, y) pairs of every bomb, cross-checked against
// the public verification routine.
func bombCells(t *testing.T, m *Match) [][2]int {
	t.Helper()
	want, err := board.Verify(m.seed, m.params.GridSize, m.params.BombCount)
	require.NoError(t, err)
	require.Equal(t, want, m.board.BombIndices())
	cells := make([][2]int, len(want))
	for i, idx := range want {
		cells[i] = [2]int{idx % m.params.GridSize, idx / m.params.GridSize}
	}
	return cells
}

func TestResolveNoopUnlessActive(t *testing.T) {
	m := testMatch(t, "r-noop", DefaultParams(100))
	result, err := m.ResolveRound(time.Now())
	require.NoError(t, err)
	require.Nil(t, result)

	require.NoError(t, m.Cancel())
	result, err = m.ResolveRound(time.Now())
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestResolveSynthesizesFallbacks(t *testing.T) {
	m := activeMatch(t, "r-silent", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 1, result.Round)
	require.Len(t, result.Moves, 5, "every alive agent gets a move")
	for _, move := range result.Moves {
		require.True(t, move.Synthesized)
		require.Equal(t, ActionReveal, move.Action)
		require.Equal(t, now, move.SubmittedAt)
	}
	require.Empty(t, result.Eliminated, "fallbacks prefer safe cells")
	require.Empty(t, m.pending, "buffer reset after resolution")
}

func TestResolveFillsOnlySilentAgents(t *testing.T) {
	m := activeMatch(t, "r-mixed", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()

	safe := m.board.HiddenSafeCells()
	require.NoError(t, m.SubmitMove("a2", ActionReveal, safe[0].X, safe[0].Y, now))
	require.NoError(t, m.SubmitMove("a4", ActionFlag, safe[1].X, safe[1].Y, now))

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Len(t, result.Moves, 5)
	for _, move := range result.Moves {
		switch move.AgentID {
		case "a2":
			require.False(t, move.Synthesized)
			require.Equal(t, ActionReveal, move.Action)
		case "a4":
			require.False(t, move.Synthesized)
			require.Equal(t, ActionFlag, move.Action)
		default:
			require.True(t, move.Synthesized)
		}
	}
}

func TestResolveReplayDeterministic(t *testing.T) {
	run := func() *RoundResult {
		m := activeMatch(t, "r-replay", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
		result, err := m.ResolveRound(time.Unix(0, 0))
		require.NoError(t, err)
		return result
	}
	a, b := run(), run()
	require.Equal(t, a, b, "silent rounds must replay identically from the seed")
}

func TestSoleSurvivorWins(t *testing.T) {
	m := activeMatch(t, "r-survivor", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()
	bombs := bombCells(t, m)

	for i, id := range []string{"a1", "a2", "a3", "a4"} {
		require.NoError(t, m.SubmitMove(id, ActionReveal, bombs[i][0], bombs[i][1], now))
	}
	safe := m.board.HiddenSafeCells()[0]
	require.NoError(t, m.SubmitMove("a5", ActionReveal, safe.X, safe.Y, now))

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "a2", "a3", "a4"}, result.Eliminated)
	require.Equal(t, StatusSettled, m.Status())
	require.Equal(t, "a5", m.Winner())

	seed, err := m.Seed()
	require.NoError(t, err)
	require.Equal(t, "r-survivor:entropy", seed)

	winner, house := m.Payouts()
	require.EqualValues(t, 475, winner)
	require.EqualValues(t, 25, house)
}

func TestTotalWipeoutLastEliminationWins(t *testing.T) {
	m := activeMatch(t, "r-wipeout", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()
	bombs := bombCells(t, m)

	for i, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		require.NoError(t, m.SubmitMove(id, ActionReveal, bombs[i][0], bombs[i][1], now))
	}

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Len(t, result.Eliminated, 5)
	require.Equal(t, StatusSettled, m.Status())
	require.Equal(t, "a5", m.Winner(), "the last elimination of the pass outlasted the rest")
}

func TestAllDeadRoundSettlesOnFirstRosterEntry(t *testing.T) {
	m := activeMatch(t, "r-alldead", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	for _, a := range m.roster {
		a.Alive = false
	}

	// No fallbacks, no moves, no eliminations: the round still settles
	// and the first roster entry takes the pot.
	result, err := m.ResolveRound(time.Now())
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result.Moves)
	require.Empty(t, result.Eliminated)
	require.Equal(t, StatusSettled, m.Status())
	require.Equal(t, "a1", m.Winner())
}

func TestBoardClearedLastRevealerWins(t *testing.T) {
	params := DefaultParams(100)
	params.Capacity = 2
	params.GridSize = 3
	params.BombCount = 0
	m := activeMatch(t, "r-cleared", params, "a1", "a2")
	now := time.Now()

	// Zero bombs: a1's reveal cascades the whole grid, a2's target is
	// then already open and the move is spent.
	require.NoError(t, m.SubmitMove("a1", ActionReveal, 0, 0, now))
	require.NoError(t, m.SubmitMove("a2", ActionReveal, 2, 2, now))

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Len(t, result.Revealed, 9)
	require.Empty(t, result.Eliminated)
	require.Equal(t, StatusSettled, m.Status())
	require.Equal(t, "a1", m.Winner())
}

func TestSharedTargetSpendsLaterMoves(t *testing.T) {
	m := activeMatch(t, "r-shared", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()
	bombs := bombCells(t, m)

	// All five agents click the same bomb. Only the first in roster
	// order detonates it; the rest find the cell already open.
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		require.NoError(t, m.SubmitMove(id, ActionReveal, bombs[0][0], bombs[0][1], now))
	}

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Equal(t, []string{"a1"}, result.Eliminated)
	require.Len(t, result.Revealed, 1)
	require.Equal(t, StatusActive, m.Status(), "four agents remain alive")
	require.Equal(t, 2, m.round)
}

func TestRoundAdvancesAndBufferResets(t *testing.T) {
	m := activeMatch(t, "r-advance", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()

	// A numbered cell reveals alone, so the board stays far from
	// cleared and the match rolls into round 2.
	var target *board.Cell
	for _, c := range m.board.HiddenSafeCells() {
		if c.Adjacent > 0 {
			target = c
			break
		}
	}
	require.NotNil(t, target)
	require.NoError(t, m.SubmitMove("a1", ActionReveal, target.X, target.Y, now))

	deadline := m.Deadline()
	later := now.Add(m.params.RoundDuration)
	result, err := m.ResolveRound(later)
	require.NoError(t, err)
	require.Equal(t, 1, result.Round)
	require.Equal(t, StatusActive, m.Status())
	require.Equal(t, 2, m.round)
	require.True(t, m.Deadline().After(deadline))

	// first-wins resets per round
	require.NoError(t, m.SubmitMove("a1", ActionFlag, 0, 0, now))

	history := m.History()
	require.Len(t, history, 1)
	require.Equal(t, *result, history[0])
}

func TestFlagPassAppliesPrivateFlags(t *testing.T) {
	m := activeMatch(t, "r-flags", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()

	hidden := m.board.HiddenCells()[0]
	require.NoError(t, m.SubmitMove("a1", ActionFlag, hidden.X, hidden.Y, now))

	_, err := m.ResolveRound(now)
	require.NoError(t, err)
	if hidden.Revealed {
		t.Skip("fallback reveal opened the flag target")
	}
	require.True(t, hidden.FlaggedBy("a1"))
	require.False(t, hidden.FlaggedBy("a2"))
}

func TestEliminatedAgentsGetNoFallback(t *testing.T) {
	m := activeMatch(t, "r-dead", DefaultParams(100), "a1", "a2", "a3", "a4", "a5")
	now := time.Now()
	bombs := bombCells(t, m)

	require.NoError(t, m.SubmitMove("a1", ActionReveal, bombs[0][0], bombs[0][1], now))
	_, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Equal(t, StatusActive, m.Status())

	result, err := m.ResolveRound(now)
	require.NoError(t, err)
	require.Len(t, result.Moves, 4, "a1 is out and gets no synthesized move")
	for _, move := range result.Moves {
		require.NotEqual(t, "a1", move.AgentID)
	}
}
