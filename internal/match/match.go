// Package match implements the elimination-match engine: lifecycle state
// machine, pending-move buffer, batch round resolution, and payout
// computation. A Match owns its board, roster and history exclusively;
// every operation is an in-memory transformation guarded by the match
// mutex, so submissions may interleave freely while resolution runs as
// one atomic batch.
package match

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/happybomber/arena-server/internal/board"
)

var Log = logrus.New()

var (
	ErrNotForming      = errors.New("match: not accepting agents")
	ErrAlreadyJoined   = errors.New("match: agent already joined")
	ErrMatchFull       = errors.New("match: roster is full")
	ErrNotEnoughAgents = errors.New("match: roster is not full yet")
	ErrNotActive       = errors.New("match: not active")
	ErrNotCancelled    = errors.New("match: not cancelled")
	ErrUnknownAgent    = errors.New("match: unknown agent")
	ErrAgentEliminated = errors.New("match: agent is eliminated")
	ErrDuplicateMove   = errors.New("match: agent already moved this round")
	ErrBadAction       = errors.New("match: unknown move action")
	ErrOutOfBounds     = errors.New("match: coordinates out of bounds")
	ErrCellRevealed    = errors.New("match: cell is already revealed")
	ErrSeedSealed      = errors.New("match: seed is sealed until settlement")
)

type Status int

const (
	StatusForming Status = iota
	StatusActive
	StatusSettled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusForming:
		return "forming"
	case StatusActive:
		return "active"
	case StatusSettled:
		return "settled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

type Action string

const (
	ActionReveal Action = "reveal"
	ActionFlag   Action = "flag"
)

type Move struct {
	AgentID     string    `json:"agent_id"`
	Action      Action    `json:"action"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	SubmittedAt time.Time `json:"submitted_at"`
	Synthesized bool      `json:"synthesized,omitempty"`
}

type Agent struct {
	ID       string    `json:"agent_id"`
	Account  string    `json:"-"` // opaque external account reference
	Alive    bool      `json:"alive"`
	JoinedAt time.Time `json:"joined_at"`
}

type RevealedCell struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Bomb     bool `json:"bomb"`
	Adjacent int  `json:"adjacent"`
}

// RoundResult is the immutable record of one resolved round. Moves are
// listed in roster order, synthesized fallbacks included.
type RoundResult struct {
	Round      int            `json:"round"`
	Moves      []Move         `json:"moves"`
	Eliminated []string       `json:"eliminated"`
	Revealed   []RevealedCell `json:"revealed"`
}

type Params struct {
	Stake         int64         `json:"stake"`
	GridSize      int           `json:"grid_size"`
	BombCount     int           `json:"bomb_count"`
	Capacity      int           `json:"capacity"`
	RoundDuration time.Duration `json:"round_duration"`
	HouseFeeBP    int64         `json:"house_fee_bp"`
}

// DefaultParams mirrors the canonical arena configuration: a 10x10
// board at 25% density, five agents, 5% house fee.
func DefaultParams(stake int64) Params {
	return Params{
		Stake:         stake,
		GridSize:      10,
		BombCount:     25,
		Capacity:      5,
		RoundDuration: 30 * time.Second,
		HouseFeeBP:    500,
	}
}

func (p Params) Validate() error {
	if p.Stake < 0 {
		return fmt.Errorf("match: stake must not be negative")
	}
	if p.GridSize <= 0 {
		return board.ErrBadDimensions
	}
	if p.BombCount < 0 || p.BombCount >= p.GridSize*p.GridSize {
		return board.ErrTooManyBombs
	}
	if p.Capacity < 2 {
		return fmt.Errorf("match: capacity must be at least 2")
	}
	if p.RoundDuration <= 0 {
		return fmt.Errorf("match: round duration must be positive")
	}
	if p.HouseFeeBP < 0 || p.HouseFeeBP > 10000 {
		return fmt.Errorf("match: house fee must be between 0 and 10000 bp")
	}
	return nil
}

type Match struct {
	mu        sync.Mutex
	id        string
	params    Params
	status    Status
	createdAt time.Time
	roster    []*Agent
	seed      string
	board     *board.Board
	round     int
	deadline  time.Time
	pending   map[string]*Move
	history   []RoundResult
	winner    string
}

func New(params Params) (*Match, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	u := [16]byte(uuid.New())
	m := &Match{
		id:        base64.RawURLEncoding.EncodeToString(u[:]),
		params:    params,
		status:    StatusForming,
		createdAt: time.Now().UTC(),
		pending:   make(map[string]*Move),
	}
	Log.WithFields(logrus.Fields{
		"match": m.id,
		"stake": params.Stake,
	}).Info("match created")
	return m, nil
}

func (m *Match) ID() string { return m.id }

func (m *Match) Params() Params { return m.params }

func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Join appends an agent to the roster. Returns whether the roster is now
// full, at which point the caller is expected to activate the match.
func (m *Match) Join(agentID, account string, now time.Time) (full bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusForming {
		return false, ErrNotForming
	}
	for _, a := range m.roster {
		if a.ID == agentID {
			return false, ErrAlreadyJoined
		}
	}
	if len(m.roster) >= m.params.Capacity {
		return false, ErrMatchFull
	}
	m.roster = append(m.roster, &Agent{
		ID:       agentID,
		Account:  account,
		Alive:    true,
		JoinedAt: now,
	})
	Log.WithFields(logrus.Fields{
		"match":  m.id,
		"agent":  agentID,
		"roster": len(m.roster),
	}).Info("agent joined")
	return len(m.roster) == m.params.Capacity, nil
}

// Activate consumes externally supplied seed material, generates the
// board and opens round 1. The engine mixes the material with the match
// id for domain separation but produces no entropy of its own. The
// resulting seed stays sealed until settlement.
func (m *Match) Activate(seedMaterial string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusForming {
		return ErrNotForming
	}
	if len(m.roster) < m.params.Capacity {
		return ErrNotEnoughAgents
	}

	seed := m.id + ":" + seedMaterial
	b, err := board.Generate(seed, m.params.GridSize, m.params.BombCount)
	if err != nil {
		return err
	}
	m.seed = seed
	m.board = b
	m.round = 1
	m.deadline = now.Add(m.params.RoundDuration)
	m.status = StatusActive
	Log.WithFields(logrus.Fields{
		"match":    m.id,
		"deadline": m.deadline,
	}).Info("match activated")
	return nil
}

// Cancel aborts a match that never filled. Legal only while forming;
// cancelled is terminal.
func (m *Match) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusForming {
		return ErrNotForming
	}
	m.status = StatusCancelled
	Log.WithFields(logrus.Fields{"match": m.id}).Info("match cancelled")
	return nil
}

// Refund reports the per-agent refund of a cancelled match. The engine
// computes amounts only; moving funds belongs to the escrow collaborator.
func (m *Match) Refund() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusCancelled {
		return 0, ErrNotCancelled
	}
	return m.params.Stake, nil
}

// SubmitMove buffers one move for the current round. The first
// submission per agent per round wins; later ones are rejected, never
// merged or overwritten.
func (m *Match) SubmitMove(agentID string, action Action, x, y int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusActive {
		return ErrNotActive
	}
	agent := m.agent(agentID)
	if agent == nil {
		return ErrUnknownAgent
	}
	if !agent.Alive {
		return ErrAgentEliminated
	}
	if _, ok := m.pending[agentID]; ok {
		return ErrDuplicateMove
	}
	if action != ActionReveal && action != ActionFlag {
		return fmt.Errorf("%w: %q", ErrBadAction, action)
	}
	cell, err := m.board.Cell(x, y)
	if err != nil {
		return fmt.Errorf("%w: %d:%d", ErrOutOfBounds, x, y)
	}
	if cell.Revealed {
		return ErrCellRevealed
	}
	m.pending[agentID] = &Move{
		AgentID:     agentID,
		Action:      action,
		X:           x,
		Y:           y,
		SubmittedAt: now,
	}
	return nil
}

func (m *Match) agent(agentID string) *Agent {
	for _, a := range m.roster {
		if a.ID == agentID {
			return a
		}
	}
	return nil
}

// Winner returns the winning agent id, empty until settlement.
func (m *Match) Winner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

// Seed exposes the board seed. Refused before settlement: predicting the
// board mid-match must be impossible even with read access here.
func (m *Match) Seed() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusSettled {
		return "", ErrSeedSealed
	}
	return m.seed, nil
}

// Deadline returns the current round deadline (zero unless active).
func (m *Match) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline
}

// History returns a copy of the resolved round records.
func (m *Match) History() []RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := make([]RoundResult, len(m.history))
	copy(history, m.history)
	return history
}

type AgentState struct {
	ID       string    `json:"agent_id"`
	Alive    bool      `json:"alive"`
	JoinedAt time.Time `json:"joined_at"`
}

type PublicState struct {
	ID            string       `json:"match_id"`
	Status        Status       `json:"status"`
	Stake         int64        `json:"stake"`
	Pool          int64        `json:"pool"`
	GridSize      int          `json:"grid_size"`
	BombCount     int          `json:"bomb_count"`
	Capacity      int          `json:"capacity"`
	Round         int          `json:"round"`
	TimeRemaining int64        `json:"time_remaining_ms"`
	Roster        []AgentState `json:"roster"`
	Winner        *string      `json:"winner,omitempty"`
	Seed          *string      `json:"seed,omitempty"`
}

// PublicState renders the externally visible view of the match. The seed
// appears only once settled.
func (m *Match) PublicState(now time.Time) PublicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := PublicState{
		ID:        m.id,
		Status:    m.status,
		Stake:     m.params.Stake,
		Pool:      m.params.Stake * int64(len(m.roster)),
		GridSize:  m.params.GridSize,
		BombCount: m.params.BombCount,
		Capacity:  m.params.Capacity,
		Round:     m.round,
	}
	for _, a := range m.roster {
		state.Roster = append(state.Roster, AgentState{
			ID:       a.ID,
			Alive:    a.Alive,
			JoinedAt: a.JoinedAt,
		})
	}
	if m.status == StatusActive {
		if remaining := m.deadline.Sub(now); remaining > 0 {
			state.TimeRemaining = remaining.Milliseconds()
		}
	}
	if m.winner != "" {
		winner := m.winner
		state.Winner = &winner
	}
	if m.status == StatusSettled {
		seed := m.seed
		state.Seed = &seed
	}
	return state
}

// Payouts computes the settlement split for this match's parameters.
func (m *Match) Payouts() (winner, house int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ComputePayouts(m.params.Stake, len(m.roster), m.params.HouseFeeBP)
}
