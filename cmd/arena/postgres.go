package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/happybomber/arena-server/internal/match"
)

type postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dbUrl string) (*postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dbUrl)
	if err != nil {
		return nil, err
	}
	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	return &postgres{db}, nil
}

func (pg *postgres) Ping(ctx context.Context) error {
	return pg.db.Ping(ctx)
}

func (pg *postgres) Close() {
	pg.db.Close()
}

type Agent struct {
	AgentId      int
	Username     string
	PasswordHash []byte
	Account      string
}

func (pg *postgres) CreateAgent(
	ctx context.Context, username string, passwordHash []byte, account string,
) (*Agent, error) {
	var agentId int
	if err := pg.db.QueryRow(ctx, `
		INSERT INTO agent (
			username, password_hash, account
		)
		VALUES (
			@username, @password_hash, @account
		)
		RETURNING agent_id`,
		pgx.NamedArgs{
			"username":      username,
			"password_hash": passwordHash,
			"account":       account,
		}).Scan(&agentId); err != nil {
		return nil, err
	}
	agent := &Agent{
		AgentId:  agentId,
		Username: username,
		Account:  account,
	}
	return agent, nil
}

func (pg *postgres) GetAgent(
	ctx context.Context, username string,
) (*Agent, error) {
	rows, err := pg.db.Query(ctx, `
		SELECT agent_id, username, password_hash, account
		FROM agent
		WHERE username = $1;`,
		username)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Agent])
}

type MatchRecord struct {
	MatchId      string    `json:"match_id"`
	Status       string    `json:"status"`
	Stake        int64     `json:"stake"`
	GridSize     int       `json:"grid_size"`
	BombCount    int       `json:"bomb_count"`
	RosterSize   int       `json:"roster_size"`
	Rounds       int       `json:"rounds"`
	Winner       *string   `json:"winner"`
	WinnerPayout int64     `json:"winner_payout"`
	HouseFee     int64     `json:"house_fee"`
	Seed         *string   `json:"seed"`
	ArchivedAt   time.Time `json:"archived_at"`
}

// ArchiveMatch writes the permanent record of a finished match, settled
// or cancelled. History travels as a gob blob; the structured columns
// carry everything the records listing needs.
func (pg *postgres) ArchiveMatch(ctx context.Context, m *match.Match) error {
	var historyBuf bytes.Buffer
	if err := gob.NewEncoder(&historyBuf).Encode(m.History()); err != nil {
		return err
	}

	state := m.PublicState(time.Now().UTC())

	var (
		winner *string
		seed   *string

		winnerPayout int64
		houseFee     int64
	)
	if m.Status() == match.StatusSettled {
		winner = state.Winner
		seed = state.Seed
		winnerPayout, houseFee = m.Payouts()
	}

	_, err := pg.db.Exec(ctx, `
		INSERT INTO match_record (
			match_id, status, stake, grid_size, bomb_count, roster_size,
			rounds, winner, winner_payout, house_fee, seed, history
		)
		VALUES (
			@match_id, @status, @stake, @grid_size, @bomb_count, @roster_size,
			@rounds, @winner, @winner_payout, @house_fee, @seed, @history
		)
		ON CONFLICT (match_id) DO NOTHING;`,
		pgx.NamedArgs{
			"match_id":      m.ID(),
			"status":        m.Status().String(),
			"stake":         state.Stake,
			"grid_size":     state.GridSize,
			"bomb_count":    state.BombCount,
			"roster_size":   len(state.Roster),
			"rounds":        state.Round,
			"winner":        winner,
			"winner_payout": winnerPayout,
			"house_fee":     houseFee,
			"seed":          seed,
			"history":       historyBuf.Bytes(),
		})
	return err
}

func (pg *postgres) GetMatchRecords(ctx context.Context) ([]MatchRecord, error) {
	rows, err := pg.db.Query(ctx, `
		SELECT match_id, status, stake, grid_size, bomb_count, roster_size,
			rounds, winner, winner_payout, house_fee, seed, archived_at
		FROM match_record
		ORDER BY archived_at DESC
		LIMIT 100;`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[MatchRecord])
}

func (pg *postgres) GetMatchHistory(
	ctx context.Context, matchId string,
) ([]match.RoundResult, error) {
	var historyBuf []byte
	if err := pg.db.QueryRow(ctx, `
		SELECT history
		FROM match_record
		WHERE match_id = $1;`,
		matchId).Scan(&historyBuf); err != nil {
		return nil, err
	}
	var history []match.RoundResult
	if err := gob.NewDecoder(bytes.NewBuffer(historyBuf)).Decode(&history); err != nil {
		return nil, err
	}
	return history, nil
}
