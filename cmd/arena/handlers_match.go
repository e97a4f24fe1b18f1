package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/schema"
	"github.com/jackc/pgx/v5"

	"github.com/happybomber/arena-server/internal/board"
	"github.com/happybomber/arena-server/internal/match"
)

var dec = schema.NewDecoder()

func init() {
	dec.IgnoreUnknownKeys(true)
}

type NewMatchParams struct {
	Stake int64 `schema:"stake,required"`
}

type MoveParams struct {
	Action string `schema:"action,required"`
	X      int    `schema:"x,required"`
	Y      int    `schema:"y,required"`
}

type VerifyParams struct {
	Seed      string `schema:"seed,required"`
	GridSize  int    `schema:"grid_size,required"`
	BombCount int    `schema:"bomb_count,required"`
}

// drawSeedMaterial produces the activation entropy. The engine mixes
// it with the match id and seals it until settlement.
func drawSeedMaterial() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*AgentClaims, bool) {
	claims, ok := r.Context().Value(ctxAgentClaims).(*AgentClaims)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

func getMatch(w http.ResponseWriter, r *http.Request) (*match.Match, bool) {
	m, err := store.Get(r.PathValue("id"))
	if errors.Is(err, match.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	} else if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Error(err)
		return nil, false
	}
	return m, true
}

// writeMatchError maps engine errors onto status codes. Conflicts with
// current match or buffer state get 409, identity problems 403, bad
// input 400.
func writeMatchError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, match.ErrAlreadyJoined),
		errors.Is(err, match.ErrMatchFull),
		errors.Is(err, match.ErrDuplicateMove),
		errors.Is(err, match.ErrCellRevealed),
		errors.Is(err, match.ErrNotForming),
		errors.Is(err, match.ErrNotActive),
		errors.Is(err, match.ErrNotCancelled):
		code = http.StatusConflict
	case errors.Is(err, match.ErrUnknownAgent),
		errors.Is(err, match.ErrAgentEliminated):
		code = http.StatusForbidden
	default:
		code = http.StatusBadRequest
	}
	w.WriteHeader(code)
	w.Write([]byte(err.Error()))
}

func handleNewMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var params NewMatchParams
	if err := dec.Decode(&params, r.URL.Query()); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	m, err := match.New(config.Match.Params(params.Stake))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return
	}
	now := time.Now().UTC()
	if _, err := m.Join(claims.Username, strconv.Itoa(claims.AgentId), now); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Error(err)
		return
	}
	if err := store.Set(m.ID(), m); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Error(err)
		return
	}
	if _, err := sendJSON(w, m.PublicState(now)); err != nil {
		log.Error(err)
	}
}

func handleListMatches(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		MatchIds []string `json:"match_ids"`
	}{store.Ids()}
	if _, err := sendJSON(w, payload); err != nil {
		log.Error(err)
	}
}

func handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := getMatch(w, r)
	if !ok {
		return
	}
	if _, err := sendJSON(w, m.PublicState(time.Now().UTC())); err != nil {
		log.Error(err)
	}
}

func handleGetHistory(w http.ResponseWriter, r *http.Request) {
	matchId := r.PathValue("id")
	var rounds []match.RoundResult
	if m, err := store.Get(matchId); err == nil {
		rounds = m.History()
	} else {
		// not live anymore, try the archive
		rounds, err = pg.GetMatchHistory(r.Context(), matchId)
		if errors.Is(err, pgx.ErrNoRows) {
			w.WriteHeader(http.StatusNotFound)
			return
		} else if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Error(err)
			return
		}
	}
	payload := struct {
		MatchId string              `json:"match_id"`
		Rounds  []match.RoundResult `json:"rounds"`
	}{matchId, rounds}
	if _, err := sendJSON(w, payload); err != nil {
		log.Error(err)
	}
}

func handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	m, ok := getMatch(w, r)
	if !ok {
		return
	}
	now := time.Now().UTC()
	full, err := m.Join(claims.Username, strconv.Itoa(claims.AgentId), now)
	if err != nil {
		writeMatchError(w, err)
		return
	}
	if full {
		// Seed material comes from outside the engine; the engine only
		// mixes it with the match id.
		material, err := drawSeedMaterial()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Error("unable to draw seed material: ", err)
			return
		}
		if err := m.Activate(material, now); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Error("unable to activate match: ", err)
			return
		}
		sched.Watch(m)
	}
	state := m.PublicState(now)
	hub.Broadcast(m.ID(), wsEvent{Type: "state", State: &state})
	if _, err := sendJSON(w, state); err != nil {
		log.Error(err)
	}
}

func handleCancelMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	m, ok := getMatch(w, r)
	if !ok {
		return
	}
	now := time.Now().UTC()
	// only the creator may cancel; they joined first in handleNewMatch
	roster := m.PublicState(now).Roster
	if len(roster) == 0 || roster[0].ID != claims.Username {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if err := m.Cancel(); err != nil {
		writeMatchError(w, err)
		return
	}
	refund, err := m.Refund()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Error(err)
		return
	}
	if err := pg.ArchiveMatch(r.Context(), m); err != nil {
		log.Error("unable to archive cancelled match: ", err)
	}
	state := m.PublicState(now)
	hub.Broadcast(m.ID(), wsEvent{Type: "state", State: &state})
	payload := struct {
		MatchId        string `json:"match_id"`
		RefundPerAgent int64  `json:"refund_per_agent"`
	}{m.ID(), refund}
	if _, err := sendJSON(w, payload); err != nil {
		log.Error(err)
	}
}

func handleSubmitMove(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	m, ok := getMatch(w, r)
	if !ok {
		return
	}
	var params MoveParams
	if err := dec.Decode(&params, r.URL.Query()); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	err := m.SubmitMove(
		claims.Username, match.Action(params.Action),
		params.X, params.Y, time.Now().UTC(),
	)
	if err != nil {
		writeMatchError(w, err)
		return
	}
	payload := struct {
		MatchId  string `json:"match_id"`
		Accepted bool   `json:"accepted"`
	}{m.ID(), true}
	if _, err := sendJSON(w, payload); err != nil {
		log.Error(err)
	}
}

// handleVerify reruns board generation for a disclosed seed so anyone
// can audit a settled match.
func handleVerify(w http.ResponseWriter, r *http.Request) {
	var params VerifyParams
	if err := dec.Decode(&params, r.URL.Query()); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	bombs, err := board.Verify(params.Seed, params.GridSize, params.BombCount)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return
	}
	payload := struct {
		Seed        string `json:"seed"`
		GridSize    int    `json:"grid_size"`
		BombCount   int    `json:"bomb_count"`
		BombIndices []int  `json:"bomb_indices"`
	}{params.Seed, params.GridSize, params.BombCount, bombs}
	if _, err := sendJSON(w, payload); err != nil {
		log.Error(err)
	}
}

func handleGetRecords(w http.ResponseWriter, r *http.Request) {
	records, err := pg.GetMatchRecords(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Error(err)
		return
	}
	if _, err := sendJSON(w, records); err != nil {
		log.Error(err)
	}
}
