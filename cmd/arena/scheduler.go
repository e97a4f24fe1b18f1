package main

import (
	"context"
	"sync"
	"time"

	"github.com/happybomber/arena-server/internal/match"
)

// scheduler drives round deadlines. Every active match gets one timer;
// when it fires the round resolves as a batch, the result is broadcast,
// and either the next round is scheduled or the settled match is
// archived. A timer firing after settlement resolves to a no-op, so
// racing Cancel or a duplicate fire is harmless.
type scheduler struct {
	ctx    context.Context
	store  match.Store
	hub    *wsHub
	pg     *postgres
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newScheduler(
	ctx context.Context, store match.Store, hub *wsHub, pg *postgres,
) *scheduler {
	return &scheduler{
		ctx:    ctx,
		store:  store,
		hub:    hub,
		pg:     pg,
		timers: make(map[string]*time.Timer),
	}
}

func (s *scheduler) Watch(m *match.Match) {
	s.schedule(m)
}

func (s *scheduler) schedule(m *match.Match) {
	d := time.Until(m.Deadline())
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[m.ID()]; ok {
		old.Stop()
	}
	s.timers[m.ID()] = time.AfterFunc(d, func() { s.fire(m) })
}

func (s *scheduler) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *scheduler) fire(m *match.Match) {
	if s.ctx.Err() != nil {
		return
	}
	now := time.Now().UTC()
	result, err := m.ResolveRound(now)
	if err != nil {
		log.Error("resolve: ", err)
		s.forget(m.ID())
		return
	}
	if result == nil {
		s.forget(m.ID())
		return
	}

	s.hub.Broadcast(m.ID(), wsEvent{Type: "round", Round: result})

	switch m.Status() {
	case match.StatusActive:
		s.schedule(m)
	case match.StatusSettled:
		s.forget(m.ID())
		s.settle(m)
	}
}

func (s *scheduler) settle(m *match.Match) {
	winnerPayout, houseFee := m.Payouts()
	seed, err := m.Seed()
	if err != nil {
		log.Error("seed disclosure: ", err)
		return
	}
	state := m.PublicState(time.Now().UTC())
	s.hub.Broadcast(m.ID(), wsEvent{
		Type:  "settled",
		State: &state,
		Payouts: &wsPayouts{
			Winner:   m.Winner(),
			Amount:   winnerPayout,
			HouseFee: houseFee,
			Seed:     seed,
		},
	})
	if err := s.pg.ArchiveMatch(s.ctx, m); err != nil {
		log.Error("unable to archive match: ", err)
	}
}

func (s *scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
