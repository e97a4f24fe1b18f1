package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/happybomber/arena-server/internal/match"
)

func TestMain(m *testing.M) {
	log.SetLevel(logrus.ErrorLevel)
	m.Run()
}

func storedMatch(t *testing.T, stake int64, agents ...string) *match.Match {
	t.Helper()
	m, err := match.New(match.DefaultParams(stake))
	require.NoError(t, err)
	for i, a := range agents {
		_, err := m.Join(a, strconv.Itoa(i), time.Now().UTC())
		require.NoError(t, err)
	}
	require.NoError(t, store.Set(m.ID(), m))
	return m
}

func cancelRequest(m *match.Match, username string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/match/"+m.ID()+"/cancel", nil)
	r.SetPathValue("id", m.ID())
	claims := &AgentClaims{AgentId: 1, Username: username}
	return r.WithContext(context.WithValue(r.Context(), ctxAgentClaims, claims))
}

func TestCancelRestrictedToCreator(t *testing.T) {
	m := storedMatch(t, 100, "creator", "joiner")
	defer store.Delete(m.ID())

	w := httptest.NewRecorder()
	handleCancelMatch(w, cancelRequest(m, "joiner"))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, match.StatusForming, m.Status())

	w = httptest.NewRecorder()
	handleCancelMatch(w, cancelRequest(m, "stranger"))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, match.StatusForming, m.Status())
}
