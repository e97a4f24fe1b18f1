package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/happybomber/arena-server/internal/match"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		log.Debug("\tws origin: ", r.Host)
		return true
	},
}

type wsEvent struct {
	Type    string             `json:"type"`
	State   *match.PublicState `json:"state,omitempty"`
	Round   *match.RoundResult `json:"round,omitempty"`
	Payouts *wsPayouts         `json:"payouts,omitempty"`
}

type wsPayouts struct {
	Winner   string `json:"winner"`
	Amount   int64  `json:"amount"`
	HouseFee int64  `json:"house_fee"`
	Seed     string `json:"seed"`
}

// wsHub fans match events out to every socket watching a match. Sends
// happen under the hub lock; a failed write drops the socket.
type wsHub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

func newWsHub() *wsHub {
	return &wsHub{subs: make(map[string]map[*websocket.Conn]bool)}
}

func (h *wsHub) Subscribe(matchId string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[matchId] == nil {
		h.subs[matchId] = make(map[*websocket.Conn]bool)
	}
	h.subs[matchId][c] = true
}

func (h *wsHub) Unsubscribe(matchId string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[matchId], c)
	if len(h.subs[matchId]) == 0 {
		delete(h.subs, matchId)
	}
}

func (h *wsHub) Broadcast(matchId string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[matchId] {
		if err := c.WriteJSON(v); err != nil {
			log.Warn("ws write: ", err)
			c.Close()
			delete(h.subs[matchId], c)
		}
	}
}

func handleConnectWs(w http.ResponseWriter, r *http.Request) {
	m, ok := getMatch(w, r)
	if !ok {
		return
	}
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade: ", err)
		return
	}
	defer c.Close()

	state := m.PublicState(time.Now().UTC())
	if err := c.WriteJSON(wsEvent{Type: "state", State: &state}); err != nil {
		log.Error("write: ", err)
		return
	}

	hub.Subscribe(m.ID(), c)
	defer hub.Unsubscribe(m.ID(), c)

	// The socket is broadcast-only; the read loop just waits for the
	// peer to go away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Warn("read: ", err)
			}
			return
		}
	}
}
