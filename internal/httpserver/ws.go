// internal/httpserver/ws.go
//
// Snapshot push over websocket.
// Clients subscribe to a game ID; every engine state change is broadcast
// to all subscribers as a JSON snapshot. The hub is the rendering sink the
// engine is wired to when a game is created.

package httpserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ahorcado-game/server/internal/game"
)

// wsMessage is the shape pushed to subscribers.
type wsMessage struct {
	GameID   string        `json:"gameId"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// hub tracks live connections per game ID.
type hub struct {
	mu    sync.Mutex
	conns map[string][]*websocket.Conn
}

func newHub() *hub {
	return &hub{conns: make(map[string][]*websocket.Conn)}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == getEnv("CLIENT_ORIGIN", "http://localhost:5173")
	},
}

// subscribe sends the current snapshot and registers the connection in one
// critical section. gorilla allows only one concurrent writer per conn, so
// the initial write must not interleave with a broadcast; once the
// connection is in the registry, broadcast (under the same lock) is the
// only writer left.
func (h *hub) subscribe(id string, conn *websocket.Conn, snap game.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(wsMessage{GameID: id, Snapshot: snap}); err != nil {
		return err
	}
	h.conns[id] = append(h.conns[id], conn)
	return nil
}

// remove unregisters a connection, dropping the game entry when empty.
func (h *hub) remove(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.conns[id]
	for i, c := range list {
		if c == conn {
			h.conns[id] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.conns[id]) == 0 {
		delete(h.conns, id)
	}
}

// broadcast pushes a snapshot to every subscriber of a game.
// Dead connections are closed and dropped.
func (h *hub) broadcast(id string, snap game.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.conns[id]
	alive := list[:0]
	for _, conn := range list {
		if err := conn.WriteJSON(wsMessage{GameID: id, Snapshot: snap}); err != nil {
			log.Debug().Err(err).Str("gameId", id).Msg("drop ws subscriber")
			_ = conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	if len(alive) == 0 {
		delete(h.conns, id)
	} else {
		h.conns[id] = alive
	}
}

// handleWS upgrades the connection and streams snapshots for a game.
// The first message sent is the current snapshot; afterwards the client
// only receives pushes (incoming messages are ignored).
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("gameId")
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	snap, err := sess.Snapshot()
	if err != nil {
		http.Error(w, `{"error":"no_round"}`, http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade")
		return
	}
	if err := s.hub.subscribe(id, conn, snap); err != nil {
		_ = conn.Close()
		return
	}
	defer func() {
		s.hub.remove(id, conn)
		_ = conn.Close()
	}()

	// Hold the connection open until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
