package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/bingohall/internal/common/uuid"
	"github.com/Seednode/bingohall/internal/events"
	"github.com/Seednode/bingohall/internal/ident"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	playerCookieName = "bingohall_id"

	sendBuffer     = 64
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// getOrSetPlayerID returns the caller's player id, issuing a new one in a
// cookie if the request carries none or a malformed one.
func getOrSetPlayerID(w http.ResponseWriter, r *http.Request, ids *ident.Generator) string {
	if c, err := r.Cookie(playerCookieName); err == nil && uuid.Valid(c.Value) {
		return c.Value
	}

	id := ids.NewPlayerID()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// Client is one websocket connection for one player in one room. send is
// only written and closed by the connHub.
type Client struct {
	conn     *websocket.Conn
	send     chan events.Event
	playerID string
	room     string
	log      zerolog.Logger

	// dead is set once send has been closed; guarded by connHub.mu
	dead bool
}

func (c *Client) readPump(handle func(raw []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info().Err(err).Msg("connection lost")
			}
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		handle(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var errSlowClient = errors.New("client send buffer full")

// connHub maps room members to their live connections and delivers room
// events to them. It implements events.Sink.
//
// Only the most recent connection of a player is kept. A connection that is
// too slow to keep up is dropped but stays recorded as the player's latest,
// so its departure still counts as the player leaving.
type connHub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
	log   zerolog.Logger
}

func newConnHub(logger zerolog.Logger) *connHub {
	return &connHub{
		rooms: make(map[string]map[string]*Client),
		log:   logger,
	}
}

// register makes c the player's current connection, closing any older one.
func (h *connHub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[c.room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[c.room] = members
	}

	if old, ok := members[c.playerID]; ok {
		h.killLocked(old)
		old.log.Info().Msg("connection replaced")
	}

	members[c.playerID] = c
}

// unregister forgets c and reports whether it was still the player's
// latest connection. Only then does its close mean the player left.
func (h *connHub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[c.room]
	if members[c.playerID] != c {
		h.killLocked(c)
		return false
	}

	delete(members, c.playerID)
	if len(members) == 0 {
		delete(h.rooms, c.room)
	}

	h.killLocked(c)

	return true
}

func (h *connHub) killLocked(c *Client) {
	if c.dead {
		return
	}

	c.dead = true
	close(c.send)
}

// Publish implements events.Sink. It never blocks; recipients whose buffer
// is full are disconnected.
func (h *connHub) Publish(env events.Envelope) {
	var slow []*Client

	h.mu.RLock()
	members := h.rooms[env.Event.Room]
	for _, id := range env.To {
		c, ok := members[id]
		if !ok {
			continue
		}

		if err := c.trySendLocked(env.Event); err != nil {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// deliver sends ev to c alone, if c is still live.
func (h *connHub) deliver(c *Client, ev events.Event) {
	h.mu.RLock()
	err := c.trySendLocked(ev)
	h.mu.RUnlock()

	if err != nil {
		h.drop(c)
	}
}

func (c *Client) trySendLocked(ev events.Event) error {
	if c.dead {
		return nil
	}

	select {
	case c.send <- ev:
		return nil
	default:
		return errSlowClient
	}
}

func (h *connHub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !c.dead {
		c.log.Warn().Err(errSlowClient).Msg("dropping connection")
	}

	h.killLocked(c)
}

// has reports whether the player has a registered connection to the room.
func (h *connHub) has(room, playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[room][playerID]

	return ok
}

// connected reports how many live connections a room has.
func (h *connHub) connected(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.rooms[room] {
		if !c.dead {
			n++
		}
	}

	return n
}

// closeAll disconnects every client.
func (h *connHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, members := range h.rooms {
		for _, c := range members {
			h.killLocked(c)
		}
	}
}
