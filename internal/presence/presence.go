// Package presence tracks who is online across every room, for the
// directory view and the stats endpoint. It is never consulted for game
// correctness.
package presence

import (
	"slices"
	"sync"
	"time"
)

// Entry is one online player
type Entry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Room     string    `json:"room"`
	Score    int64     `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// Stats are process-wide counters
type Stats struct {
	RoomsCreated  uint64 `json:"rooms_created"`
	TotalPlayers  uint64 `json:"total_players"`
	OnlinePlayers int    `json:"online_players"`
}

// Directory is the process-wide presence listing
type Directory struct {
	mu           sync.RWMutex
	online       map[string]Entry
	roomsCreated uint64
	totalPlayers uint64
}

// New creates an empty Directory
func New() *Directory {
	return &Directory{
		online: make(map[string]Entry),
	}
}

// Join records a player as online. Re-recording an id already online does
// not count as a new player.
func (d *Directory) Join(e Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.online[e.ID]; !ok {
		d.totalPlayers++
	}
	d.online[e.ID] = e
}

// Leave drops a player from the listing; counters are untouched.
func (d *Directory) Leave(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.online, id)
}

// SetScore updates the score shown for an online player
func (d *Directory) SetScore(id string, score int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.online[id]; ok {
		e.Score = score
		d.online[id] = e
	}
}

// RoomCreated bumps the room creation counter
func (d *Directory) RoomCreated() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.roomsCreated++
}

// Online returns a snapshot ordered by join time
func (d *Directory) Online() []Entry {
	d.mu.RLock()
	out := make([]Entry, 0, len(d.online))
	for _, e := range d.online {
		out = append(out, e)
	}
	d.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return out
}

// Stats returns the counters
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		RoomsCreated:  d.roomsCreated,
		TotalPlayers:  d.totalPlayers,
		OnlinePlayers: len(d.online),
	}
}
