package room

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/bingohall/internal/board"
	"github.com/Seednode/bingohall/internal/common/clock"
	"github.com/Seednode/bingohall/internal/events"
	"github.com/Seednode/bingohall/internal/ident"
	"github.com/Seednode/bingohall/internal/presence"
	"github.com/rs/zerolog"
)

// Registry holds every live room keyed by code, so each code is its own
// isolated session. Rooms with no members are evicted after a grace window.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	boards   *board.Generator
	ids      *ident.Generator
	sink     events.Sink
	clock    clock.Clock
	presence *presence.Directory
	logger   zerolog.Logger

	grace        time.Duration
	callInterval time.Duration
	maxPlayers   int
	maxRooms     int
}

// NewRegistry creates a registry from cfg
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Boards == nil {
		return nil, ErrNilBoardGenerator
	}

	if cfg.IDs == nil {
		return nil, ErrNilIDGenerator
	}

	if cfg.Sink == nil {
		return nil, ErrNilSink
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.Presence == nil {
		return nil, ErrNilPresence
	}

	grace := cfg.EmptyRoomTimeout
	if grace <= 0 {
		grace = DefaultEmptyRoomTimeout
	}

	interval := cfg.CallInterval
	if interval <= 0 {
		interval = DefaultCallInterval
	}
	interval = min(max(interval, MinCallInterval), MaxCallInterval)

	return &Registry{
		rooms:        make(map[string]*Room),
		boards:       cfg.Boards,
		ids:          cfg.IDs,
		sink:         cfg.Sink,
		clock:        cfg.Clock,
		presence:     cfg.Presence,
		logger:       cfg.Logger,
		grace:        grace,
		callInterval: interval,
		maxPlayers:   cfg.MaxPlayers,
		maxRooms:     cfg.MaxRooms,
	}, nil
}

// Create validates input, allocates a fresh code and starts the room. The
// room starts empty, so its eviction timer is armed immediately.
func (g *Registry) Create(ctx context.Context, in *CreateRoomInput) (*Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in == nil {
		return nil, ErrNilConfig
	}

	if _, err := board.ParseGameType(string(in.GameType)); err != nil {
		return nil, ErrInvalidGameType
	}

	if in.MaxPlayers < 1 || (g.maxPlayers > 0 && in.MaxPlayers > g.maxPlayers) {
		return nil, ErrInvalidMaxPlayers
	}

	if in.Stake < 0 {
		return nil, ErrInvalidStake
	}

	g.mu.Lock()

	if g.maxRooms > 0 && len(g.rooms) >= g.maxRooms {
		g.mu.Unlock()
		return nil, ErrResourceExhausted
	}

	code, err := g.ids.NewRoomCode(len(g.rooms), func(c string) bool {
		_, ok := g.rooms[c]
		return ok
	})
	if err != nil {
		g.mu.Unlock()

		if errors.Is(err, ident.ErrResourceExhausted) {
			return nil, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
		}
		return nil, err
	}

	r := newRoom(g, code, in)
	epoch := r.emptyEpoch
	g.rooms[code] = r

	g.mu.Unlock()

	go r.run()

	g.presence.RoomCreated()
	g.armEviction(r, epoch)

	g.logger.Info().Str("room", code).Str("game_type", string(in.GameType)).Int("max_players", in.MaxPlayers).Msg("room created")

	return r, nil
}

// Get returns the live room for code
func (g *Registry) Get(code string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return r, nil
}

// Remove closes the room and forgets it.
func (g *Registry) Remove(ctx context.Context, code string) error {
	r, err := g.Get(code)
	if err != nil {
		return err
	}

	err = r.exec(ctx, func() error {
		r.closeLocked()
		return nil
	})
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		return err
	}

	g.forget(r)

	g.logger.Info().Str("room", code).Msg("room removed")

	return nil
}

// Len is the number of live rooms
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.rooms)
}

func (g *Registry) snapshot() []*Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}

	return out
}

// summaries returns a view of every live room, oldest first. Rooms that
// close while being listed are skipped.
func (g *Registry) summaries(ctx context.Context) ([]events.RoomInfo, error) {
	rooms := g.snapshot()

	out := make([]events.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		var info events.RoomInfo

		err := r.exec(ctx, func() error {
			info = r.infoLocked()
			return nil
		})
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		out = append(out, info)
	}

	slices.SortFunc(out, func(a, b events.RoomInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})

	return out, nil
}

// ListAvailable returns the rooms a newcomer could join right now: in the
// lobby and not full.
func (g *Registry) ListAvailable(ctx context.Context) ([]events.RoomInfo, error) {
	all, err := g.summaries(ctx)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(all, func(r events.RoomInfo) bool {
		return r.State != string(StateLobby) || r.Players >= r.MaxPlayers
	}), nil
}

// ActiveGames counts rooms with a game in progress.
func (g *Registry) ActiveGames(ctx context.Context) (int, error) {
	all, err := g.summaries(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, r := range all {
		if r.State == string(StateInProgress) {
			n++
		}
	}

	return n, nil
}

// Close shuts down every room. The registry is unusable afterwards.
func (g *Registry) Close(ctx context.Context) {
	for _, r := range g.snapshot() {
		if err := g.Remove(ctx, r.Code); err != nil && !errors.Is(err, ErrRoomNotFound) {
			g.logger.Warn().Err(err).Str("room", r.Code).Msg("room close failed")
		}
	}
}

// armEviction schedules a check that the room is still in the emptiness
// episode identified by epoch once the grace window has passed.
func (g *Registry) armEviction(r *Room, epoch uint64) {
	time.AfterFunc(g.grace, func() {
		g.evict(r, epoch)
	})
}

func (g *Registry) evict(r *Room, epoch uint64) {
	code := r.Code

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var evicted bool

	err := r.exec(ctx, func() error {
		evicted = r.evictLocked(epoch)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			g.logger.Warn().Err(err).Str("room", code).Msg("eviction check failed")
		}
		return
	}

	if !evicted {
		return
	}

	g.forget(r)

	g.logger.Info().Str("room", code).Dur("grace", g.grace).Msg("empty room evicted")
}

// forget drops r from the map, unless the code has since been reused.
func (g *Registry) forget(r *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.rooms[r.Code]; ok && cur == r {
		delete(g.rooms, r.Code)
	}
}
