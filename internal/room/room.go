package room

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Seednode/bingohall/internal/board"
	"github.com/Seednode/bingohall/internal/events"
	"github.com/Seednode/bingohall/internal/presence"
	"github.com/rs/zerolog"
)

// Player is a room member. It is owned by its Room and only touched from
// the room's loop.
type Player struct {
	ID       string
	Name     string
	Ready    bool
	Score    int64
	Board    board.Board
	Marked   map[int]bool
	JoinedAt time.Time

	// seq breaks JoinedAt ties
	seq uint64
}

type op struct {
	fn    func() error
	reply chan error
}

// Room is one bingo session. Identity fields are immutable; everything else
// belongs to the goroutine started by run and is reached through exec.
type Room struct {
	Code       string
	Name       string
	GameType   board.GameType
	Stake      int64
	MaxPlayers int
	CreatedAt  time.Time

	hostID     string
	players    map[string]*Player
	state      State
	called     []int
	calledSet  map[int]bool
	settings   Settings
	game       int
	resolved   bool
	joinSeq    uint64
	emptyEpoch uint64
	closed     bool
	ticker     *time.Ticker

	reg  *Registry
	log  zerolog.Logger
	ops  chan op
	quit chan struct{}
	once sync.Once
}

func newRoom(reg *Registry, code string, in *CreateRoomInput) *Room {
	name := in.Name
	if name == "" {
		name = code
	}

	return &Room{
		Code:       code,
		Name:       name,
		GameType:   in.GameType,
		Stake:      in.Stake,
		MaxPlayers: in.MaxPlayers,
		CreatedAt:  reg.clock.Now(),
		players:    make(map[string]*Player),
		state:      StateLobby,
		calledSet:  make(map[int]bool),
		settings: Settings{
			CallInterval: reg.callInterval,
			Patterns:     board.DefaultPatterns(in.GameType),
		},
		emptyEpoch: 1,
		reg:        reg,
		log:        reg.logger.With().Str("room", code).Logger(),
		ops:        make(chan op),
		quit:       make(chan struct{}),
	}
}

// run processes operations one at a time until the room is closed.
func (r *Room) run() {
	defer r.stopAutoCallLocked()

	for {
		var tick <-chan time.Time
		if r.ticker != nil {
			tick = r.ticker.C
		}

		select {
		case o := <-r.ops:
			o.reply <- r.apply(o.fn)
		case <-tick:
			_ = r.apply(func() error {
				r.autoCallLocked()
				return nil
			})
		case <-r.quit:
			return
		}
	}
}

func (r *Room) apply(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("room operation panicked")
			err = ErrInternal
		}
	}()

	if r.closed {
		return ErrRoomNotFound
	}

	return fn()
}

// exec runs fn on the room's loop and waits for it. ctx only bounds the
// wait for the loop to accept fn; once accepted, fn runs to completion and
// its result is returned, so a caller never sees a timeout for a change
// that was applied.
func (r *Room) exec(ctx context.Context, fn func() error) error {
	o := op{fn: fn, reply: make(chan error, 1)}

	select {
	case r.ops <- o:
	case <-r.quit:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-o.reply
}

// closeLocked stops the loop and forgets the members.
func (r *Room) closeLocked() {
	r.closed = true
	r.stopAutoCallLocked()

	for id := range r.players {
		r.reg.presence.Leave(id)
	}

	r.once.Do(func() { close(r.quit) })
}

func (r *Room) publish(to []string, typ events.Type, data any) {
	if len(to) == 0 {
		return
	}

	r.reg.sink.Publish(events.Envelope{
		To: to,
		Event: events.Event{
			Type:      typ,
			Room:      r.Code,
			Timestamp: r.reg.clock.Now(),
			Data:      data,
		},
	})
}

// membersLocked returns players ordered by join time.
func (r *Room) membersLocked() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b *Player) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if a.seq < b.seq {
			return -1
		}
		if a.seq > b.seq {
			return 1
		}
		return 0
	})

	return out
}

func (r *Room) idsLocked(except string) []string {
	members := r.membersLocked()

	out := make([]string, 0, len(members))
	for _, p := range members {
		if p.ID != except {
			out = append(out, p.ID)
		}
	}

	return out
}

func (r *Room) playerInfoLocked(p *Player) events.PlayerInfo {
	return events.PlayerInfo{
		ID:       p.ID,
		Name:     p.Name,
		IsHost:   p.ID == r.hostID,
		Ready:    p.Ready,
		Score:    p.Score,
		JoinedAt: p.JoinedAt,
	}
}

func (r *Room) membersInfoLocked() []events.PlayerInfo {
	members := r.membersLocked()

	out := make([]events.PlayerInfo, 0, len(members))
	for _, p := range members {
		out = append(out, r.playerInfoLocked(p))
	}

	return out
}

func (r *Room) settingsInfoLocked() events.Settings {
	return events.Settings{
		AutoCall:       r.settings.AutoCall,
		CallIntervalMS: r.settings.CallInterval.Milliseconds(),
		Patterns:       slices.Clone(r.settings.Patterns),
		RequireMarks:   r.settings.RequireMarks,
	}
}

func (r *Room) infoLocked() events.RoomInfo {
	called := slices.Clone(r.called)
	if called == nil {
		called = []int{}
	}

	return events.RoomInfo{
		Code:       r.Code,
		Name:       r.Name,
		HostID:     r.hostID,
		GameType:   r.GameType,
		Stake:      r.Stake,
		MaxPlayers: r.MaxPlayers,
		Players:    len(r.players),
		State:      string(r.state),
		Game:       r.game,
		Called:     called,
		Settings:   r.settingsInfoLocked(),
		CreatedAt:  r.CreatedAt,
	}
}

func (r *Room) presenceEntryLocked(p *Player) presence.Entry {
	return presence.Entry{
		ID:       p.ID,
		Name:     p.Name,
		Room:     r.Code,
		Score:    p.Score,
		JoinedAt: p.JoinedAt,
	}
}

// syncAutoCallLocked starts, retimes or stops the auto-call ticker to match
// the current state and settings.
func (r *Room) syncAutoCallLocked() {
	if r.state != StateInProgress || !r.settings.AutoCall {
		r.stopAutoCallLocked()
		return
	}

	if r.ticker == nil {
		r.ticker = time.NewTicker(r.settings.CallInterval)
		return
	}

	r.ticker.Reset(r.settings.CallInterval)
}

func (r *Room) stopAutoCallLocked() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Room) autoCallLocked() {
	if r.closed || r.state != StateInProgress {
		r.stopAutoCallLocked()
		return
	}

	if _, err := r.callLocked(); err != nil {
		r.log.Warn().Err(err).Msg("auto-call failed")
	}
}
