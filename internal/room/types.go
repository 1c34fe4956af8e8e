package room

import (
	"time"

	"github.com/Seednode/bingohall/internal/board"
	"github.com/Seednode/bingohall/internal/common/clock"
	"github.com/Seednode/bingohall/internal/events"
	"github.com/Seednode/bingohall/internal/ident"
	"github.com/Seednode/bingohall/internal/presence"
	"github.com/rs/zerolog"
)

// State is where a room is in its game cycle
type State string

const (
	// StateLobby accepts joins; nothing is being drawn
	StateLobby State = "lobby"

	// StateInProgress permits calls, marks and claims
	StateInProgress State = "in_progress"
)

const (
	// DefaultEmptyRoomTimeout is how long an empty room survives
	DefaultEmptyRoomTimeout = 5 * time.Minute

	// DefaultCallInterval is the auto-call cadence for new rooms
	DefaultCallInterval = 5 * time.Second

	// MinCallInterval is the fastest auto-call cadence a host may pick
	MinCallInterval = time.Second

	// MaxCallInterval is the slowest auto-call cadence a host may pick
	MaxCallInterval = 10 * time.Minute

	// MaxNameLength bounds display and room names, in runes
	MaxNameLength = 32

	// MaxChatLength bounds a chat message, in runes
	MaxChatLength = 500
)

// Config holds configuration for the registry
type Config struct {
	// Boards produces cards and draws
	Boards *board.Generator

	// IDs produces room codes and player ids
	IDs *ident.Generator

	// Sink receives every outbound event
	Sink events.Sink

	// Clock stamps joins and events
	Clock clock.Clock

	// Presence is the process-wide online listing
	Presence *presence.Directory

	Logger zerolog.Logger

	// EmptyRoomTimeout is the eviction grace window; zero means the default
	EmptyRoomTimeout time.Duration

	// CallInterval is the default auto-call cadence; zero means the default
	CallInterval time.Duration

	// MaxPlayers caps what a room may request; zero means no cap
	MaxPlayers int

	// MaxRooms caps live rooms; zero means no cap
	MaxRooms int
}

// Settings are the host-adjustable knobs of a room
type Settings struct {
	AutoCall     bool
	CallInterval time.Duration
	Patterns     []string
	RequireMarks bool
}

// SettingsPatch carries the fields to change; nil means unchanged
type SettingsPatch struct {
	AutoCall     *bool
	CallInterval *time.Duration
	Patterns     []string
	RequireMarks *bool
}

// CreateRoomInput contains parameters for creating a room
type CreateRoomInput struct {
	// Name is the room's display name; the code is used when empty
	Name string

	GameType   board.GameType
	Stake      int64
	MaxPlayers int
}

// OpenRoomInput creates a room and seats its host
type OpenRoomInput struct {
	HostName   string
	RoomName   string
	GameType   board.GameType
	Stake      int64
	MaxPlayers int

	// HostID is an optional caller-chosen player id
	HostID string
}

// OpenRoomOutput contains the result of OpenRoom
type OpenRoomOutput struct {
	Code     string
	PlayerID string
	Room     events.RoomInfo
}

// JoinInput contains parameters for joining a room
type JoinInput struct {
	RoomCode string

	// PlayerID is optional; one is generated when empty. An id that is
	// already a member rejoins without a broadcast.
	PlayerID string

	PlayerName string
}

// JoinOutput contains the result of joining a room
type JoinOutput struct {
	Player   events.PlayerInfo
	Board    board.Board
	Room     events.RoomInfo
	Rejoined bool
}

// LeaveInput contains parameters for leaving a room
type LeaveInput struct {
	RoomCode string
	PlayerID string
}

// LeaveOutput contains the result of leaving a room
type LeaveOutput struct {
	// Left is false when the player was not a member
	Left bool

	// NewHostID is set when the host left and the role moved
	NewHostID string

	// Empty is true when the room has no players left
	Empty bool
}

// HostActionInput identifies a host-only request
type HostActionInput struct {
	RoomCode    string
	RequesterID string
}

// StartGameOutput contains the result of starting a game
type StartGameOutput struct {
	Game   int
	Boards map[string]board.Board
}

// CallNumberOutput contains the result of a call
type CallNumberOutput struct {
	Call board.Call

	// Ended is true when the pool was empty and the game ended instead
	Ended bool
}

// MarkNumberInput contains parameters for marking a number
type MarkNumberInput struct {
	RoomCode string
	PlayerID string
	Number   int
}

// MarkNumberOutput contains the result of marking a number
type MarkNumberOutput struct {
	// AlreadyMarked is true when the mark was a no-op
	AlreadyMarked bool
}

// ClaimWinInput contains parameters for claiming a win
type ClaimWinInput struct {
	RoomCode string
	PlayerID string
	Pattern  string

	// Game is the game number the claim is for; zero means the current one
	Game int
}

// ClaimWinOutput contains the result of a valid claim
type ClaimWinOutput struct {
	Game    int
	Pattern string
	Amount  int64
}

// UpdateSettingsInput contains a host's settings change
type UpdateSettingsInput struct {
	RoomCode    string
	RequesterID string
	Patch       SettingsPatch
}

// SetReadyInput toggles a player's ready flag
type SetReadyInput struct {
	RoomCode string
	PlayerID string
	Ready    bool
}

// ChatInput contains a chat line
type ChatInput struct {
	RoomCode string
	SenderID string
	Message  string
}

// SummaryOutput is a read-only view of a room
type SummaryOutput struct {
	Room    events.RoomInfo
	Members []events.PlayerInfo
}
