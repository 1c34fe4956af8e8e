// Package events defines what a room tells its members. The room package
// produces Envelopes; the transport delivers them best-effort through a Sink.
package events

import (
	"time"

	"github.com/Seednode/bingohall/internal/board"
)

// Type names an outbound event on the wire
type Type string

const (
	TypeWelcome         Type = "welcome"
	TypePlayerJoined    Type = "player_joined"
	TypePlayerLeft      Type = "player_left"
	TypeNewHost         Type = "new_host"
	TypeGameStarted     Type = "game_started"
	TypeNumberCalled    Type = "number_called"
	TypePlayerMarked    Type = "player_marked"
	TypeWinner          Type = "winner"
	TypeGameEnded       Type = "game_ended"
	TypeChat            Type = "chat"
	TypeSettingsUpdated Type = "settings_updated"
	TypePlayerReady     Type = "player_ready"
	TypeError           Type = "error"
	TypePong            Type = "pong"
)

// Reasons carried by GameEnded
const (
	ReasonExhausted = "exhausted"
	ReasonStopped   = "stopped"
	ReasonAbandoned = "abandoned"
)

// Event is one message for one or more room members
type Event struct {
	Type      Type      `json:"type"`
	Room      string    `json:"room,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Envelope addresses an Event to a set of player ids
type Envelope struct {
	To    []string
	Event Event
}

//go:generate mockgen -package=mocks -destination=mocks/mock_sink.go github.com/Seednode/bingohall/internal/events Sink

// Sink delivers envelopes. Publish must not block on slow recipients, and a
// failed delivery to one recipient must not affect the others.
type Sink interface {
	Publish(env Envelope)
}

// PlayerInfo is the public view of a room member
type PlayerInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"is_host"`
	Ready    bool      `json:"ready"`
	Score    int64     `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// Settings is the public view of room settings
type Settings struct {
	AutoCall       bool     `json:"auto_call"`
	CallIntervalMS int64    `json:"call_interval_ms"`
	Patterns       []string `json:"patterns"`
	RequireMarks   bool     `json:"require_marks"`
}

// RoomInfo summarises a room for discovery and welcomes
type RoomInfo struct {
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	HostID     string         `json:"host_id,omitempty"`
	GameType   board.GameType `json:"game_type"`
	Stake      int64          `json:"stake"`
	MaxPlayers int            `json:"max_players"`
	Players    int            `json:"players"`
	State      string         `json:"state"`
	Game       int            `json:"game"`
	Called     []int          `json:"called"`
	Settings   Settings       `json:"settings"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Welcome struct {
	Player  PlayerInfo   `json:"player"`
	Board   board.Board  `json:"board"`
	Room    RoomInfo     `json:"room"`
	Members []PlayerInfo `json:"members"`
}

type PlayerJoined struct {
	Player PlayerInfo `json:"player"`
	Count  int        `json:"count"`
}

type PlayerLeft struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

type NewHost struct {
	HostID string `json:"host_id"`
	Name   string `json:"name"`
}

type GameStarted struct {
	Game     int                    `json:"game"`
	GameType board.GameType         `json:"game_type"`
	Patterns []string               `json:"patterns"`
	Boards   map[string]board.Board `json:"boards"`
}

type NumberCalled struct {
	Game   int    `json:"game"`
	Number int    `json:"number"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

type PlayerMarked struct {
	PlayerID string `json:"player_id"`
	Number   int    `json:"number"`
}

type Winner struct {
	Game     int    `json:"game"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Amount   int64  `json:"amount"`
}

type GameEnded struct {
	Game   int    `json:"game"`
	Reason string `json:"reason"`
}

type Chat struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Message  string `json:"message"`
}

type PlayerReady struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
