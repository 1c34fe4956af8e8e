package room

import (
	"context"
	"errors"
)

// RoomError is a custom error type for room and game errors
type RoomError string

// Error implements the error interface
func (e RoomError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrRoomNotFound        RoomError = "room not found"
	ErrRoomFull            RoomError = "room is at maximum capacity"
	ErrGameInProgress      RoomError = "a game is in progress"
	ErrAlreadyInProgress   RoomError = "game already in progress"
	ErrNotInProgress       RoomError = "no game in progress"
	ErrUnauthorized        RoomError = "only the host may do that"
	ErrGameAlreadyResolved RoomError = "game already resolved"
	ErrUnknownPattern      RoomError = "win pattern not enabled for this room"
	ErrNumberNotCalled     RoomError = "number has not been called"
	ErrPoolExhausted       RoomError = "no numbers left to draw"
	ErrResourceExhausted   RoomError = "no room codes available"
	ErrMalformedMessage    RoomError = "malformed message"
	ErrInvalidClaim        RoomError = "board does not satisfy the pattern"
	ErrPlayerNotInRoom     RoomError = "player not in room"
	ErrInvalidGameType     RoomError = "unsupported game type"
	ErrInvalidMaxPlayers   RoomError = "invalid max players"
	ErrInvalidStake        RoomError = "stake cannot be negative"
	ErrInvalidSettings     RoomError = "invalid settings"
	ErrInternal            RoomError = "internal error"
	ErrNilConfig           RoomError = "config cannot be nil"
	ErrNilBoardGenerator   RoomError = "board generator cannot be nil"
	ErrNilIDGenerator      RoomError = "id generator cannot be nil"
	ErrNilSink             RoomError = "event sink cannot be nil"
	ErrNilClock            RoomError = "clock cannot be nil"
	ErrNilPresence         RoomError = "presence directory cannot be nil"
	ErrNilRegistry         RoomError = "registry cannot be nil"
)

var codes = map[RoomError]string{
	ErrRoomNotFound:        "room_not_found",
	ErrRoomFull:            "room_full",
	ErrGameInProgress:      "game_in_progress",
	ErrAlreadyInProgress:   "already_in_progress",
	ErrNotInProgress:       "not_in_progress",
	ErrUnauthorized:        "unauthorized",
	ErrGameAlreadyResolved: "game_already_resolved",
	ErrUnknownPattern:      "unknown_pattern",
	ErrNumberNotCalled:     "number_not_called",
	ErrPoolExhausted:       "pool_exhausted",
	ErrResourceExhausted:   "resource_exhausted",
	ErrMalformedMessage:    "malformed_message",
	ErrInvalidClaim:        "invalid_claim",
	ErrPlayerNotInRoom:     "player_not_in_room",
	ErrInvalidGameType:     "invalid_game_type",
	ErrInvalidMaxPlayers:   "invalid_max_players",
	ErrInvalidStake:        "invalid_stake",
	ErrInvalidSettings:     "invalid_settings",
}

// Code returns the wire code for err, "internal" for anything unknown.
func Code(err error) string {
	var re RoomError
	if errors.As(err, &re) {
		if c, ok := codes[re]; ok {
			return c
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	return "internal"
}
