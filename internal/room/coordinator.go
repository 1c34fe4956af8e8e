package room

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Seednode/bingohall/internal/events"
)

// Coordinator is the entry point for everything a client can do to a room.
// Each call is routed to its room's loop, so operations on one room are
// applied one at a time and in arrival order.
type Coordinator struct {
	reg *Registry
}

// NewCoordinator creates a coordinator over reg
func NewCoordinator(reg *Registry) (*Coordinator, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}

	return &Coordinator{reg: reg}, nil
}

// Registry returns the registry backing the coordinator
func (c *Coordinator) Registry() *Registry {
	return c.reg
}

// within runs fn on the loop of the room named by code.
func within[T any](ctx context.Context, c *Coordinator, code string, fn func(r *Room) (T, error)) (T, error) {
	var out T

	r, err := c.reg.Get(code)
	if err != nil {
		return out, err
	}

	err = r.exec(ctx, func() error {
		var err error
		out, err = fn(r)
		return err
	})

	return out, err
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrMalformedMessage
	}

	return name, nil
}

// OpenRoom creates a room and seats the caller as its host.
func (c *Coordinator) OpenRoom(ctx context.Context, input *OpenRoomInput) (*OpenRoomOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	host, err := cleanName(input.HostName)
	if err != nil {
		return nil, err
	}

	roomName := strings.TrimSpace(input.RoomName)
	if utf8.RuneCountInString(roomName) > MaxNameLength {
		return nil, ErrMalformedMessage
	}

	r, err := c.reg.Create(ctx, &CreateRoomInput{
		Name:       roomName,
		GameType:   input.GameType,
		Stake:      input.Stake,
		MaxPlayers: input.MaxPlayers,
	})
	if err != nil {
		return nil, err
	}

	joined, err := c.Join(ctx, &JoinInput{
		RoomCode:   r.Code,
		PlayerID:   input.HostID,
		PlayerName: host,
	})
	if err != nil {
		return nil, err
	}

	return &OpenRoomOutput{
		Code:     r.Code,
		PlayerID: joined.Player.ID,
		Room:     joined.Room,
	}, nil
}

// Join adds a player to a room, or re-sends the welcome if the id is already
// a member.
func (c *Coordinator) Join(ctx context.Context, input *JoinInput) (*JoinOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	name, err := cleanName(input.PlayerName)
	if err != nil {
		return nil, err
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (*JoinOutput, error) {
		return r.joinLocked(input.PlayerID, name)
	})
}

// Leave removes a player. Leaving twice is harmless.
func (c *Coordinator) Leave(ctx context.Context, input *LeaveInput) (*LeaveOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (*LeaveOutput, error) {
		return r.leaveLocked(input.PlayerID)
	})
}

// StartGame deals fresh boards and opens calling. Host only.
func (c *Coordinator) StartGame(ctx context.Context, input *HostActionInput) (*StartGameOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (*StartGameOutput, error) {
		return r.startGameLocked(input.RequesterID)
	})
}

// CallNumber draws the next number. Host only.
func (c *Coordinator) CallNumber(ctx context.Context, input *HostActionInput) (*CallNumberOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (*CallNumberOutput, error) {
		return r.callNumberLocked(input.RequesterID)
	})
}

// StopGame ends the current game without a winner. Host only.
func (c *Coordinator) StopGame(ctx context.Context, input *HostActionInput) error {
	if input == nil {
		return ErrMalformedMessage
	}

	_, err := within(ctx, c, input.RoomCode, func(r *Room) (struct{}, error) {
		return struct{}{}, r.stopGameLocked(input.RequesterID)
	})

	return err
}

// MarkNumber records a daub on a called number.
func (c *Coordinator) MarkNumber(ctx context.Context, input *MarkNumberInput) (*MarkNumberOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (*MarkNumberOutput, error) {
		return r.markNumberLocked(input.PlayerID, input.Number)
	})
}

// ClaimWin verifies a claim against the stored board. The first valid claim
// of a game wins; later ones see ErrGameAlreadyResolved.
func (c *Coordinator) ClaimWin(ctx context.Context, input *ClaimWinInput) (*ClaimWinOutput, error) {
	if input == nil {
		return nil, ErrMalformedMessage
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (*ClaimWinOutput, error) {
		return r.claimWinLocked(input.PlayerID, input.Pattern, input.Game)
	})
}

// UpdateSettings applies a host's settings patch.
func (c *Coordinator) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (events.Settings, error) {
	if input == nil {
		return events.Settings{}, ErrMalformedMessage
	}

	return within(ctx, c, input.RoomCode, func(r *Room) (events.Settings, error) {
		return r.updateSettingsLocked(input.RequesterID, input.Patch)
	})
}

// SetReady toggles a player's ready flag in the lobby.
func (c *Coordinator) SetReady(ctx context.Context, input *SetReadyInput) error {
	if input == nil {
		return ErrMalformedMessage
	}

	_, err := within(ctx, c, input.RoomCode, func(r *Room) (struct{}, error) {
		return struct{}{}, r.setReadyLocked(input.PlayerID, input.Ready)
	})

	return err
}

// Chat relays a message to every other member.
func (c *Coordinator) Chat(ctx context.Context, input *ChatInput) error {
	if input == nil {
		return ErrMalformedMessage
	}

	msg := strings.TrimSpace(input.Message)
	if msg == "" || utf8.RuneCountInString(msg) > MaxChatLength {
		return ErrMalformedMessage
	}

	_, err := within(ctx, c, input.RoomCode, func(r *Room) (struct{}, error) {
		return struct{}{}, r.chatLocked(input.SenderID, msg)
	})

	return err
}

// Summary returns a read-only view of a room.
func (c *Coordinator) Summary(ctx context.Context, code string) (*SummaryOutput, error) {
	return within(ctx, c, code, func(r *Room) (*SummaryOutput, error) {
		return &SummaryOutput{
			Room:    r.infoLocked(),
			Members: r.membersInfoLocked(),
		}, nil
	})
}
