package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Seednode/bingohall/internal/events"
	"github.com/Seednode/bingohall/internal/room"
)

// Inbound message types
const (
	msgJoin           = "join"
	msgLeave          = "leave"
	msgChat           = "chat"
	msgStartGame      = "start_game"
	msgCallNumber     = "call_number"
	msgMarkNumber     = "mark_number"
	msgClaimWin       = "claim_win"
	msgPlayerReady    = "player_ready"
	msgUpdateSettings = "update_settings"
	msgStopGame       = "stop_game"
	msgPing           = "ping"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`

	Name    string `json:"name,omitempty"`    // join
	Message string `json:"message,omitempty"` // chat
	Number  int    `json:"number,omitempty"`  // mark_number
	Pattern string `json:"pattern,omitempty"` // claim_win
	Game    int    `json:"game,omitempty"`    // claim_win
	Ready   *bool  `json:"ready,omitempty"`   // player_ready

	// update_settings; absent fields are left unchanged
	AutoCall       *bool    `json:"auto_call,omitempty"`
	CallIntervalMS *int64   `json:"call_interval_ms,omitempty"`
	Patterns       []string `json:"patterns,omitempty"`
	RequireMarks   *bool    `json:"require_marks,omitempty"`
}

func (m ClientMessage) settingsPatch() (room.SettingsPatch, error) {
	patch := room.SettingsPatch{
		AutoCall:     m.AutoCall,
		Patterns:     m.Patterns,
		RequireMarks: m.RequireMarks,
	}

	if m.CallIntervalMS != nil {
		ms := *m.CallIntervalMS
		if ms < room.MinCallInterval.Milliseconds() || ms > room.MaxCallInterval.Milliseconds() {
			return room.SettingsPatch{}, room.ErrInvalidSettings
		}

		d := time.Duration(ms) * time.Millisecond
		patch.CallInterval = &d
	}

	return patch, nil
}

// handleMessage applies one inbound frame on behalf of c. Results reach the
// room through the sink; only failures and pongs are answered here.
func (s *bingoServer) handleMessage(ctx context.Context, c *Client, raw []byte) {
	if err := s.dispatch(ctx, c, raw); err != nil {
		s.conns.deliver(c, s.errorEvent(c.room, err))

		c.log.Info().Err(err).Str("code", room.Code(err)).Msg("message rejected")
	}
}

func (s *bingoServer) dispatch(ctx context.Context, c *Client, raw []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return room.ErrMalformedMessage
	}

	host := &room.HostActionInput{RoomCode: c.room, RequesterID: c.playerID}

	switch msg.Type {
	case msgJoin:
		_, err := s.coord.Join(ctx, &room.JoinInput{
			RoomCode:   c.room,
			PlayerID:   c.playerID,
			PlayerName: msg.Name,
		})
		return err

	case msgLeave:
		_, err := s.coord.Leave(ctx, &room.LeaveInput{RoomCode: c.room, PlayerID: c.playerID})
		return err

	case msgChat:
		return s.coord.Chat(ctx, &room.ChatInput{
			RoomCode: c.room,
			SenderID: c.playerID,
			Message:  msg.Message,
		})

	case msgStartGame:
		_, err := s.coord.StartGame(ctx, host)
		return err

	case msgCallNumber:
		_, err := s.coord.CallNumber(ctx, host)
		return err

	case msgStopGame:
		return s.coord.StopGame(ctx, host)

	case msgMarkNumber:
		if msg.Number < 1 {
			return room.ErrMalformedMessage
		}
		_, err := s.coord.MarkNumber(ctx, &room.MarkNumberInput{
			RoomCode: c.room,
			PlayerID: c.playerID,
			Number:   msg.Number,
		})
		return err

	case msgClaimWin:
		if msg.Pattern == "" {
			return room.ErrMalformedMessage
		}
		_, err := s.coord.ClaimWin(ctx, &room.ClaimWinInput{
			RoomCode: c.room,
			PlayerID: c.playerID,
			Pattern:  msg.Pattern,
			Game:     msg.Game,
		})
		return err

	case msgPlayerReady:
		if msg.Ready == nil {
			return room.ErrMalformedMessage
		}
		return s.coord.SetReady(ctx, &room.SetReadyInput{
			RoomCode: c.room,
			PlayerID: c.playerID,
			Ready:    *msg.Ready,
		})

	case msgUpdateSettings:
		patch, err := msg.settingsPatch()
		if err != nil {
			return err
		}

		_, err = s.coord.UpdateSettings(ctx, &room.UpdateSettingsInput{
			RoomCode:    c.room,
			RequesterID: c.playerID,
			Patch:       patch,
		})
		return err

	case msgPing:
		s.conns.deliver(c, events.Event{
			Type:      events.TypePong,
			Room:      c.room,
			Timestamp: s.clock.Now(),
		})
		return nil

	default:
		return room.ErrMalformedMessage
	}
}

func (s *bingoServer) errorEvent(code string, err error) events.Event {
	wire := room.Code(err)

	msg := err.Error()
	if wire == "internal" {
		msg = room.ErrInternal.Error()
	}

	return events.Event{
		Type:      events.TypeError,
		Room:      code,
		Timestamp: s.clock.Now(),
		Data: events.Error{
			Code:    wire,
			Message: msg,
		},
	}
}
