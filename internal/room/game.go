package room

import (
	"errors"
	"slices"

	"github.com/Seednode/bingohall/internal/board"
	"github.com/Seednode/bingohall/internal/events"
)

// Every method in this file runs on the room's loop.

func (r *Room) joinLocked(playerID, name string) (*JoinOutput, error) {
	if p, ok := r.players[playerID]; ok && playerID != "" {
		r.publish([]string{p.ID}, events.TypeWelcome, r.welcomeLocked(p))

		return &JoinOutput{
			Player:   r.playerInfoLocked(p),
			Board:    p.Board,
			Room:     r.infoLocked(),
			Rejoined: true,
		}, nil
	}

	if len(r.players) >= r.MaxPlayers {
		return nil, ErrRoomFull
	}

	if r.state != StateLobby {
		return nil, ErrGameInProgress
	}

	b, err := r.reg.boards.Board(r.GameType)
	if err != nil {
		return nil, err
	}

	if playerID == "" {
		playerID = r.reg.ids.NewPlayerID()
	}

	r.joinSeq++
	p := &Player{
		ID:       playerID,
		Name:     name,
		Board:    b,
		Marked:   make(map[int]bool),
		JoinedAt: r.reg.clock.Now(),
		seq:      r.joinSeq,
	}

	existing := r.idsLocked("")

	r.players[p.ID] = p
	if r.hostID == "" {
		r.hostID = p.ID
	}

	r.reg.presence.Join(r.presenceEntryLocked(p))

	r.publish(existing, events.TypePlayerJoined, events.PlayerJoined{
		Player: r.playerInfoLocked(p),
		Count:  len(r.players),
	})
	r.publish([]string{p.ID}, events.TypeWelcome, r.welcomeLocked(p))

	r.log.Info().Str("player", p.ID).Str("name", p.Name).Int("count", len(r.players)).Msg("player joined")

	return &JoinOutput{
		Player: r.playerInfoLocked(p),
		Board:  p.Board,
		Room:   r.infoLocked(),
	}, nil
}

func (r *Room) welcomeLocked(p *Player) events.Welcome {
	return events.Welcome{
		Player:  r.playerInfoLocked(p),
		Board:   p.Board,
		Room:    r.infoLocked(),
		Members: r.membersInfoLocked(),
	}
}

func (r *Room) leaveLocked(playerID string) (*LeaveOutput, error) {
	p, ok := r.players[playerID]
	if !ok {
		return &LeaveOutput{Empty: len(r.players) == 0}, nil
	}

	delete(r.players, playerID)
	r.reg.presence.Leave(playerID)

	out := &LeaveOutput{Left: true}
	remaining := r.idsLocked("")

	r.publish(remaining, events.TypePlayerLeft, events.PlayerLeft{
		PlayerID: p.ID,
		Name:     p.Name,
		Count:    len(r.players),
	})

	if r.hostID == playerID {
		r.hostID = ""

		if members := r.membersLocked(); len(members) > 0 {
			next := members[0]
			r.hostID = next.ID
			out.NewHostID = next.ID

			r.publish(remaining, events.TypeNewHost, events.NewHost{
				HostID: next.ID,
				Name:   next.Name,
			})

			r.log.Info().Str("player", next.ID).Msg("host migrated")
		}
	}

	r.log.Info().Str("player", p.ID).Int("count", len(r.players)).Msg("player left")

	if len(r.players) == 0 {
		out.Empty = true

		if r.state == StateInProgress {
			r.endGameLocked(events.ReasonAbandoned)
		}

		r.emptyEpoch++
		r.reg.armEviction(r, r.emptyEpoch)
	}

	return out, nil
}

func (r *Room) startGameLocked(requesterID string) (*StartGameOutput, error) {
	if requesterID != r.hostID {
		return nil, ErrUnauthorized
	}

	if r.state != StateLobby {
		return nil, ErrAlreadyInProgress
	}

	boards := make(map[string]board.Board, len(r.players))
	for _, p := range r.players {
		b, err := r.reg.boards.Board(r.GameType)
		if err != nil {
			return nil, err
		}
		boards[p.ID] = b
	}

	for _, p := range r.players {
		p.Board = boards[p.ID]
		p.Marked = make(map[int]bool)
		p.Ready = false
	}

	r.called = nil
	r.calledSet = make(map[int]bool)
	r.game++
	r.resolved = false
	r.state = StateInProgress

	r.publish(r.idsLocked(""), events.TypeGameStarted, events.GameStarted{
		Game:     r.game,
		GameType: r.GameType,
		Patterns: slices.Clone(r.settings.Patterns),
		Boards:   boards,
	})

	r.syncAutoCallLocked()

	r.log.Info().Int("game", r.game).Int("players", len(r.players)).Msg("game started")

	return &StartGameOutput{Game: r.game, Boards: boards}, nil
}

func (r *Room) callNumberLocked(requesterID string) (*CallNumberOutput, error) {
	if requesterID != r.hostID {
		return nil, ErrUnauthorized
	}

	if r.state != StateInProgress {
		return nil, ErrNotInProgress
	}

	return r.callLocked()
}

// callLocked draws the next number, ending the game when the pool is empty.
func (r *Room) callLocked() (*CallNumberOutput, error) {
	call, err := r.reg.boards.Draw(r.GameType, r.called)
	if errors.Is(err, board.ErrPoolExhausted) {
		r.endGameLocked(events.ReasonExhausted)

		return &CallNumberOutput{Ended: true}, nil
	}
	if err != nil {
		return nil, err
	}

	r.called = append(r.called, call.Number)
	r.calledSet[call.Number] = true

	r.publish(r.idsLocked(""), events.TypeNumberCalled, events.NumberCalled{
		Game:   r.game,
		Number: call.Number,
		Label:  call.Label,
		Count:  len(r.called),
	})

	r.log.Debug().Int("game", r.game).Str("call", call.Label).Msg("number called")

	return &CallNumberOutput{Call: call}, nil
}

func (r *Room) endGameLocked(reason string) {
	r.state = StateLobby
	r.resolved = true
	r.stopAutoCallLocked()

	r.publish(r.idsLocked(""), events.TypeGameEnded, events.GameEnded{
		Game:   r.game,
		Reason: reason,
	})

	r.log.Info().Int("game", r.game).Str("reason", reason).Msg("game ended")
}

func (r *Room) stopGameLocked(requesterID string) error {
	if requesterID != r.hostID {
		return ErrUnauthorized
	}

	if r.state != StateInProgress {
		return ErrNotInProgress
	}

	r.endGameLocked(events.ReasonStopped)

	return nil
}

func (r *Room) markNumberLocked(playerID string, n int) (*MarkNumberOutput, error) {
	if r.state != StateInProgress {
		return nil, ErrNotInProgress
	}

	p, ok := r.players[playerID]
	if !ok {
		return nil, ErrPlayerNotInRoom
	}

	if !r.calledSet[n] {
		return nil, ErrNumberNotCalled
	}

	if p.Marked[n] {
		return &MarkNumberOutput{AlreadyMarked: true}, nil
	}
	p.Marked[n] = true

	r.publish(r.idsLocked(p.ID), events.TypePlayerMarked, events.PlayerMarked{
		PlayerID: p.ID,
		Number:   n,
	})

	return &MarkNumberOutput{}, nil
}

func (r *Room) claimWinLocked(playerID, pattern string, game int) (*ClaimWinOutput, error) {
	if game != 0 && game < r.game {
		return nil, ErrGameAlreadyResolved
	}

	if r.state != StateInProgress {
		if r.resolved {
			return nil, ErrGameAlreadyResolved
		}
		return nil, ErrNotInProgress
	}

	if game > r.game {
		return nil, ErrNotInProgress
	}

	p, ok := r.players[playerID]
	if !ok {
		return nil, ErrPlayerNotInRoom
	}

	if !slices.Contains(r.settings.Patterns, pattern) {
		return nil, ErrUnknownPattern
	}

	// Coverage comes from the stored board and the room's own calls; marks
	// only count when the room demands them.
	hit := func(n int) bool {
		if !r.calledSet[n] {
			return false
		}
		return !r.settings.RequireMarks || p.Marked[n]
	}

	won, err := board.Check(p.Board, pattern, hit)
	if err != nil {
		return nil, ErrUnknownPattern
	}
	if !won {
		r.log.Info().Str("player", p.ID).Str("pattern", pattern).Msg("claim rejected")
		return nil, ErrInvalidClaim
	}

	amount := prize(r.Stake, len(r.players))
	p.Score += amount
	r.reg.presence.SetScore(p.ID, p.Score)

	r.state = StateLobby
	r.resolved = true
	r.stopAutoCallLocked()

	r.publish(r.idsLocked(""), events.TypeWinner, events.Winner{
		Game:     r.game,
		PlayerID: p.ID,
		Name:     p.Name,
		Pattern:  pattern,
		Amount:   amount,
	})

	r.log.Info().Str("player", p.ID).Str("pattern", pattern).Int64("amount", amount).Int("game", r.game).Msg("winner")

	return &ClaimWinOutput{Game: r.game, Pattern: pattern, Amount: amount}, nil
}

// prize is floor(stake * players * 0.8), in integers.
func prize(stake int64, players int) int64 {
	return stake * int64(players) * 4 / 5
}

func (r *Room) updateSettingsLocked(requesterID string, patch SettingsPatch) (events.Settings, error) {
	if requesterID != r.hostID {
		return events.Settings{}, ErrUnauthorized
	}

	next := r.settings

	if patch.Patterns != nil {
		if len(patch.Patterns) == 0 {
			return events.Settings{}, ErrInvalidSettings
		}

		patterns := make([]string, 0, len(patch.Patterns))
		for _, name := range patch.Patterns {
			if !board.Legal(r.GameType, name) {
				return events.Settings{}, ErrUnknownPattern
			}
			if !slices.Contains(patterns, name) {
				patterns = append(patterns, name)
			}
		}
		next.Patterns = patterns
	}

	if patch.CallInterval != nil {
		if *patch.CallInterval < MinCallInterval || *patch.CallInterval > MaxCallInterval {
			return events.Settings{}, ErrInvalidSettings
		}
		next.CallInterval = *patch.CallInterval
	}

	if patch.AutoCall != nil {
		next.AutoCall = *patch.AutoCall
	}

	if patch.RequireMarks != nil {
		next.RequireMarks = *patch.RequireMarks
	}

	r.settings = next
	info := r.settingsInfoLocked()

	r.publish(r.idsLocked(""), events.TypeSettingsUpdated, info)
	r.syncAutoCallLocked()

	return info, nil
}

func (r *Room) setReadyLocked(playerID string, ready bool) error {
	p, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotInRoom
	}

	if r.state != StateLobby {
		return ErrGameInProgress
	}

	p.Ready = ready

	r.publish(r.idsLocked(""), events.TypePlayerReady, events.PlayerReady{
		PlayerID: p.ID,
		Ready:    ready,
	})

	return nil
}

func (r *Room) chatLocked(senderID, message string) error {
	p, ok := r.players[senderID]
	if !ok {
		return ErrPlayerNotInRoom
	}

	r.publish(r.idsLocked(p.ID), events.TypeChat, events.Chat{
		PlayerID: p.ID,
		Name:     p.Name,
		Message:  message,
	})

	return nil
}

// evictLocked closes the room if it is still empty from the same emptiness
// episode that armed the timer.
func (r *Room) evictLocked(epoch uint64) bool {
	if len(r.players) != 0 || r.emptyEpoch != epoch {
		return false
	}

	r.closeLocked()

	return true
}
