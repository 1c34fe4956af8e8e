package room

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Seednode/bingohall/internal/board"
	clockMocks "github.com/Seednode/bingohall/internal/common/clock/mocks"
	uuidMocks "github.com/Seednode/bingohall/internal/common/uuid/mocks"
	"github.com/Seednode/bingohall/internal/events"
	eventMocks "github.com/Seednode/bingohall/internal/events/mocks"
	"github.com/Seednode/bingohall/internal/ident"
	"github.com/Seednode/bingohall/internal/presence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// recorder collects everything the rooms publish.
type recorder struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (r *recorder) add(env events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.envs = append(r.envs, env)
}

func (r *recorder) all() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]events.Envelope(nil), r.envs...)
}

func (r *recorder) ofType(t events.Type) []events.Envelope {
	var out []events.Envelope
	for _, env := range r.all() {
		if env.Event.Type == t {
			out = append(out, env)
		}
	}

	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.envs = nil
}

type CoordinatorTestSuite struct {
	suite.Suite
	mockCtrl  *gomock.Controller
	mockClock *clockMocks.MockClock
	mockUUID  *uuidMocks.MockUUID
	mockSink  *eventMocks.MockSink
	rec       *recorder
	presence  *presence.Directory
	reg       *Registry
	coord     *Coordinator
	ctx       context.Context

	testTime time.Time
	ticks    atomic.Int64
	uuids    atomic.Int64
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)
	s.mockUUID = uuidMocks.NewMockUUID(s.mockCtrl)
	s.mockSink = eventMocks.NewMockSink(s.mockCtrl)
	s.rec = &recorder{}
	s.presence = presence.New()
	s.ctx = context.Background()

	s.testTime = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	s.ticks.Store(0)
	s.uuids.Store(0)

	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time {
		return s.testTime.Add(time.Duration(s.ticks.Add(1)) * time.Millisecond)
	}).AnyTimes()

	s.mockUUID.EXPECT().NewUUID().DoAndReturn(func() string {
		return fmt.Sprintf("player-%d", s.uuids.Add(1))
	}).AnyTimes()

	s.mockSink.EXPECT().Publish(gomock.Any()).Do(s.rec.add).AnyTimes()

	s.reg, s.coord = s.newCoordinator(time.Hour, 0)
}

func (s *CoordinatorTestSuite) TearDownTest() {
	s.reg.Close(s.ctx)
	s.mockCtrl.Finish()
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func (s *CoordinatorTestSuite) newCoordinator(grace time.Duration, maxRooms int) (*Registry, *Coordinator) {
	ids, err := ident.New(&ident.Config{UUIDGenerator: s.mockUUID})
	s.Require().NoError(err)

	reg, err := NewRegistry(&Config{
		Boards:           board.NewSeeded(1, 2),
		IDs:              ids,
		Sink:             s.mockSink,
		Clock:            s.mockClock,
		Presence:         s.presence,
		Logger:           zerolog.New(io.Discard),
		EmptyRoomTimeout: grace,
		MaxRooms:         maxRooms,
	})
	s.Require().NoError(err)

	coord, err := NewCoordinator(reg)
	s.Require().NoError(err)

	return reg, coord
}

func (s *CoordinatorTestSuite) open(maxPlayers int, stake int64) (string, string) {
	out, err := s.coord.OpenRoom(s.ctx, &OpenRoomInput{
		HostName:   "Host",
		RoomName:   "Friday Night",
		GameType:   board.Ball75,
		Stake:      stake,
		MaxPlayers: maxPlayers,
	})
	s.Require().NoError(err)

	return out.Code, out.PlayerID
}

func (s *CoordinatorTestSuite) join(code, name string) string {
	out, err := s.coord.Join(s.ctx, &JoinInput{RoomCode: code, PlayerName: name})
	s.Require().NoError(err)

	return out.Player.ID
}

func (s *CoordinatorTestSuite) start(code, host string) *StartGameOutput {
	out, err := s.coord.StartGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.Require().NoError(err)

	return out
}

// callUntil calls numbers until done reports true for the called set.
func (s *CoordinatorTestSuite) callUntil(code, host string, done func(called map[int]bool) bool) map[int]bool {
	called := make(map[int]bool)
	for !done(called) {
		out, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
		s.Require().NoError(err)
		s.Require().False(out.Ended)

		called[out.Call.Number] = true
	}

	return called
}

func covers(b board.Board, pattern string) func(map[int]bool) bool {
	return func(called map[int]bool) bool {
		ok, _ := board.Check(b, pattern, func(n int) bool { return called[n] })
		return ok
	}
}

func recipients(env events.Envelope) []string {
	return env.To
}

func (s *CoordinatorTestSuite) TestNewRegistry_NilDeps() {
	_, err := NewRegistry(nil)
	s.ErrorIs(err, ErrNilConfig)

	_, err = NewRegistry(&Config{})
	s.ErrorIs(err, ErrNilBoardGenerator)

	_, err = NewRegistry(&Config{Boards: board.New()})
	s.ErrorIs(err, ErrNilIDGenerator)

	_, err = NewCoordinator(nil)
	s.ErrorIs(err, ErrNilRegistry)
}

func (s *CoordinatorTestSuite) TestOpenRoom_SeatsHost() {
	code, host := s.open(4, 100)

	sum, err := s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.Equal(host, sum.Room.HostID)
	s.Equal("Friday Night", sum.Room.Name)
	s.Equal(string(StateLobby), sum.Room.State)
	s.Require().Len(sum.Members, 1)
	s.True(sum.Members[0].IsHost)

	welcomes := s.rec.ofType(events.TypeWelcome)
	s.Require().Len(welcomes, 1)
	s.Equal([]string{host}, recipients(welcomes[0]))

	online := s.presence.Online()
	s.Require().Len(online, 1)
	s.Equal(code, online[0].Room)
	s.Equal(uint64(1), s.presence.Stats().RoomsCreated)
}

func (s *CoordinatorTestSuite) TestOpenRoom_Validation() {
	_, err := s.coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "Host", GameType: "bogus", MaxPlayers: 4})
	s.ErrorIs(err, ErrInvalidGameType)

	_, err = s.coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "Host", GameType: board.Ball75, MaxPlayers: 0})
	s.ErrorIs(err, ErrInvalidMaxPlayers)

	_, err = s.coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "Host", GameType: board.Ball75, MaxPlayers: 4, Stake: -1})
	s.ErrorIs(err, ErrInvalidStake)

	_, err = s.coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "   ", GameType: board.Ball75, MaxPlayers: 4})
	s.ErrorIs(err, ErrMalformedMessage)

	s.Equal(0, s.reg.Len())
}

func (s *CoordinatorTestSuite) TestOpenRoom_MaxRooms() {
	reg, coord := s.newCoordinator(time.Hour, 1)
	defer reg.Close(s.ctx)

	_, err := coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "A", GameType: board.Ball75, MaxPlayers: 2})
	s.Require().NoError(err)

	_, err = coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "B", GameType: board.Ball75, MaxPlayers: 2})
	s.ErrorIs(err, ErrResourceExhausted)
}

func (s *CoordinatorTestSuite) TestJoin_NotifiesExistingMembers() {
	code, host := s.open(4, 0)
	s.rec.reset()

	alice := s.join(code, "Alice")

	joined := s.rec.ofType(events.TypePlayerJoined)
	s.Require().Len(joined, 1)
	s.Equal([]string{host}, recipients(joined[0]))
	data := joined[0].Event.Data.(events.PlayerJoined)
	s.Equal(alice, data.Player.ID)
	s.Equal(2, data.Count)

	welcomes := s.rec.ofType(events.TypeWelcome)
	s.Require().Len(welcomes, 1)
	s.Equal([]string{alice}, recipients(welcomes[0]))
	s.Len(welcomes[0].Event.Data.(events.Welcome).Members, 2)
}

func (s *CoordinatorTestSuite) TestJoin_RoomNotFound() {
	_, err := s.coord.Join(s.ctx, &JoinInput{RoomCode: "no-such-room", PlayerName: "Alice"})
	s.ErrorIs(err, ErrRoomNotFound)
}

func (s *CoordinatorTestSuite) TestJoin_RoomFull() {
	code, _ := s.open(2, 0)
	s.join(code, "Alice")

	_, err := s.coord.Join(s.ctx, &JoinInput{RoomCode: code, PlayerName: "Bob"})
	s.ErrorIs(err, ErrRoomFull)
}

func (s *CoordinatorTestSuite) TestJoin_GameInProgress() {
	code, host := s.open(4, 0)
	s.start(code, host)

	_, err := s.coord.Join(s.ctx, &JoinInput{RoomCode: code, PlayerName: "Late"})
	s.ErrorIs(err, ErrGameInProgress)
}

func (s *CoordinatorTestSuite) TestJoin_RejoinSendsWelcomeOnly() {
	code, _ := s.open(4, 0)
	alice := s.join(code, "Alice")
	s.rec.reset()

	out, err := s.coord.Join(s.ctx, &JoinInput{RoomCode: code, PlayerID: alice, PlayerName: "Alice"})
	s.Require().NoError(err)
	s.True(out.Rejoined)

	all := s.rec.all()
	s.Require().Len(all, 1)
	s.Equal(events.TypeWelcome, all[0].Event.Type)
	s.Equal([]string{alice}, recipients(all[0]))
}

func (s *CoordinatorTestSuite) TestJoin_NameValidation() {
	code, _ := s.open(4, 0)

	_, err := s.coord.Join(s.ctx, &JoinInput{RoomCode: code, PlayerName: ""})
	s.ErrorIs(err, ErrMalformedMessage)

	long := make([]rune, MaxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.coord.Join(s.ctx, &JoinInput{RoomCode: code, PlayerName: string(long)})
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CoordinatorTestSuite) TestLeave_MigratesHostToEarliestJoiner() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")
	bob := s.join(code, "Bob")
	s.rec.reset()

	out, err := s.coord.Leave(s.ctx, &LeaveInput{RoomCode: code, PlayerID: host})
	s.Require().NoError(err)
	s.True(out.Left)
	s.Equal(alice, out.NewHostID)
	s.False(out.Empty)

	all := s.rec.all()
	s.Require().Len(all, 2)
	s.Equal(events.TypePlayerLeft, all[0].Event.Type)
	s.Equal(events.TypeNewHost, all[1].Event.Type)
	s.ElementsMatch([]string{alice, bob}, recipients(all[1]))
	s.Equal(alice, all[1].Event.Data.(events.NewHost).HostID)

	_, err = s.coord.StartGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: bob})
	s.ErrorIs(err, ErrUnauthorized)
	s.start(code, alice)
}

func (s *CoordinatorTestSuite) TestLeave_Idempotent() {
	code, _ := s.open(4, 0)
	alice := s.join(code, "Alice")

	_, err := s.coord.Leave(s.ctx, &LeaveInput{RoomCode: code, PlayerID: alice})
	s.Require().NoError(err)
	s.rec.reset()

	out, err := s.coord.Leave(s.ctx, &LeaveInput{RoomCode: code, PlayerID: alice})
	s.Require().NoError(err)
	s.False(out.Left)
	s.Empty(s.rec.all())
}

func (s *CoordinatorTestSuite) TestLeave_LastPlayerAbandonsGame() {
	code, host := s.open(4, 0)
	s.start(code, host)

	out, err := s.coord.Leave(s.ctx, &LeaveInput{RoomCode: code, PlayerID: host})
	s.Require().NoError(err)
	s.True(out.Empty)

	sum, err := s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.Equal(string(StateLobby), sum.Room.State)
	s.Empty(s.presence.Online())
}

func (s *CoordinatorTestSuite) TestStartGame_Guards() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")

	_, err := s.coord.StartGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: alice})
	s.ErrorIs(err, ErrUnauthorized)

	out := s.start(code, host)
	s.Equal(1, out.Game)
	s.Len(out.Boards, 2)

	_, err = s.coord.StartGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.ErrorIs(err, ErrAlreadyInProgress)

	started := s.rec.ofType(events.TypeGameStarted)
	s.Require().Len(started, 1)
	s.ElementsMatch([]string{host, alice}, recipients(started[0]))
}

func (s *CoordinatorTestSuite) TestCallNumber_Guards() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")

	_, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.ErrorIs(err, ErrNotInProgress)

	s.start(code, host)

	_, err = s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: alice})
	s.ErrorIs(err, ErrUnauthorized)

	out, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.Require().NoError(err)
	s.GreaterOrEqual(out.Call.Number, 1)
	s.LessOrEqual(out.Call.Number, 75)
	s.Equal(board.Label(board.Ball75, out.Call.Number), out.Call.Label)
}

func (s *CoordinatorTestSuite) TestCallNumber_PoolExhaustedEndsGame() {
	out, err := s.coord.OpenRoom(s.ctx, &OpenRoomInput{HostName: "Host", GameType: board.Ball30, MaxPlayers: 2})
	s.Require().NoError(err)
	code, host := out.Code, out.PlayerID
	s.start(code, host)

	seen := make(map[int]bool)
	for range 30 {
		call, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
		s.Require().NoError(err)
		s.False(seen[call.Call.Number])
		seen[call.Call.Number] = true
	}

	last, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.Require().NoError(err)
	s.True(last.Ended)

	ended := s.rec.ofType(events.TypeGameEnded)
	s.Require().Len(ended, 1)
	s.Equal(events.ReasonExhausted, ended[0].Event.Data.(events.GameEnded).Reason)

	_, err = s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.ErrorIs(err, ErrNotInProgress)
}

func (s *CoordinatorTestSuite) TestMarkNumber() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")

	_, err := s.coord.MarkNumber(s.ctx, &MarkNumberInput{RoomCode: code, PlayerID: alice, Number: 1})
	s.ErrorIs(err, ErrNotInProgress)

	s.start(code, host)

	call, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.Require().NoError(err)

	uncalled := call.Call.Number%75 + 1
	_, err = s.coord.MarkNumber(s.ctx, &MarkNumberInput{RoomCode: code, PlayerID: alice, Number: uncalled})
	s.ErrorIs(err, ErrNumberNotCalled)

	s.rec.reset()

	out, err := s.coord.MarkNumber(s.ctx, &MarkNumberInput{RoomCode: code, PlayerID: alice, Number: call.Call.Number})
	s.Require().NoError(err)
	s.False(out.AlreadyMarked)

	marked := s.rec.ofType(events.TypePlayerMarked)
	s.Require().Len(marked, 1)
	s.Equal([]string{host}, recipients(marked[0]))

	out, err = s.coord.MarkNumber(s.ctx, &MarkNumberInput{RoomCode: code, PlayerID: alice, Number: call.Call.Number})
	s.Require().NoError(err)
	s.True(out.AlreadyMarked)
	s.Len(s.rec.ofType(events.TypePlayerMarked), 1)
}

func (s *CoordinatorTestSuite) TestClaimWin_FullHousePaysPot() {
	code, host := s.open(4, 100)
	s.join(code, "Alice")
	s.join(code, "Bob")
	s.join(code, "Carol")

	started := s.start(code, host)
	s.callUntil(code, host, covers(started.Boards[host], board.PatternFullHouse))

	out, err := s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternFullHouse})
	s.Require().NoError(err)
	s.Equal(int64(320), out.Amount)
	s.Equal(1, out.Game)

	winners := s.rec.ofType(events.TypeWinner)
	s.Require().Len(winners, 1)
	s.Len(recipients(winners[0]), 4)
	s.Equal(int64(320), winners[0].Event.Data.(events.Winner).Amount)

	sum, err := s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.Equal(string(StateLobby), sum.Room.State)
	s.Equal(int64(320), sum.Members[0].Score)

	_, err = s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternFullHouse, Game: 1})
	s.ErrorIs(err, ErrGameAlreadyResolved)
}

func (s *CoordinatorTestSuite) TestClaimWin_InvalidClaimKeepsGameRunning() {
	code, host := s.open(4, 100)
	s.start(code, host)
	s.rec.reset()

	_, err := s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternRow})
	s.ErrorIs(err, ErrInvalidClaim)
	s.Empty(s.rec.all())

	sum, err := s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.Equal(string(StateInProgress), sum.Room.State)
}

func (s *CoordinatorTestSuite) TestClaimWin_PatternMustBeEnabled() {
	code, host := s.open(4, 0)
	s.start(code, host)

	_, err := s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternX})
	s.ErrorIs(err, ErrUnknownPattern)

	_, err = s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{Patterns: []string{board.PatternFullHouse}},
	})
	s.Require().NoError(err)

	_, err = s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternRow})
	s.ErrorIs(err, ErrUnknownPattern)
}

func (s *CoordinatorTestSuite) TestClaimWin_NotInProgress() {
	code, host := s.open(4, 0)

	_, err := s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternRow})
	s.ErrorIs(err, ErrNotInProgress)
}

func (s *CoordinatorTestSuite) TestClaimWin_ConcurrentClaimsPayOnce() {
	code, host := s.open(4, 50)
	alice := s.join(code, "Alice")
	s.start(code, host)

	for range 75 {
		_, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
		s.Require().NoError(err)
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, id := range []string{host, alice} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: id, Pattern: board.PatternFullHouse, Game: 1})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, ErrGameAlreadyResolved)
	}
	s.Equal(1, wins)
	s.Len(s.rec.ofType(events.TypeWinner), 1)
}

func (s *CoordinatorTestSuite) TestClaimWin_RequireMarks() {
	code, host := s.open(4, 10)
	require := true
	_, err := s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{RequireMarks: &require},
	})
	s.Require().NoError(err)

	started := s.start(code, host)
	b := started.Boards[host]
	called := s.callUntil(code, host, covers(b, board.PatternColumn))

	_, err = s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternColumn})
	s.ErrorIs(err, ErrInvalidClaim)

	for _, n := range b.Numbers() {
		if called[n] {
			_, err := s.coord.MarkNumber(s.ctx, &MarkNumberInput{RoomCode: code, PlayerID: host, Number: n})
			s.Require().NoError(err)
		}
	}

	out, err := s.coord.ClaimWin(s.ctx, &ClaimWinInput{RoomCode: code, PlayerID: host, Pattern: board.PatternColumn})
	s.Require().NoError(err)
	s.Equal(int64(8), out.Amount)
}

func (s *CoordinatorTestSuite) TestStartGame_NewGameDealsFreshState() {
	code, host := s.open(4, 0)
	s.start(code, host)

	_, err := s.coord.CallNumber(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host})
	s.Require().NoError(err)
	s.Require().NoError(s.coord.StopGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host}))

	out := s.start(code, host)
	s.Equal(2, out.Game)

	sum, err := s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.Empty(sum.Room.Called)
	s.Equal(2, sum.Room.Game)
}

func (s *CoordinatorTestSuite) TestStopGame() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")

	s.ErrorIs(s.coord.StopGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host}), ErrNotInProgress)

	s.start(code, host)
	s.ErrorIs(s.coord.StopGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: alice}), ErrUnauthorized)
	s.Require().NoError(s.coord.StopGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host}))

	ended := s.rec.ofType(events.TypeGameEnded)
	s.Require().Len(ended, 1)
	s.Equal(events.ReasonStopped, ended[0].Event.Data.(events.GameEnded).Reason)
}

func (s *CoordinatorTestSuite) TestUpdateSettings() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")

	_, err := s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{RoomCode: code, RequesterID: alice})
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{Patterns: []string{board.PatternTwoLines}},
	})
	s.ErrorIs(err, ErrUnknownPattern)

	fast := 100 * time.Millisecond
	_, err = s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{CallInterval: &fast},
	})
	s.ErrorIs(err, ErrInvalidSettings)

	slow := MaxCallInterval + time.Second
	_, err = s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{CallInterval: &slow},
	})
	s.ErrorIs(err, ErrInvalidSettings)

	_, err = s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{Patterns: []string{}},
	})
	s.ErrorIs(err, ErrInvalidSettings)

	s.rec.reset()

	interval := 2 * time.Second
	got, err := s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch: SettingsPatch{
			CallInterval: &interval,
			Patterns:     []string{board.PatternRow, board.PatternRow, board.PatternDiagonal},
		},
	})
	s.Require().NoError(err)
	s.Equal(int64(2000), got.CallIntervalMS)
	s.Equal([]string{board.PatternRow, board.PatternDiagonal}, got.Patterns)

	updated := s.rec.ofType(events.TypeSettingsUpdated)
	s.Require().Len(updated, 1)
	s.ElementsMatch([]string{host, alice}, recipients(updated[0]))
}

func (s *CoordinatorTestSuite) TestAutoCall() {
	code, host := s.open(4, 0)
	auto := true
	_, err := s.coord.UpdateSettings(s.ctx, &UpdateSettingsInput{
		RoomCode:    code,
		RequesterID: host,
		Patch:       SettingsPatch{AutoCall: &auto, CallInterval: ptr(MinCallInterval)},
	})
	s.Require().NoError(err)

	s.start(code, host)

	s.Eventually(func() bool {
		return len(s.rec.ofType(events.TypeNumberCalled)) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	s.Require().NoError(s.coord.StopGame(s.ctx, &HostActionInput{RoomCode: code, RequesterID: host}))
	n := len(s.rec.ofType(events.TypeNumberCalled))

	time.Sleep(MinCallInterval + 200*time.Millisecond)
	s.Len(s.rec.ofType(events.TypeNumberCalled), n)
}

func ptr[T any](v T) *T {
	return &v
}

func (s *CoordinatorTestSuite) TestSetReady() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")
	s.rec.reset()

	s.Require().NoError(s.coord.SetReady(s.ctx, &SetReadyInput{RoomCode: code, PlayerID: alice, Ready: true}))

	ready := s.rec.ofType(events.TypePlayerReady)
	s.Require().Len(ready, 1)
	s.ElementsMatch([]string{host, alice}, recipients(ready[0]))

	sum, err := s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.True(sum.Members[1].Ready)

	s.start(code, host)
	s.ErrorIs(s.coord.SetReady(s.ctx, &SetReadyInput{RoomCode: code, PlayerID: alice, Ready: false}), ErrGameInProgress)

	sum, err = s.coord.Summary(s.ctx, code)
	s.Require().NoError(err)
	s.False(sum.Members[1].Ready)
}

func (s *CoordinatorTestSuite) TestChat() {
	code, host := s.open(4, 0)
	alice := s.join(code, "Alice")
	bob := s.join(code, "Bob")
	s.rec.reset()

	s.Require().NoError(s.coord.Chat(s.ctx, &ChatInput{RoomCode: code, SenderID: alice, Message: "  hello  "}))

	chats := s.rec.ofType(events.TypeChat)
	s.Require().Len(chats, 1)
	s.ElementsMatch([]string{host, bob}, recipients(chats[0]))
	s.Equal("hello", chats[0].Event.Data.(events.Chat).Message)

	s.ErrorIs(s.coord.Chat(s.ctx, &ChatInput{RoomCode: code, SenderID: alice, Message: " "}), ErrMalformedMessage)
	s.ErrorIs(s.coord.Chat(s.ctx, &ChatInput{RoomCode: code, SenderID: "stranger", Message: "hi"}), ErrPlayerNotInRoom)
}
