// Bingohall rooms
//
// Anyone can open a room, share its link or QR code, and play live bingo
// with everyone who joins. The host draws numbers (or lets the room draw
// them on a timer), players daub their boards, and the first valid claim
// of an enabled pattern takes the pot.
//
// Routes:
//   - POST $prefix/api/rooms              → open a room, caller becomes host
//   - POST $prefix/api/rooms/:code/join   → join a room without a websocket
//   - GET  $prefix/api/rooms(/:code)      → room listing / summary
//   - GET  $prefix/api/players            → everyone online
//   - GET  $prefix/api/stats              → process-wide counters
//   - GET  $prefix/bingo/:code            → room page
//   - GET  $prefix/bingo/:code/ws         → websocket for that room
//   - GET  $prefix/bingo/:code/qr         → PNG QR code for the room page

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/bingohall/internal/board"
	"github.com/Seednode/bingohall/internal/common/clock"
	"github.com/Seednode/bingohall/internal/common/uuid"
	"github.com/Seednode/bingohall/internal/events"
	"github.com/Seednode/bingohall/internal/ident"
	"github.com/Seednode/bingohall/internal/presence"
	"github.com/Seednode/bingohall/internal/room"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

type bingoServer struct {
	cfg      *Config
	log      zerolog.Logger
	clock    clock.Clock
	ids      *ident.Generator
	presence *presence.Directory
	reg      *room.Registry
	coord    *room.Coordinator
	conns    *connHub
}

func newBingoServer(cfg *Config, logger zerolog.Logger) (*bingoServer, error) {
	ids, err := ident.New(&ident.Config{UUIDGenerator: uuid.New()})
	if err != nil {
		return nil, err
	}

	clk := &clock.DefaultClock{}
	conns := newConnHub(logger)
	dir := presence.New()

	reg, err := room.NewRegistry(&room.Config{
		Boards:           board.New(),
		IDs:              ids,
		Sink:             conns,
		Clock:            clk,
		Presence:         dir,
		Logger:           logger,
		EmptyRoomTimeout: cfg.emptyRoomTimeout,
		CallInterval:     cfg.callInterval,
		MaxPlayers:       cfg.maxPlayers,
		MaxRooms:         cfg.maxRooms,
	})
	if err != nil {
		return nil, err
	}

	coord, err := room.NewCoordinator(reg)
	if err != nil {
		return nil, err
	}

	return &bingoServer{
		cfg:      cfg,
		log:      logger,
		clock:    clk,
		ids:      ids,
		presence: dir,
		reg:      reg,
		coord:    coord,
		conns:    conns,
	}, nil
}

// expectConnection releases a seat taken over HTTP if the player has not
// opened a websocket to the room once the grace window has passed. Without
// it a seated player who never connects keeps the room from emptying.
func (s *bingoServer) expectConnection(code, playerID string) {
	grace := s.cfg.emptyRoomTimeout
	if grace <= 0 {
		grace = room.DefaultEmptyRoomTimeout
	}

	time.AfterFunc(grace, func() {
		if s.conns.has(code, playerID) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		out, err := s.coord.Leave(ctx, &room.LeaveInput{RoomCode: code, PlayerID: playerID})
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
		case err != nil:
			s.log.Warn().Err(err).Str("room", code).Str("player", playerID).Msg("releasing unconnected seat failed")
		case out.Left:
			s.log.Info().Str("room", code).Str("player", playerID).Dur("grace", grace).Msg("released seat with no connection")
		}
	})
}

func (s *bingoServer) close(ctx context.Context) {
	s.conns.closeAll()
	s.reg.Close(ctx)
}

// httpStatus maps a room error to the status the API answers with.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrPlayerNotInRoom):
		return http.StatusNotFound
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrGameInProgress),
		errors.Is(err, room.ErrAlreadyInProgress),
		errors.Is(err, room.ErrNotInProgress),
		errors.Is(err, room.ErrGameAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, room.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, room.ErrResourceExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}

	if room.Code(err) == "internal" {
		return http.StatusInternalServerError
	}

	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any, errs chan<- error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs <- err
	}
}

func writeError(w http.ResponseWriter, err error, errs chan<- error) {
	writeJSON(w, httpStatus(err), map[string]string{"error": room.Code(err)}, errs)
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", room.ErrMalformedMessage, err)
	}

	return nil
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeout)
}

type createRoomRequest struct {
	HostName   string `json:"host_name"`
	RoomName   string `json:"room_name"`
	MaxPlayers int    `json:"max_players"`
	GameType   string `json:"game_type"`
	Stake      int64  `json:"stake"`
}

type createRoomResponse struct {
	Code     string          `json:"code"`
	PlayerID string          `json:"player_id"`
	Room     events.RoomInfo `json:"room"`
}

func (s *bingoServer) serveCreateRoom(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(s.cfg, w)

		var req createRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err, errs)
			return
		}

		gameType := board.Ball75
		if req.GameType != "" {
			gameType = board.GameType(req.GameType)
		}

		playerID := getOrSetPlayerID(w, r, s.ids)

		ctx, cancel := requestContext(r)
		defer cancel()

		out, err := s.coord.OpenRoom(ctx, &room.OpenRoomInput{
			HostName:   req.HostName,
			RoomName:   req.RoomName,
			GameType:   gameType,
			Stake:      req.Stake,
			MaxPlayers: req.MaxPlayers,
			HostID:     playerID,
		})
		if err != nil {
			writeError(w, err, errs)
			return
		}

		s.expectConnection(out.Code, out.PlayerID)

		writeJSON(w, http.StatusCreated, createRoomResponse{
			Code:     out.Code,
			PlayerID: out.PlayerID,
			Room:     out.Room,
		}, errs)
	}
}

type joinRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type joinRoomResponse struct {
	PlayerID string          `json:"player_id"`
	Board    board.Board     `json:"board"`
	Room     events.RoomInfo `json:"room"`
}

func (s *bingoServer) serveJoinRoom(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(s.cfg, w)

		var req joinRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err, errs)
			return
		}

		playerID := getOrSetPlayerID(w, r, s.ids)

		ctx, cancel := requestContext(r)
		defer cancel()

		out, err := s.coord.Join(ctx, &room.JoinInput{
			RoomCode:   ps.ByName("code"),
			PlayerID:   playerID,
			PlayerName: req.PlayerName,
		})
		if err != nil {
			writeError(w, err, errs)
			return
		}

		s.expectConnection(ps.ByName("code"), out.Player.ID)

		writeJSON(w, http.StatusOK, joinRoomResponse{
			PlayerID: out.Player.ID,
			Board:    out.Board,
			Room:     out.Room,
		}, errs)
	}
}

func (s *bingoServer) serveListRooms(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(s.cfg, w)

		ctx, cancel := requestContext(r)
		defer cancel()

		rooms, err := s.reg.ListAvailable(ctx)
		if err != nil {
			writeError(w, err, errs)
			return
		}

		writeJSON(w, http.StatusOK, rooms, errs)
	}
}

type roomSummaryResponse struct {
	Room      events.RoomInfo     `json:"room"`
	Members   []events.PlayerInfo `json:"members"`
	Connected int                 `json:"connected"`
}

func (s *bingoServer) serveRoomSummary(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(s.cfg, w)

		ctx, cancel := requestContext(r)
		defer cancel()

		code := ps.ByName("code")

		sum, err := s.coord.Summary(ctx, code)
		if err != nil {
			writeError(w, err, errs)
			return
		}

		writeJSON(w, http.StatusOK, roomSummaryResponse{
			Room:      sum.Room,
			Members:   sum.Members,
			Connected: s.conns.connected(code),
		}, errs)
	}
}

func (s *bingoServer) servePlayers(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(s.cfg, w)

		writeJSON(w, http.StatusOK, s.presence.Online(), errs)
	}
}

type statsResponse struct {
	presence.Stats
	Rooms       int `json:"rooms"`
	ActiveGames int `json:"active_games"`
}

func (s *bingoServer) serveStats(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(s.cfg, w)

		ctx, cancel := requestContext(r)
		defer cancel()

		active, err := s.reg.ActiveGames(ctx)
		if err != nil {
			writeError(w, err, errs)
			return
		}

		writeJSON(w, http.StatusOK, statsResponse{
			Stats:       s.presence.Stats(),
			Rooms:       s.reg.Len(),
			ActiveGames: active,
		}, errs)
	}
}

func (s *bingoServer) serveRoomPage(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := requestContext(r)
		defer cancel()

		sum, err := s.coord.Summary(ctx, ps.ByName("code"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(s.cfg, w)

		var page string
		switch {
		case err != nil:
			w.WriteHeader(httpStatus(err))
			page = newPage("Room Not Found", "That room does not exist.")
		default:
			_ = getOrSetPlayerID(w, r, s.ids)
			page = newPage(html.EscapeString(sum.Room.Name), fmt.Sprintf("%s: %d/%d players, %s",
				html.EscapeString(sum.Room.Code),
				sum.Room.Players,
				sum.Room.MaxPlayers,
				strings.ReplaceAll(sum.Room.State, "_", " "),
			))
		}

		if _, err := io.WriteString(w, page); err != nil {
			errs <- err
		}
	}
}

// serveWebsocket upgrades the request and pumps frames until the client
// goes away, at which point it leaves the room if this was its latest
// connection.
func (s *bingoServer) serveWebsocket() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if _, err := s.reg.Get(code); err != nil {
			http.Error(w, room.Code(err), httpStatus(err))
			return
		}

		playerID := getOrSetPlayerID(w, r, s.ids)

		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			s.log.Warn().Err(err).Str("room", code).Msg("upgrade failed")
			return
		}

		c := &Client{
			conn:     conn,
			send:     make(chan events.Event, sendBuffer),
			playerID: playerID,
			room:     code,
			log:      s.log.With().Str("room", code).Str("player", playerID).Logger(),
		}

		s.conns.register(c)
		c.log.Info().Msg("connected")

		go c.writePump()

		c.readPump(func(raw []byte) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			s.handleMessage(ctx, c, raw)
		})

		if !s.conns.unregister(c) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := s.coord.Leave(ctx, &room.LeaveInput{RoomCode: code, PlayerID: playerID}); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			c.log.Warn().Err(err).Msg("leave on disconnect failed")
		}

		c.log.Info().Msg("disconnected")
	}
}

// serveQR renders a PNG QR code of the room page URL using go-qrcode.
func (s *bingoServer) serveQR(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if _, err := s.reg.Get(code); err != nil {
			http.Error(w, room.Code(err), httpStatus(err))
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:code/qr; strip trailing "/qr" to get the room URL.
		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(s.cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

func registerBingo(cfg *Config, s *bingoServer, mux *httprouter.Router, errs chan<- error) {
	mux.POST(cfg.prefix+"/api/rooms", s.serveCreateRoom(errs))
	mux.GET(cfg.prefix+"/api/rooms", s.serveListRooms(errs))
	mux.GET(cfg.prefix+"/api/rooms/:code", s.serveRoomSummary(errs))
	mux.POST(cfg.prefix+"/api/rooms/:code/join", s.serveJoinRoom(errs))
	mux.GET(cfg.prefix+"/api/players", s.servePlayers(errs))
	mux.GET(cfg.prefix+"/api/stats", s.serveStats(errs))

	mux.GET(cfg.prefix+"/bingo/:code", s.serveRoomPage(errs))
	mux.GET(cfg.prefix+"/bingo/:code/ws", s.serveWebsocket())
	mux.GET(cfg.prefix+"/bingo/:code/qr", s.serveQR(errs))
}
