package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chainball/scoreboard/go/internal/game"
	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/rs/zerolog/log"
)

// Engine is the part of the game engine driven over HTTP.
type Engine interface {
	RegisterPlayers(players map[int]game.PlayerText) error
	UnregisterPlayers(pids []int) error
	GameBeginWithUID(uid string) error
	GameEnd(reason string, winner int) error
	GamePause() error
	GameUnpause() error
	GamePassTurn(forceServe bool) error
	GameSetActivePlayer(pid int) error
	GameForceScore(pid int, value int) error
	ScoringEvent(pid int, gesture game.Gesture) error
	SetGameUID(uid string)
	MatrixPowerOff()
	MatrixPowerOn()
	PairRemote(pid int) error
	UnpairRemote(pid int) error
	PairMaster() error
	UnpairMaster() error
	PairStatus() game.PairStatus
	Snapshot() game.Status
}

// FrameInjector feeds raw radio frames to a virtual receiver.
type FrameInjector interface {
	Inject(frame []byte)
}

// RemoteLister lists every remote the console knows with its battery level.
type RemoteLister interface {
	Snapshot() map[uint32]*uint8
}

type Handler struct {
	engine     Engine
	dispatcher *Dispatcher
	remotes    RemoteLister
	injector   FrameInjector
}

func NewHandler(engine Engine, dispatcher *Dispatcher, remotes RemoteLister) *Handler {
	return &Handler{engine: engine, dispatcher: dispatcher, remotes: remotes}
}

// EnableVirtualRemotes adds a route that simulates remote button presses.
func (h *Handler) EnableVirtualRemotes(injector FrameInjector) {
	h.injector = injector
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /game/begin", h.handleBegin)
	mux.HandleFunc("POST /game/end", h.handleEnd)
	mux.HandleFunc("POST /game/pause", h.simple(func() error { return h.engine.GamePause() }))
	mux.HandleFunc("POST /game/unpause", h.simple(func() error { return h.engine.GameUnpause() }))
	mux.HandleFunc("POST /game/pass-turn", h.simple(func() error { return h.engine.GamePassTurn(false) }))
	mux.HandleFunc("POST /game/active-player", h.handleActivePlayer)
	mux.HandleFunc("POST /game/scoring-event", h.handleScoringEvent)
	mux.HandleFunc("POST /game/force-score", h.handleForceScore)
	mux.HandleFunc("POST /game/uid", h.handleUID)
	mux.HandleFunc("GET /game/status", h.handleStatus)

	mux.HandleFunc("POST /matrix/power-off", h.simple(func() error {
		h.engine.MatrixPowerOff()
		return nil
	}))
	mux.HandleFunc("POST /matrix/power-on", h.simple(func() error {
		h.engine.MatrixPowerOn()
		return nil
	}))

	mux.HandleFunc("POST /players/register", h.handleRegister)
	mux.HandleFunc("POST /players/unregister", h.handleUnregister)

	mux.HandleFunc("POST /remotes/pair", h.handlePair)
	mux.HandleFunc("POST /remotes/unpair", h.handleUnpair)
	mux.HandleFunc("POST /remotes/pair-master", h.simple(func() error { return h.engine.PairMaster() }))
	mux.HandleFunc("POST /remotes/unpair-master", h.simple(func() error { return h.engine.UnpairMaster() }))
	mux.HandleFunc("GET /remotes/pair-status", h.handlePairStatus)
	mux.HandleFunc("GET /remotes/known", h.handleKnownRemotes)
	if h.injector != nil {
		mux.HandleFunc("POST /remotes/virtual/press", h.handleVirtualPress)
	}
}

type playerRequest struct {
	Player int `json:"player"`
}

type beginRequest struct {
	UID string `json:"uid"`
}

type virtualPressRequest struct {
	Remote uint32 `json:"remote"`
	Button uint8  `json:"button"`
}

type endRequest struct {
	Reason string `json:"reason"`
	Winner *int   `json:"winner"`
}

type scoringEventRequest struct {
	Player int    `json:"player"`
	Event  string `json:"event"`
}

type forceScoreRequest struct {
	Player int `json:"player"`
	Score  int `json:"score"`
}

type registerRequest struct {
	Players map[int]game.PlayerText `json:"players"`
}

type unregisterRequest struct {
	Players []int `json:"players"`
}

type knownRemote struct {
	ID      string `json:"id"`
	Battery *uint8 `json:"battery"`
}

// call runs fn on the tick goroutine and writes its error, if any.
func (h *Handler) call(w http.ResponseWriter, r *http.Request, fn func() error) {
	var err error
	if derr := h.dispatcher.Do(r.Context(), func() { err = fn() }); derr != nil {
		writeError(w, derr)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) simple(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.call(w, r, fn)
	}
}

func (h *Handler) handleBegin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.GameBeginWithUID(req.UID) })
}

func (h *Handler) handleUID(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UID == "" {
		writeError(w, fmt.Errorf("%w: uid is required", game.ErrValidation))
		return
	}
	h.call(w, r, func() error {
		h.engine.SetGameUID(req.UID)
		return nil
	})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	req := endRequest{Reason: "ABORTED"}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	winner := -1
	if req.Winner != nil {
		winner = *req.Winner
	}
	h.call(w, r, func() error { return h.engine.GameEnd(req.Reason, winner) })
}

func (h *Handler) handleActivePlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.GameSetActivePlayer(req.Player) })
}

func (h *Handler) handleScoringEvent(w http.ResponseWriter, r *http.Request) {
	var req scoringEventRequest
	if !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.ScoringEvent(req.Player, game.Gesture(req.Event)) })
}

func (h *Handler) handleForceScore(w http.ResponseWriter, r *http.Request) {
	var req forceScoreRequest
	if !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.GameForceScore(req.Player, req.Score) })
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	players := make(map[int]game.PlayerText, len(req.Players))
	for pid, text := range req.Players {
		pt, err := game.NewPlayerText(text.Panel, text.Web)
		if err != nil {
			writeError(w, err)
			return
		}
		players[pid] = pt
	}
	h.call(w, r, func() error { return h.engine.RegisterPlayers(players) })
}

func (h *Handler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req unregisterRequest
	if !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.UnregisterPlayers(req.Players) })
}

func (h *Handler) handlePair(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.PairRemote(req.Player) })
}

func (h *Handler) handleUnpair(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !decode(w, r, &req) {
		return
	}
	h.call(w, r, func() error { return h.engine.UnpairRemote(req.Player) })
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st game.Status
	if err := h.dispatcher.Do(r.Context(), func() { st = h.engine.Snapshot() }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handlePairStatus(w http.ResponseWriter, r *http.Request) {
	var st game.PairStatus
	if err := h.dispatcher.Do(r.Context(), func() { st = h.engine.PairStatus() }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleKnownRemotes(w http.ResponseWriter, r *http.Request) {
	snap := h.remotes.Snapshot()
	out := make([]knownRemote, 0, len(snap))
	for _, id := range remote.SortedIDs(snap) {
		out = append(out, knownRemote{ID: remote.RemoteKey(id), Battery: snap[id]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"remotes": out})
}

// handleVirtualPress queues a press and release from a simulated remote.
// The frames are picked up on the next radio poll.
func (h *Handler) handleVirtualPress(w http.ResponseWriter, r *http.Request) {
	var req virtualPressRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Remote == 0 {
		writeError(w, fmt.Errorf("%w: remote id must be non-zero", game.ErrValidation))
		return
	}
	h.injector.Inject(remote.Encode(remote.Message{RemoteID: req.Remote, Command: remote.CommandBtnPress, Data: req.Button}))
	h.injector.Inject(remote.Encode(remote.Message{RemoteID: req.Remote, Command: remote.CommandBtnRelease, Data: req.Button}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Status: "error", Error: "malformed request body"})
		return false
	}
	return true
}

type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrStateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("component", "control").Msg("control call failed")
	}
	writeJSON(w, code, errorBody{Status: "error", Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("component", "control").Msg("failed to write response")
	}
}
