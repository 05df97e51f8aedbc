// Package substation exposes the simulator over a JSON HTTP API.
package substation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/kilianp07/substation/core/command"
	"github.com/kilianp07/substation/core/engine"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/infra/journal"
	"github.com/kilianp07/substation/infra/logger"
	"github.com/kilianp07/substation/internal/eventbus"
)

// Engine is the read and tick surface of the simulator.
// *engine.Engine implements it.
type Engine interface {
	Snapshot() model.Snapshot
	Tick(in engine.TickInput) (model.Snapshot, error)
	GetHistory(c model.Channel) []float64
	GetAllHistory() map[model.Channel][]float64
	GetAlarm() model.AlarmState
}

// Executor runs operator commands. *command.Dispatcher implements it.
type Executor interface {
	Execute(cmd command.Command, source string) (command.Result, error)
}

// Emitter receives snapshots produced by explicit tick requests.
type Emitter interface {
	Emit(model.Snapshot)
}

// Journal answers command audit queries. journal.Store implements it.
type Journal interface {
	Query(ctx context.Context, q journal.Query) ([]journal.Entry, error)
}

// Handler serves the operator API.
type Handler struct {
	eng     Engine
	exec    Executor
	emit    Emitter
	journal Journal
	bus     *eventbus.Bus[model.Snapshot]
	secret  []byte
	log     logger.Logger
	mux     *http.ServeMux
}

// Option customises a Handler.
type Option func(*Handler)

// WithJournal serves GET /api/commands from j.
func WithJournal(j Journal) Option {
	return func(h *Handler) { h.journal = j }
}

// NewHandler returns the API handler. emit may be nil.
func NewHandler(eng Engine, exec Executor, emit Emitter, opts ...Option) *Handler {
	h := &Handler{eng: eng, exec: exec, emit: emit, log: logger.New("api"), mux: http.NewServeMux()}
	for _, o := range opts {
		o(h)
	}
	h.mux.HandleFunc("GET /healthz", h.health)
	h.mux.HandleFunc("GET /api/snapshot", h.snapshot)
	h.mux.HandleFunc("GET /api/history", h.allHistory)
	h.mux.HandleFunc("GET /api/history/{channel}", h.history)
	h.mux.HandleFunc("GET /api/alarm", h.alarm)
	h.mux.HandleFunc("POST /api/alarm/clear", h.protect(h.clearAlarm))
	h.mux.HandleFunc("GET /api/flash/{device}", h.protect(h.flash))
	h.mux.HandleFunc("POST /api/commands", h.protect(h.command))
	h.mux.HandleFunc("POST /api/tick", h.protect(h.tick))
	if h.journal != nil {
		h.mux.HandleFunc("GET /api/commands", h.commands)
	}
	if h.bus != nil {
		h.mux.HandleFunc("GET /api/stream", h.stream)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.mux.ServeHTTP(w, r) }

// errorBody is the JSON body of a failed request.
type errorBody struct {
	Error string `json:"error"`
}

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrInvalidDevice):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, StatusFor(err), errorBody{Error: err.Error()})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.eng.Snapshot())
}

func (h *Handler) allHistory(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.eng.GetAllHistory())
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	c := model.Channel(r.PathValue("channel"))
	if !slices.Contains(model.Channels(), c) {
		h.writeError(w, fmt.Errorf("%w: unknown channel %q", model.ErrInvalidDevice, c))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"channel": c, "values": h.eng.GetHistory(c)})
}

func (h *Handler) alarm(w http.ResponseWriter, _ *http.Request) {
	a := h.eng.GetAlarm()
	h.writeJSON(w, http.StatusOK, map[string]any{"alarm": a, "active": a.Active()})
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, cmd command.Command) {
	res, err := h.exec.Execute(cmd, source(r))
	h.writeJSON(w, StatusFor(err), res)
}

func (h *Handler) clearAlarm(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, command.Command{Type: command.ClearAlarm})
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, command.Command{Type: command.ConsumeFlash, Device: r.PathValue("device")})
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	var cmd command.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	h.execute(w, r, cmd)
}

func (h *Handler) tick(w http.ResponseWriter, r *http.Request) {
	var in engine.TickInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	snap, err := h.eng.Tick(in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.emit != nil {
		h.emit.Emit(snap)
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// parseQuery reads the journal filters type, device, failed, since, until
// and limit. Times are RFC 3339.
func parseQuery(r *http.Request) (journal.Query, error) {
	v := r.URL.Query()
	q := journal.Query{Type: v.Get("type"), Device: v.Get("device")}
	var err error
	if s := v.Get("failed"); s != "" {
		if q.FailedOnly, err = strconv.ParseBool(s); err != nil {
			return q, fmt.Errorf("%w: failed: %v", model.ErrInvalidInput, err)
		}
	}
	if s := v.Get("since"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("%w: since: %v", model.ErrInvalidInput, err)
		}
	}
	if s := v.Get("until"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("%w: until: %v", model.ErrInvalidInput, err)
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			return q, fmt.Errorf("%w: limit %q", model.ErrInvalidInput, s)
		}
	}
	return q, nil
}

func (h *Handler) commands(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	entries, err := h.journal.Query(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}
