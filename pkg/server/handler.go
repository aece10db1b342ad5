// Package server exposes the dashboard over HTTP: a JSON control API, the
// instruction websocket and Prometheus metrics.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sudorandom/attack-map/pkg/analytics"
	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/config"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Options configures a Handler. Stream and Metrics are optional.
type Options struct {
	Dashboard *dashboard.Dashboard
	Inbox     *dashboard.Inbox
	Stream    http.Handler
	Metrics   http.Handler
	Logger    *zap.Logger
}

// Handler serves the dashboard API.
type Handler struct {
	dash    *dashboard.Dashboard
	inbox   *dashboard.Inbox
	stream  http.Handler
	metrics http.Handler
	logger  *zap.Logger
	router  *mux.Router
}

// NewHandler creates a handler with all routes registered.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Handler{
		dash:    opts.Dashboard,
		inbox:   opts.Inbox,
		stream:  opts.Stream,
		metrics: opts.Metrics,
		logger:  opts.Logger.Named("api"),
		router:  mux.NewRouter(),
	}
	h.registerRoutes()
	return h
}

// Router returns the configured HTTP router.
func (h *Handler) Router() http.Handler {
	return corsMiddleware(h.router)
}

// -----------------------------------------------------------------------
// Route registration
// -----------------------------------------------------------------------

func (h *Handler) registerRoutes() {
	api := h.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/state", h.handleGetState).Methods("GET")
	api.HandleFunc("/pause", h.handleTogglePause).Methods("POST")
	api.HandleFunc("/mode", h.handleToggleMode).Methods("POST")
	api.HandleFunc("/theme", h.handleToggleTheme).Methods("POST")
	api.HandleFunc("/speed/{level:[0-9]+}", h.handleSetSpeed).Methods("PUT")
	api.HandleFunc("/filter/{filter}", h.handleSetFilter).Methods("PUT")
	api.HandleFunc("/selection/{country}", h.handleSelect).Methods("PUT")
	api.HandleFunc("/selection", h.handleClearSelection).Methods("DELETE")
	api.HandleFunc("/viewport/reset", h.handleResetViewport).Methods("POST")

	api.HandleFunc("/events", h.handleGetEvents).Methods("GET")
	api.HandleFunc("/elements", h.handleGetElements).Methods("GET")
	api.HandleFunc("/stats/{aggregate}", h.handleGetStats).Methods("GET")
	api.HandleFunc("/countries/{name}", h.handleGetCountry).Methods("GET")
	api.HandleFunc("/notifications", h.handleGetNotifications).Methods("GET")

	if h.stream != nil {
		h.router.Handle("/ws", h.stream)
	}
	if h.metrics != nil {
		h.router.Handle("/metrics", h.metrics).Methods("GET")
	}
	h.router.HandleFunc("/healthz", h.handleHealth).Methods("GET")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// -----------------------------------------------------------------------
// Playback state and controls
// -----------------------------------------------------------------------

type stateResponse struct {
	Playback scheduler.PlaybackConfig `json:"playback"`
	Theme    string                   `json:"theme"`
	Selected string                   `json:"selected,omitempty"`
	Active   int                      `json:"active"`
	Pending  int                      `json:"pending"`
	Zoom     string                   `json:"zoom"`
	Reset    bool                     `json:"resetting"`
	Message  string                   `json:"message,omitempty"`
	Width    int                      `json:"width"`
	Height   int                      `json:"height"`
}

func (h *Handler) state() stateResponse {
	w, ht := h.dash.Size()
	s := stateResponse{
		Playback: h.dash.Playback(),
		Theme:    h.dash.Theme().Name(),
		Selected: h.dash.SelectedCountry(),
		Active:   h.dash.Scheduler().Active(),
		Pending:  h.dash.Scheduler().Pending(),
		Zoom:     h.dash.Viewport().ZoomLabel(),
		Reset:    h.dash.Viewport().Resetting(),
		Width:    w,
		Height:   ht,
	}
	if st := h.dash.MapState(); st != dashboard.NotEmpty {
		s.Message = st.Message()
	}
	return s
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	h.dash.TogglePause()
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	h.dash.ToggleMode()
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	h.dash.ToggleTheme()
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(mux.Vars(r)["level"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid speed level")
		return
	}
	h.control(w, h.dash.SetSpeed(level))
}

func (h *Handler) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	h.control(w, h.dash.SetFilter(mux.Vars(r)["filter"]))
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	h.dash.SelectCountry(mux.Vars(r)["country"])
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.dash.SelectCountry("")
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleResetViewport(w http.ResponseWriter, r *http.Request) {
	h.dash.ResetViewport()
	writeJSON(w, http.StatusOK, h.state())
}

// control answers a control change: rejected values are a client error.
func (h *Handler) control(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, config.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("control change failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "control change failed")
	default:
		writeJSON(w, http.StatusOK, h.state())
	}
}

// -----------------------------------------------------------------------
// Data endpoints
// -----------------------------------------------------------------------

func (h *Handler) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultEventLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxEventLimit)
	}
	sort := analytics.DefaultSort
	if v := q.Get("sort"); v != "" {
		sort.Field = analytics.SortField(v)
		if !validSortField(sort.Field) {
			writeError(w, http.StatusBadRequest, "invalid sort field")
			return
		}
	}
	if v := q.Get("dir"); v != "" {
		sort.Direction = analytics.Direction(v)
		if sort.Direction != analytics.Asc && sort.Direction != analytics.Desc {
			writeError(w, http.StatusBadRequest, "invalid sort direction")
			return
		}
	}

	events := h.dash.Events()
	if f := q.Get("type"); f != "" {
		if !attack.ValidFilter(f) {
			writeError(w, http.StatusBadRequest, "invalid attack type")
			return
		}
		filtered := make([]attack.Event, 0, len(events))
		for _, ev := range events {
			if ev.Matches(f) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	rows := analytics.SortTable(events, sort)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, rows)
}

func validSortField(f analytics.SortField) bool {
	switch f {
	case analytics.SortType, analytics.SortOrigin, analytics.SortTarget, analytics.SortProtocol, analytics.SortTime:
		return true
	}
	return false
}

type elementResponse struct {
	ID      uint64          `json:"id"`
	Kind    scheduler.Kind  `json:"kind"`
	Phase   scheduler.Phase `json:"phase"`
	Opacity float64         `json:"opacity"`
	Radius  float64         `json:"radius,omitempty"`
	EventID string          `json:"eventId"`
}

func (h *Handler) handleGetElements(w http.ResponseWriter, r *http.Request) {
	elements := h.dash.Scheduler().Elements()
	out := make([]elementResponse, 0, len(elements))
	for _, e := range elements {
		out = append(out, elementResponse{
			ID:      e.ID,
			Kind:    e.Kind,
			Phase:   e.Phase,
			Opacity: e.Style.Opacity,
			Radius:  e.Style.Radius,
			EventID: e.Event.ID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	agg, ok := analytics.Aggregations[mux.Vars(r)["aggregate"]]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown aggregate")
		return
	}
	writeJSON(w, http.StatusOK, agg(h.dash.Events()))
}

func (h *Handler) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	d := analytics.DetailFor(h.dash.Events(), mux.Vars(r)["name"])
	if d.Empty() {
		writeError(w, http.StatusNotFound, dashboard.EmptyNoCountryData.Message())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	items := []dashboard.Notification{}
	if h.inbox != nil {
		items = append(items, h.inbox.Items()...)
	}
	writeJSON(w, http.StatusOK, items)
}

// -----------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
