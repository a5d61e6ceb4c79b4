package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mkessler/typerace/go/internal/scoreboard"
)

// ScoreNotifier pushes scoreboard updates to every live connection after an
// HTTP submission.
type ScoreNotifier interface {
	BroadcastScores()
}

// Handler exposes the websocket endpoint and the minimal HTTP surface.
type Handler struct {
	cm       *ConnectionManager
	board    *scoreboard.Scoreboard
	notifier ScoreNotifier
	clock    clockwork.Clock
}

// NewHandler wires the HTTP handler.
func NewHandler(cm *ConnectionManager, board *scoreboard.Scoreboard, notifier ScoreNotifier, clock clockwork.Clock) *Handler {
	return &Handler{cm: cm, board: board, notifier: notifier, clock: clock}
}

// RegisterRoutes registers all routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/scores", h.handleScores)
}

// handleRoot serves the plain-text health check.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("typing-race server ok\n")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

// handleWebSocket upgrades a client connection. An optional handle query
// parameter overrides the generated guest label.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if err := h.cm.UpgradeConnection(w, r, handle); err != nil {
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

// handleScores reads or appends to the scoreboard. Unlike the websocket
// path, this request/response surface reports validation failures to the
// caller.
func (h *Handler) handleScores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, scoresResponse{Scores: h.board.List()})
	case http.MethodPost:
		var payload struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid score payload"})
			return
		}
		entry, err := scoreboard.SanitizeEntry(payload.Name, payload.Score, h.clock.Now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		list := h.board.Record(entry)
		if h.notifier != nil {
			h.notifier.BroadcastScores()
		}
		log.Info().Str("name", entry.Name).Int("score", entry.Score).Msg("score recorded via http")
		writeJSON(w, http.StatusCreated, scoresResponse{Scores: list})
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type scoresResponse struct {
	Scores []scoreboard.Entry `json:"scores"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
