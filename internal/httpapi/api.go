// Package httpapi is the read-only operational surface: health, stats, and
// the game listing. It binds separately from the websocket listener.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
	"github.com/onatuner/tap-or-tarp-sub001/internal/hub"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler handles operational API requests.
type Handler struct {
	hub *hub.Hub
	mux *http.ServeMux
}

// New creates the API handler.
func New(h *hub.Hub) *Handler {
	a := &Handler{hub: h, mux: http.NewServeMux()}
	a.mux.HandleFunc("/health", a.handleHealth)
	a.mux.HandleFunc("/metrics", a.handleStats)
	a.mux.HandleFunc("/api/stats", a.handleStats)
	a.mux.HandleFunc("/api/games", a.handleGames)
	a.mux.HandleFunc("/api/games/", a.handleGame)
	return a
}

// ServeHTTP implements http.Handler.
func (a *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	a.mux.ServeHTTP(w, r)
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Degraded  bool      `json:"degraded"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (a *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Degraded:  a.hub.Degraded(),
		Timestamp: time.Now(),
		Version:   Version,
	}
	status := http.StatusOK
	if err := a.hub.StorePing(ctx); err != nil {
		resp.Status = "degraded"
		resp.Degraded = true
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (a *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.hub.Metrics())
}

// GamesResponse lists the games hydrated on this instance.
type GamesResponse struct {
	Total int               `json:"total"`
	Games []hub.GameSummary `json:"games"`
}

func (a *Handler) handleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	games := a.hub.Games(r.Context())

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := games[:0]
		for _, g := range games {
			if string(g.Status) == status {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}
	writeJSON(w, http.StatusOK, GamesResponse{Total: len(games), Games: games})
}

func (a *Handler) handleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/api/games/"))
	if !game.ValidID(id) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	st, err := a.hub.Game(r.Context(), id)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
