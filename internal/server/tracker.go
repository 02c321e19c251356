package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"boardgame-tracker/internal/config"
	"boardgame-tracker/internal/middleware"
	"boardgame-tracker/internal/repository"
	"boardgame-tracker/internal/stats"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// TrackerServer serves the configured user's views, recomputed from the
// stored play events on every request.
type TrackerServer struct {
	cfg    *config.Config
	plays  *repository.PlayRepository
	logger zerolog.Logger
}

func NewTrackerServer(cfg *config.Config, plays *repository.PlayRepository, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{cfg: cfg, plays: plays, logger: logger}
}

// Handler returns the routes wrapped in request id and CORS middleware.
func (s *TrackerServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /api/views", s.getViews)
	mux.HandleFunc("GET /api/games/{id}", s.getGame)
	mux.HandleFunc("GET /api/players", s.getPlayers)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return middleware.RequestID(s.logger)(c.Handler(mux))
}

func (s *TrackerServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *TrackerServer) views(r *http.Request) (*stats.Views, error) {
	events, err := s.plays.GetByUser(r.Context(), s.cfg.Username)
	if err != nil {
		return nil, err
	}
	return stats.Compute(events, s.cfg.PeriodStart), nil
}

func (s *TrackerServer) getViews(w http.ResponseWriter, r *http.Request) {
	v, err := s.views(r)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *TrackerServer) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("game id must be a number"))
		return
	}

	events, err := s.plays.GetByUser(r.Context(), s.cfg.Username)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if _, played := stats.LastPlayedFor(events, id); !played {
		s.fail(w, r, http.StatusNotFound, errors.New("no plays recorded for game "+strconv.Itoa(id)))
		return
	}

	// colours depend on every player, so the views cover all games
	summary, _ := stats.Compute(events, s.cfg.PeriodStart).Game(id)
	writeJSON(w, http.StatusOK, summary)
}

func (s *TrackerServer) getPlayers(w http.ResponseWriter, r *http.Request) {
	v, err := s.views(r)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": v.Ranking})
}

func (s *TrackerServer) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
