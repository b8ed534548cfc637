package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
	"github.com/m-mizutani/lifesync/pkg/usecase/regenerate"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

const maxBodyBytes = 10 << 20

// Server exposes the journal over a JSON API
type Server struct {
	journal *journal.UseCase
	job     *regenerateJob
	baseCtx context.Context

	// jobCtx is derived from baseCtx and cancelled by Shutdown
	jobCtx     context.Context
	cancelJobs context.CancelFunc
}

type Option func(*Server)

// WithBaseContext sets the context that background jobs run in. Cancelling
// it stops a running regeneration.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

func New(journal *journal.UseCase, regen *regenerate.UseCase, opts ...Option) *Server {
	s := &Server{
		journal: journal,
		job:     newRegenerateJob(regen),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.jobCtx, s.cancelJobs = context.WithCancel(s.baseCtx)
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/entries", s.listEntries)
		r.Post("/entries", s.captureEntry)
		r.Get("/entries/{id}", s.getEntry)
		r.Delete("/entries/{id}", s.deleteEntry)

		r.Post("/reports", s.createReport)
		r.Get("/profile", s.profile)
		r.Get("/coach", s.coach)
		r.Get("/stats", s.stats)

		r.Get("/goals", s.listGoals)
		r.Post("/goals", s.addGoal)
		r.Put("/goals/{id}/status", s.setGoalStatus)
		r.Delete("/goals/{id}", s.deleteGoal)

		r.Post("/regenerate", s.startRegenerate)
		r.Get("/regenerate", s.regenerateStatus)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	return true
}

// writeError maps domain errors onto status codes. Unknown errors are logged
// and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr validation.Errors
	switch {
	case errors.Is(err, model.ErrEntryNotFound), errors.Is(err, model.ErrGoalNotFound), errors.Is(err, journal.ErrNoEntries):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &verr),
		errors.Is(err, model.ErrInvalidGoalStatus),
		errors.Is(err, journal.ErrInvalidProfileMode),
		errors.Is(err, journal.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, journal.ErrAIUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		logging.From(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"online": s.journal.Online(),
	})
}
