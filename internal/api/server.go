package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatlens/internal/explorer"
	"github.com/MikeSquared-Agency/chatlens/internal/hermes"
	"github.com/MikeSquared-Agency/chatlens/internal/multiwoz"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
)

// EventPublisher receives one event per served request.
type EventPublisher interface {
	Emit(ev hermes.Event)
}

type Server struct {
	router *chi.Mux
	port   int
	http   *http.Server

	lens   *explorer.Explorer
	corpus *multiwoz.Corpus
	events EventPublisher
	logger *slog.Logger
}

// NewServer wires the routes. corpus may be nil, in which case the MultiWOZ
// routes are not mounted; events may be nil.
func NewServer(port int, lens *explorer.Explorer, corpus *multiwoz.Corpus, events EventPublisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		lens:   lens,
		corpus: corpus,
		events: events,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/sources", s.sources)
		r.Get("/configs", s.configs)
		r.Get("/fields", s.fields)
		r.Get("/search", s.search)
		r.Get("/random", s.random)
		r.Get("/chat", s.chat)

		if corpus != nil {
			r.Route("/multiwoz", func(r chi.Router) {
				r.Get("/services", s.multiwozServices)
				r.Get("/random", s.multiwozRandom)
				r.Get("/{split}/shards", s.multiwozShards)
				r.Get("/{split}/dialogues", s.multiwozDialogues)
				r.Get("/{split}/search", s.multiwozSearch)
				r.Get("/{split}/chat", s.multiwozChat)
			})
		}
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) emit(ev hermes.Event) {
	if s.events != nil {
		s.events.Emit(ev)
	}
}

// requestID tags every response with an X-Request-ID, reusing the caller's.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// statusFor maps error kinds to HTTP status codes. Anything unclassified
// is a backend failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrSourceNotFound),
		errors.Is(err, provider.ErrSourceUnresolvable),
		errors.Is(err, provider.ErrIndexOutOfRange),
		errors.Is(err, provider.ErrEmptySource):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrDecodeFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
