// Package server exposes the internal rating REST API and the live feed of
// rated hands.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/rating"
	"github.com/lox/pokerrating/internal/store"
)

const maxBodyBytes = 1 << 20

// Calculator rates a hand and persists the outcome
type Calculator interface {
	Calculate(ctx context.Context, h *hand.GameHand) (*rating.Result, error)
}

// Server serves the rating API
type Server struct {
	calc   Calculator
	store  store.Store
	feed   *Feed
	router chi.Router
	logger zerolog.Logger
}

// New creates a server and its routes
func New(logger zerolog.Logger, calc Calculator, st store.Store) *Server {
	s := &Server{
		calc:   calc,
		store:  st,
		logger: logger.With().Str("component", "server").Logger(),
	}
	s.feed = NewFeed(logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/internal", func(r chi.Router) {
		r.Route("/rating", func(r chi.Router) {
			r.Get("/app/{app}/user/{user}", s.handleGetRating)
			r.Get("/app/{app}/user/{user}/statistics", s.handleGetStatistics)
			r.Post("/app/{app}/user/{user}/reset/rating/{rating}", s.handleResetRating)
			r.Post("/game/calc", s.handleCalc)
			r.Post("/game/calc/text", s.handleCalcText)
			r.Handle("/feed", s.feed)
		})
		r.Post("/generate/game/hand", s.handleGenerateHand)
	})
	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Feed returns the live feed hub
func (s *Server) Feed() *Feed {
	return s.feed
}

// ListenAndServe serves on addr until ctx is cancelled, then drains within
// shutdownTimeout
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting rating server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down rating server")
	s.feed.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetRatingDoc(r.Context(), chi.URLParam(r, "app"), chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStatistic(r.Context(), chi.URLParam(r, "app"), chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResetRating(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.ParseInt(chi.URLParam(r, "rating"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid rating: %q", chi.URLParam(r, "rating"))})
		return
	}
	doc, err := s.store.ResetRating(r.Context(), chi.URLParam(r, "app"), chi.URLParam(r, "user"), value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var h hand.GameHand
	if err := decodeJSON(r, &h); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.calculate(w, r, &h)
}

func (s *Server) handleCalcText(w http.ResponseWriter, r *http.Request) {
	h, err := parseTextBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.calculate(w, r, &h)
}

func (s *Server) handleGenerateHand(w http.ResponseWriter, r *http.Request) {
	h, err := parseTextBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) calculate(w http.ResponseWriter, r *http.Request, h *hand.GameHand) {
	res, err := s.calc.Calculate(r.Context(), h)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := newCalcResponse(res)
	s.feed.Publish(feedMessage{
		ApplicationID: h.ApplicationID,
		SessionID:     h.SessionID,
		CalcResponse:  resp,
	})
	writeJSON(w, http.StatusOK, resp)
}

func parseTextBody(r *http.Request) (hand.GameHand, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return hand.GameHand{}, fmt.Errorf("read body: %w", err)
	}
	return hand.ParseText(string(body))
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}
