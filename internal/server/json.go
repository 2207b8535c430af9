package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/rating"
	"github.com/lox/pokerrating/internal/rules"
	"github.com/lox/pokerrating/internal/store"
)

type errorResponse struct {
	Error      string           `json:"error"`
	Violations []hand.Violation `json:"violations,omitempty"`
}

// CalcResponse is the body returned for a rated hand
type CalcResponse struct {
	OperationTimeMillis int64                `json:"operationTimeMillis"`
	PrevRatings         []store.PlayerRating `json:"prevRatings"`
	NewRatings          []store.PlayerRating `json:"newRatings"`
	SumDecisions        map[string]int64     `json:"sumDecisions"`
	Decisions           []rules.Decision     `json:"decisions"`
}

func newCalcResponse(res *rating.Result) CalcResponse {
	decisions := res.Decisions
	if decisions == nil {
		decisions = []rules.Decision{}
	}
	return CalcResponse{
		OperationTimeMillis: res.OperationTime.Milliseconds(),
		PrevRatings:         res.PrevRatings,
		NewRatings:          res.NewRatings,
		SumDecisions:        res.SumDecisions,
		Decisions:           decisions,
	}
}

type feedMessage struct {
	ApplicationID string `json:"applicationId"`
	SessionID     string `json:"sessionId"`
	CalcResponse
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *hand.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Violations: verr.Violations})
	case errors.Is(err, hand.ErrInvalidHand), errors.Is(err, hand.ErrMalformedText):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
