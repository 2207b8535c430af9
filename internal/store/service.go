package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerrating/internal/retry"
	"github.com/lox/pokerrating/internal/statistics"
)

// DefaultConflictPolicy retries optimistic locking failures
var DefaultConflictPolicy = retry.Policy{
	Attempts:   50,
	MinDelay:   200 * time.Millisecond,
	MaxDelay:   500 * time.Millisecond,
	MaxElapsed: 5 * time.Minute,
	Jitter:     true,
}

// DefaultTransientPolicy retries backend failures that are not conflicts
var DefaultTransientPolicy = retry.Policy{
	Attempts: 5,
	MinDelay: 100 * time.Millisecond,
	MaxDelay: time.Second,
}

var _ Store = (*Service)(nil)

// Service implements Store on a Backend
type Service struct {
	backend       Backend
	clock         quartz.Clock
	logger        zerolog.Logger
	defaultRating int64
	conflict      retry.Policy
	transient     retry.Policy
}

type Option func(*Service)

func WithClock(clock quartz.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithDefaultRating(rating int64) Option {
	return func(s *Service) { s.defaultRating = rating }
}

func WithConflictPolicy(p retry.Policy) Option {
	return func(s *Service) { s.conflict = p }
}

func WithTransientPolicy(p retry.Policy) Option {
	return func(s *Service) { s.transient = p }
}

// New creates a service over backend
func New(logger zerolog.Logger, backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:       backend,
		clock:         quartz.NewReal(),
		logger:        logger.With().Str("component", "store").Logger(),
		defaultRating: DefaultRating,
		conflict:      DefaultConflictPolicy,
		transient:     DefaultTransientPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the backend
func (s *Service) Close() error {
	return s.backend.Close()
}

func isSentinel(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrDuplicate) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// withTransientRetry retries fn on backend errors. Sentinels pass through.
func (s *Service) withTransientRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, s.clock, s.transient, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil || isSentinel(err) {
			return retry.Permanent(err)
		}
		s.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("Store operation failed")
		return err
	})
}

// withConflictRetry retries fn while it reports ErrVersionConflict
func (s *Service) withConflictRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, s.clock, s.conflict, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil || !errors.Is(err, ErrVersionConflict) {
			return retry.Permanent(err)
		}
		s.logger.Debug().Str("op", op).Int("attempt", attempt).Msg("Version conflict, retrying")
		return err
	})
	if errors.Is(err, retry.ErrExhausted) {
		s.logger.Warn().Err(err).Str("op", op).Msg("Max retries exceeded")
	}
	return err
}

func (s *Service) loadRating(ctx context.Context, id string) (*RatingDoc, error) {
	var doc *RatingDoc
	err := s.withTransientRetry(ctx, "load rating", func(ctx context.Context) error {
		var err error
		doc, err = s.backend.LoadRating(ctx, id)
		return err
	})
	return doc, err
}

// GetRatings returns the rating of every user, in the given order
func (s *Service) GetRatings(ctx context.Context, applicationID string, userIDs []string) ([]PlayerRating, error) {
	out := make([]PlayerRating, 0, len(userIDs))
	for _, userID := range userIDs {
		rating := s.defaultRating
		doc, err := s.loadRating(ctx, statistics.DocID(applicationID, userID))
		switch {
		case err == nil:
			rating = doc.Rating
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("get rating of %s: %w", userID, err)
		}
		out = append(out, PlayerRating{ApplicationID: applicationID, UserID: userID, Rating: rating})
	}
	return out, nil
}

// AddRatings applies each delta to the player's stored rating. Missing
// documents start at the default rating.
func (s *Service) AddRatings(ctx context.Context, applicationID, sessionID string, deltas map[string]int64) error {
	userIDs := make([]string, 0, len(deltas))
	for id := range deltas {
		userIDs = append(userIDs, id)
	}
	slices.Sort(userIDs)

	for _, userID := range userIDs {
		doc, err := s.addRating(ctx, applicationID, sessionID, userID, deltas[userID])
		if err != nil {
			return fmt.Errorf("add rating of %s: %w", userID, err)
		}
		s.logger.Debug().
			Str("user_id", userID).
			Str("application_id", applicationID).
			Int64("rating", doc.Rating).
			Msg("Player rating bumped")
	}
	return nil
}

func (s *Service) addRating(ctx context.Context, applicationID, sessionID, userID string, delta int64) (*RatingDoc, error) {
	var out *RatingDoc
	err := s.withConflictRetry(ctx, "add rating", func(ctx context.Context) error {
		doc, err := s.findOrCreateRating(ctx, applicationID, userID, sessionID, s.defaultRating)
		if err != nil {
			return err
		}
		next := doc.Increment(delta, sessionID, s.clock.Now())
		if err := s.withTransientRetry(ctx, "update rating", func(ctx context.Context) error {
			return s.backend.UpdateRating(ctx, next, doc.Version)
		}); err != nil {
			return err
		}
		next.Version = doc.Version + 1
		out = next
		return nil
	})
	return out, err
}

func (s *Service) findOrCreateRating(ctx context.Context, applicationID, userID, sessionID string, rating int64) (*RatingDoc, error) {
	id := statistics.DocID(applicationID, userID)
	doc, err := s.loadRating(ctx, id)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return doc, err
	}

	doc = &RatingDoc{
		ID:            id,
		ApplicationID: applicationID,
		UserID:        userID,
		Rating:        rating,
		UpdatedAt:     s.clock.Now(),
		SessionID:     sessionID,
	}
	err = s.withTransientRetry(ctx, "insert rating", func(ctx context.Context) error {
		return s.backend.InsertRating(ctx, doc)
	})
	if errors.Is(err, ErrDuplicate) {
		s.logger.Warn().Str("id", id).Msg("Rating document already inserted")
		doc, err = s.loadRating(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("rating document %s missing after duplicate key", id)
		}
	}
	return doc, err
}

// GetRatingDoc returns the stored document or ErrNotFound
func (s *Service) GetRatingDoc(ctx context.Context, applicationID, userID string) (*RatingDoc, error) {
	return s.loadRating(ctx, statistics.DocID(applicationID, userID))
}

// ResetRating drops the player's rating and statistics and starts over at rating
func (s *Service) ResetRating(ctx context.Context, applicationID, userID string, rating int64) (*RatingDoc, error) {
	id := statistics.DocID(applicationID, userID)
	if err := s.withTransientRetry(ctx, "delete rating", func(ctx context.Context) error {
		return s.backend.DeleteRating(ctx, id)
	}); err != nil {
		return nil, fmt.Errorf("reset rating: %w", err)
	}
	if err := s.withTransientRetry(ctx, "delete statistic", func(ctx context.Context) error {
		return s.backend.DeleteStatistic(ctx, id)
	}); err != nil {
		return nil, fmt.Errorf("reset statistic: %w", err)
	}
	s.logger.Info().Str("id", id).Int64("rating", rating).Msg("Player rating reset")
	return s.findOrCreateRating(ctx, applicationID, userID, resetSessionID, rating)
}

// AppendStatistic merges st into the stored statistics of the same player
func (s *Service) AppendStatistic(ctx context.Context, st *statistics.PlayerStatistic) (*statistics.PlayerStatistic, error) {
	var out *statistics.PlayerStatistic
	err := s.withConflictRetry(ctx, "append statistic", func(ctx context.Context) error {
		existing, err := s.findOrCreateStatistic(ctx, st)
		if err != nil {
			return err
		}
		merged, err := existing.Append(st)
		if err != nil {
			return err
		}
		if err := s.withTransientRetry(ctx, "update statistic", func(ctx context.Context) error {
			return s.backend.UpdateStatistic(ctx, merged, existing.Version)
		}); err != nil {
			return err
		}
		merged.Version = existing.Version + 1
		out = merged
		return nil
	})
	return out, err
}

func (s *Service) loadStatistic(ctx context.Context, id string) (*statistics.PlayerStatistic, error) {
	var st *statistics.PlayerStatistic
	err := s.withTransientRetry(ctx, "load statistic", func(ctx context.Context) error {
		var err error
		st, err = s.backend.LoadStatistic(ctx, id)
		return err
	})
	return st, err
}

func (s *Service) findOrCreateStatistic(ctx context.Context, st *statistics.PlayerStatistic) (*statistics.PlayerStatistic, error) {
	existing, err := s.loadStatistic(ctx, st.ID)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return existing, err
	}

	existing = statistics.New(st.ApplicationID, st.UserID)
	err = s.withTransientRetry(ctx, "insert statistic", func(ctx context.Context) error {
		return s.backend.InsertStatistic(ctx, existing)
	})
	if errors.Is(err, ErrDuplicate) {
		s.logger.Warn().Str("id", st.ID).Msg("Statistic document already inserted")
		existing, err = s.loadStatistic(ctx, st.ID)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("statistic document %s missing after duplicate key", st.ID)
		}
	}
	return existing, err
}

// GetStatistic returns the stored statistics or ErrNotFound
func (s *Service) GetStatistic(ctx context.Context, applicationID, userID string) (*statistics.PlayerStatistic, error) {
	return s.loadStatistic(ctx, statistics.DocID(applicationID, userID))
}
