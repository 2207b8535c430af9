// Package store persists player ratings and statistics. A Service applies
// rating deltas under optimistic concurrency on top of a Backend.
package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/lox/pokerrating/internal/statistics"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned by a Backend when inserting an id that exists
	ErrDuplicate = errors.New("duplicate key")
)

// DefaultRating is the rating of a player with no stored document
const DefaultRating int64 = 10000

// resetSessionID marks the document created by a rating reset
const resetSessionID = "initial-on-reset"

// PlayerRating is a player's current rating
type PlayerRating struct {
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	Rating        int64  `json:"rating"`
}

// RatingHistory is a superseded rating value
type RatingHistory struct {
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Rating    int64     `json:"rating"`
	SessionID string    `json:"sessionId,omitempty"`
}

// RatingDoc is the stored rating of one player, newest history first
type RatingDoc struct {
	ID              string          `json:"id"`
	ApplicationID   string          `json:"applicationId"`
	UserID          string          `json:"userId"`
	Rating          int64           `json:"rating"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	SessionID       string          `json:"sessionId,omitempty"`
	Version         int64           `json:"version"`
	RatingHistories []RatingHistory `json:"ratingHistories"`
}

// Increment returns the document after adding delta. The replaced value is
// pushed onto the history.
func (d *RatingDoc) Increment(delta int64, sessionID string, now time.Time) *RatingDoc {
	prev := RatingHistory{
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt,
		Rating:    d.Rating,
		SessionID: d.SessionID,
	}
	next := *d
	next.Rating = d.Rating + delta
	next.UpdatedAt = now
	next.SessionID = sessionID
	next.RatingHistories = append([]RatingHistory{prev}, d.RatingHistories...)
	return &next
}

func (d *RatingDoc) clone() *RatingDoc {
	c := *d
	c.RatingHistories = slices.Clone(d.RatingHistories)
	return &c
}

// Store is what the rating calculator and the API need from persistence
type Store interface {
	GetRatings(ctx context.Context, applicationID string, userIDs []string) ([]PlayerRating, error)
	AddRatings(ctx context.Context, applicationID, sessionID string, deltas map[string]int64) error
	GetRatingDoc(ctx context.Context, applicationID, userID string) (*RatingDoc, error)
	ResetRating(ctx context.Context, applicationID, userID string, rating int64) (*RatingDoc, error)
	AppendStatistic(ctx context.Context, s *statistics.PlayerStatistic) (*statistics.PlayerStatistic, error)
	GetStatistic(ctx context.Context, applicationID, userID string) (*statistics.PlayerStatistic, error)
}

// Backend is the raw document storage. Updates succeed only when the stored
// version equals the given one, and bump it by one.
type Backend interface {
	LoadRating(ctx context.Context, id string) (*RatingDoc, error)
	InsertRating(ctx context.Context, doc *RatingDoc) error
	UpdateRating(ctx context.Context, doc *RatingDoc, version int64) error
	DeleteRating(ctx context.Context, id string) error

	LoadStatistic(ctx context.Context, id string) (*statistics.PlayerStatistic, error)
	InsertStatistic(ctx context.Context, s *statistics.PlayerStatistic) error
	UpdateStatistic(ctx context.Context, s *statistics.PlayerStatistic, version int64) error
	DeleteStatistic(ctx context.Context, id string) error

	Close() error
}
