package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/pokerrating/internal/statistics"
)

var _ Backend = (*Postgres)(nil)

// Postgres is a Backend on a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn. Call Migrate before first use.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate applies the embedded schema
func (p *Postgres) Migrate(ctx context.Context) error {
	schema, err := schemas.ReadFile("schema/postgres.sql")
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, string(schema))
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) LoadRating(ctx context.Context, id string) (*RatingDoc, error) {
	var (
		doc       RatingDoc
		histories []byte
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, application_id, user_id, rating, updated_at, session_id, version, rating_histories
		  FROM player_ratings
		 WHERE id = $1
	`, id).Scan(&doc.ID, &doc.ApplicationID, &doc.UserID, &doc.Rating, &doc.UpdatedAt, &doc.SessionID, &doc.Version, &histories)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(histories, &doc.RatingHistories); err != nil {
		return nil, fmt.Errorf("decode rating histories of %s: %w", id, err)
	}
	return &doc, nil
}

func (p *Postgres) InsertRating(ctx context.Context, doc *RatingDoc) error {
	histories, err := marshalHistories(doc.RatingHistories)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO player_ratings (id, application_id, user_id, rating, updated_at, session_id, version, rating_histories)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, doc.ID, doc.ApplicationID, doc.UserID, doc.Rating, doc.UpdatedAt, doc.SessionID, doc.Version, histories)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (p *Postgres) UpdateRating(ctx context.Context, doc *RatingDoc, version int64) error {
	histories, err := marshalHistories(doc.RatingHistories)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE player_ratings
		   SET rating = $2,
		       updated_at = $3,
		       session_id = $4,
		       rating_histories = $5,
		       version = version + 1
		 WHERE id = $1 AND version = $6
	`, doc.ID, doc.Rating, doc.UpdatedAt, doc.SessionID, histories, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (p *Postgres) DeleteRating(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM player_ratings WHERE id = $1`, id)
	return err
}

func (p *Postgres) LoadStatistic(ctx context.Context, id string) (*statistics.PlayerStatistic, error) {
	var (
		version int64
		doc     []byte
	)
	err := p.pool.QueryRow(ctx, `SELECT version, doc FROM player_statistics WHERE id = $1`, id).Scan(&version, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeStatistic(id, version, doc)
}

func (p *Postgres) InsertStatistic(ctx context.Context, st *statistics.PlayerStatistic) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO player_statistics (id, application_id, user_id, version, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, st.ID, st.ApplicationID, st.UserID, st.Version, doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (p *Postgres) UpdateStatistic(ctx context.Context, st *statistics.PlayerStatistic, version int64) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE player_statistics
		   SET doc = $2, version = version + 1
		 WHERE id = $1 AND version = $3
	`, st.ID, doc, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (p *Postgres) DeleteStatistic(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM player_statistics WHERE id = $1`, id)
	return err
}
