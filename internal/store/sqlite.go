package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/pokerrating/internal/statistics"
)

//go:embed schema/*.sql
var schemas embed.FS

var _ Backend = (*SQLite)(nil)

// SQLite is a Backend on a local SQLite database file
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("empty sqlite database path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	schema, err := schemas.ReadFile("schema/sqlite.sql")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) LoadRating(ctx context.Context, id string) (*RatingDoc, error) {
	var (
		doc       RatingDoc
		updatedMs int64
		histories string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, application_id, user_id, rating, updated_at_ms, session_id, version, rating_histories
  FROM player_ratings
 WHERE id = ?
`, id).Scan(&doc.ID, &doc.ApplicationID, &doc.UserID, &doc.Rating, &updatedMs, &doc.SessionID, &doc.Version, &histories)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	if err := json.Unmarshal([]byte(histories), &doc.RatingHistories); err != nil {
		return nil, fmt.Errorf("decode rating histories of %s: %w", id, err)
	}
	return &doc, nil
}

func (s *SQLite) InsertRating(ctx context.Context, doc *RatingDoc) error {
	histories, err := marshalHistories(doc.RatingHistories)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO player_ratings (id, application_id, user_id, rating, updated_at_ms, session_id, version, rating_histories)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`, doc.ID, doc.ApplicationID, doc.UserID, doc.Rating, doc.UpdatedAt.UnixMilli(), doc.SessionID, doc.Version, string(histories))
	if err != nil {
		return err
	}
	return requireAffected(res, ErrDuplicate)
}

func (s *SQLite) UpdateRating(ctx context.Context, doc *RatingDoc, version int64) error {
	histories, err := marshalHistories(doc.RatingHistories)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE player_ratings
   SET rating = ?, updated_at_ms = ?, session_id = ?, rating_histories = ?, version = version + 1
 WHERE id = ? AND version = ?
`, doc.Rating, doc.UpdatedAt.UnixMilli(), doc.SessionID, string(histories), doc.ID, version)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrVersionConflict)
}

func (s *SQLite) DeleteRating(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM player_ratings WHERE id = ?`, id)
	return err
}

func (s *SQLite) LoadStatistic(ctx context.Context, id string) (*statistics.PlayerStatistic, error) {
	var (
		version int64
		doc     string
	)
	err := s.db.QueryRowContext(ctx, `SELECT version, doc FROM player_statistics WHERE id = ?`, id).Scan(&version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeStatistic(id, version, []byte(doc))
}

func (s *SQLite) InsertStatistic(ctx context.Context, st *statistics.PlayerStatistic) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO player_statistics (id, application_id, user_id, version, doc)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`, st.ID, st.ApplicationID, st.UserID, st.Version, string(doc))
	if err != nil {
		return err
	}
	return requireAffected(res, ErrDuplicate)
}

func (s *SQLite) UpdateStatistic(ctx context.Context, st *statistics.PlayerStatistic, version int64) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE player_statistics
   SET doc = ?, version = version + 1
 WHERE id = ? AND version = ?
`, string(doc), st.ID, version)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrVersionConflict)
}

func (s *SQLite) DeleteStatistic(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM player_statistics WHERE id = ?`, id)
	return err
}

func requireAffected(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func marshalHistories(h []RatingHistory) ([]byte, error) {
	if h == nil {
		h = []RatingHistory{}
	}
	return json.Marshal(h)
}

// decodeStatistic restores a document from its JSON column. The id and
// version columns are authoritative.
func decodeStatistic(id string, version int64, doc []byte) (*statistics.PlayerStatistic, error) {
	var st statistics.PlayerStatistic
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("decode statistic %s: %w", id, err)
	}
	st.ID = id
	st.Version = version
	return &st, nil
}
