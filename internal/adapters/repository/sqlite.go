package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/grouprank/internal/domain/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rating_groups (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	id   TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS members (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      TEXT NOT NULL UNIQUE,
	group_id     TEXT NOT NULL REFERENCES rating_groups(id),
	display_name TEXT NOT NULL,
	branch       TEXT NOT NULL,
	joined_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS ratings (
	seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
	id                  TEXT NOT NULL UNIQUE,
	group_id            TEXT NOT NULL REFERENCES rating_groups(id),
	rater_id            TEXT NOT NULL,
	rater_name          TEXT NOT NULL,
	communication       INTEGER NOT NULL CHECK (communication BETWEEN 0 AND 40),
	presentation        INTEGER NOT NULL CHECK (presentation BETWEEN 0 AND 40),
	content             INTEGER NOT NULL CHECK (content BETWEEN 0 AND 40),
	helpful_for_company INTEGER NOT NULL CHECK (helpful_for_company BETWEEN 0 AND 40),
	helpful_for_interns INTEGER NOT NULL CHECK (helpful_for_interns BETWEEN 0 AND 40),
	participation       INTEGER NOT NULL CHECK (participation BETWEEN 0 AND 40),
	comment             TEXT NOT NULL DEFAULT '',
	created_at          INTEGER NOT NULL,
	UNIQUE (group_id, rater_id)
);
CREATE INDEX IF NOT EXISTS idx_ratings_group_created ON ratings (group_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_members_group ON members (group_id);
`

const ratingColumns = `id, group_id, rater_id, rater_name, communication, presentation, content,
	helpful_for_company, helpful_for_interns, participation, comment, created_at`

// SQLiteStore is a durable Store backed by modernc.org/sqlite. Uniqueness of
// memberships and ratings is enforced by UNIQUE constraints, so conditional
// writes are atomic without application-level locking.
type SQLiteStore struct {
	db           *sql.DB
	busyTimeout  time.Duration
	maxOpenConns int
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", ErrUnavailable, err)
	}
	if path == ":memory:" {
		s.maxOpenConns = 1
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	s.db = db

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w: %w", ErrUnavailable, err)
	}
	return s, nil
}

// mapError translates driver errors into store sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrConflict
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrNotFound
	case strings.Contains(msg, "sql: database is closed"):
		return ErrClosed
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// EnsureGroup inserts the group unless it already exists.
func (s *SQLiteStore) EnsureGroup(ctx context.Context, g model.Group) error {
	defer observe("ensure_group", time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rating_groups (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		g.ID, g.Name)
	return mapError("ensure group", err)
}

// Group returns a single group.
func (s *SQLiteStore) Group(ctx context.Context, groupID string) (model.Group, error) {
	defer observe("group", time.Now())
	var g model.Group
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM rating_groups WHERE id = ?`, groupID).Scan(&g.ID, &g.Name)
	if err != nil {
		return model.Group{}, mapError("get group", err)
	}
	return g, nil
}

// Groups returns all groups in creation order.
func (s *SQLiteStore) Groups(ctx context.Context) ([]model.Group, error) {
	defer observe("groups", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM rating_groups ORDER BY seq`)
	if err != nil {
		return nil, mapError("list groups", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, mapError("scan group", err)
		}
		out = append(out, g)
	}
	return out, mapError("list groups", rows.Err())
}

// MemberOf returns the user's current group.
func (s *SQLiteStore) MemberOf(ctx context.Context, userID string) (string, bool, error) {
	defer observe("member_of", time.Now())
	var groupID string
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id FROM members WHERE user_id = ?`, userID).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapError("member of", err)
	}
	return groupID, true, nil
}

// Members returns the group's members in join order.
func (s *SQLiteStore) Members(ctx context.Context, groupID string) ([]model.Member, error) {
	defer observe("members", time.Now())
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, display_name, branch, joined_at FROM members WHERE group_id = ? ORDER BY seq`,
		groupID)
	if err != nil {
		return nil, mapError("list members", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Member{}
	for rows.Next() {
		var (
			m      model.Member
			joined int64
		)
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.Branch, &joined); err != nil {
			return nil, mapError("scan member", err)
		}
		m.JoinedAt = time.Unix(0, joined).UTC()
		out = append(out, m)
	}
	return out, mapError("list members", rows.Err())
}

// PutMember inserts a membership row; the UNIQUE user_id column rejects a
// second membership for the same user.
func (s *SQLiteStore) PutMember(ctx context.Context, groupID string, m model.Member) error {
	defer observe("put_member", time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (user_id, group_id, display_name, branch, joined_at) VALUES (?, ?, ?, ?, ?)`,
		m.UserID, groupID, m.DisplayName, m.Branch, m.JoinedAt.UnixNano())
	return mapError("put member", err)
}

// DeleteMember removes the user from the group.
func (s *SQLiteStore) DeleteMember(ctx context.Context, groupID, userID string) error {
	defer observe("delete_member", time.Now())
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return mapError("delete member", err)
	}
	return affectedOne("delete member", res)
}

// Rating returns the rater's rating for the group.
func (s *SQLiteStore) Rating(ctx context.Context, groupID, raterID string) (model.Rating, error) {
	defer observe("rating", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE group_id = ? AND rater_id = ?`,
		groupID, raterID)
	r, err := scanRating(row)
	if err != nil {
		return model.Rating{}, mapError("get rating", err)
	}
	return r, nil
}

// Ratings returns the group's ratings, most recent first.
func (s *SQLiteStore) Ratings(ctx context.Context, groupID string) ([]model.Rating, error) {
	defer observe("ratings", time.Now())
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE group_id = ? ORDER BY created_at DESC, seq DESC`,
		groupID)
	if err != nil {
		return nil, mapError("list ratings", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Rating{}
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, mapError("scan rating", err)
		}
		out = append(out, r)
	}
	return out, mapError("list ratings", rows.Err())
}

// PutRating inserts the rating as a single row, so either all six scores are
// persisted or none are.
func (s *SQLiteStore) PutRating(ctx context.Context, r model.Rating) error {
	defer observe("put_rating", time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ratings (`+ratingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GroupID, r.RaterUserID, r.RaterName,
		r.Scores.Communication, r.Scores.Presentation, r.Scores.Content,
		r.Scores.HelpfulForCompany, r.Scores.HelpfulForInterns, r.Scores.Participation,
		r.Comment, r.CreatedAt.UnixNano())
	return mapError("put rating", err)
}

// DeleteRating removes the rater's rating for the group.
func (s *SQLiteStore) DeleteRating(ctx context.Context, groupID, raterID string) error {
	defer observe("delete_rating", time.Now())
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE group_id = ? AND rater_id = ?`, groupID, raterID)
	if err != nil {
		return mapError("delete rating", err)
	}
	return affectedOne("delete rating", res)
}

// ClearRatings drops every rating.
func (s *SQLiteStore) ClearRatings(ctx context.Context) (int, error) {
	defer observe("clear_ratings", time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM ratings`)
	if err != nil {
		return 0, mapError("clear ratings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("clear ratings", err)
	}
	return int(n), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func affectedOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRating(row rowScanner) (model.Rating, error) {
	var (
		r       model.Rating
		created int64
	)
	err := row.Scan(&r.ID, &r.GroupID, &r.RaterUserID, &r.RaterName,
		&r.Scores.Communication, &r.Scores.Presentation, &r.Scores.Content,
		&r.Scores.HelpfulForCompany, &r.Scores.HelpfulForInterns, &r.Scores.Participation,
		&r.Comment, &created)
	if err != nil {
		return model.Rating{}, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}
