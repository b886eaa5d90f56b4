// Package postgres implements the store interface on PostgreSQL via pgx.
//
// Transcript fragments and insights are stored as JSONB columns rather than
// normalised rows: the pipeline always reads and rewrites a recording as a
// whole (retranslation replaces every fragment), so per-fragment rows would
// only add join cost.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weihan0529/global-meeting-scribe/internal/store"
)

// Compile-time assertion that Store satisfies the store interface.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL-backed implementation of [store.Store].
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool for dsn, verifies it with a ping, and
// returns a ready [Store]. Call [Store.Close] when done.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool. The caller retains ownership of the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS meetings (
	id              UUID PRIMARY KEY,
	title           TEXT NOT NULL DEFAULT '',
	source_language TEXT NOT NULL DEFAULT '',
	target_language TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'active',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS recordings (
	id              UUID PRIMARY KEY,
	meeting_id      UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	transcripts     JSONB NOT NULL DEFAULT '[]',
	insights        JSONB NOT NULL DEFAULT '[]',
	target_language TEXT NOT NULL DEFAULT '',
	duration        DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS recordings_meeting_id_idx ON recordings (meeting_id);
`

// EnsureSchema creates the meetings and recordings tables if they do not
// exist. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// CreateMeeting implements [store.Store.CreateMeeting].
func (s *Store) CreateMeeting(ctx context.Context, m store.Meeting) (store.Meeting, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = store.MeetingActive
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO meetings (id, title, source_language, target_language, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		m.ID, m.Title, m.SourceLanguage, m.TargetLanguage, m.Status)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return store.Meeting{}, fmt.Errorf("postgres: create meeting: %w", err)
	}
	return m, nil
}

// GetMeeting implements [store.Store.GetMeeting].
func (s *Store) GetMeeting(ctx context.Context, id uuid.UUID) (store.Meeting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, source_language, target_language, status, created_at, ended_at
		FROM meetings WHERE id = $1`, id)

	m, err := scanMeeting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Meeting{}, store.ErrNotFound
	}
	if err != nil {
		return store.Meeting{}, fmt.Errorf("postgres: get meeting: %w", err)
	}
	return m, nil
}

// ListMeetings implements [store.Store.ListMeetings].
func (s *Store) ListMeetings(ctx context.Context) ([]store.Meeting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, source_language, target_language, status, created_at, ended_at
		FROM meetings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list meetings: %w", err)
	}
	defer rows.Close()

	meetings := make([]store.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list meetings: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list meetings: %w", err)
	}
	return meetings, nil
}

// UpdateMeetingTitle implements [store.Store.UpdateMeetingTitle].
func (s *Store) UpdateMeetingTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE meetings SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("postgres: update meeting title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// EndMeeting implements [store.Store.EndMeeting].
func (s *Store) EndMeeting(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE meetings
		SET status = $2, ended_at = COALESCE(ended_at, now())
		WHERE id = $1`,
		id, store.MeetingEnded)
	if err != nil {
		return fmt.Errorf("postgres: end meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteMeeting implements [store.Store.DeleteMeeting]. Recordings are
// removed by the ON DELETE CASCADE constraint.
func (s *Store) DeleteMeeting(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddRecording implements [store.Store.AddRecording].
func (s *Store) AddRecording(ctx context.Context, r store.Recording) (store.Recording, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO recordings (id, meeting_id, transcripts, insights, target_language, duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		r.ID, r.MeetingID, r.Transcripts, r.Insights, r.TargetLanguage, r.Duration)
	if err := row.Scan(&r.CreatedAt); err != nil {
		return store.Recording{}, fmt.Errorf("postgres: add recording: %w", err)
	}
	return r, nil
}

// GetRecording implements [store.Store.GetRecording].
func (s *Store) GetRecording(ctx context.Context, id uuid.UUID) (store.Recording, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, meeting_id, transcripts, insights, target_language, duration, created_at
		FROM recordings WHERE id = $1`, id)

	r, err := scanRecording(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Recording{}, store.ErrNotFound
	}
	if err != nil {
		return store.Recording{}, fmt.Errorf("postgres: get recording: %w", err)
	}
	return r, nil
}

// ListRecordings implements [store.Store.ListRecordings].
func (s *Store) ListRecordings(ctx context.Context, meetingID uuid.UUID) ([]store.Recording, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, meeting_id, transcripts, insights, target_language, duration, created_at
		FROM recordings WHERE meeting_id = $1 ORDER BY created_at ASC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recordings: %w", err)
	}
	defer rows.Close()

	recordings := make([]store.Recording, 0)
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list recordings: %w", err)
		}
		recordings = append(recordings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recordings: %w", err)
	}
	return recordings, nil
}

// UpdateRecording implements [store.Store.UpdateRecording].
func (s *Store) UpdateRecording(ctx context.Context, r store.Recording) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recordings
		SET transcripts = $2, insights = $3, target_language = $4, duration = $5
		WHERE id = $1`,
		r.ID, r.Transcripts, r.Insights, r.TargetLanguage, r.Duration)
	if err != nil {
		return fmt.Errorf("postgres: update recording: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanMeeting reads one meetings row. Works for both QueryRow and Rows.
func scanMeeting(row pgx.Row) (store.Meeting, error) {
	var m store.Meeting
	err := row.Scan(&m.ID, &m.Title, &m.SourceLanguage, &m.TargetLanguage,
		&m.Status, &m.CreatedAt, &m.EndedAt)
	return m, err
}

// scanRecording reads one recordings row. The JSONB columns unmarshal
// directly into the fragment and insight slices.
func scanRecording(row pgx.Row) (store.Recording, error) {
	var r store.Recording
	err := row.Scan(&r.ID, &r.MeetingID, &r.Transcripts, &r.Insights,
		&r.TargetLanguage, &r.Duration, &r.CreatedAt)
	return r, err
}
