// Package sqlite provides a SQLite-backed implementation of the storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMAs applied and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertMeeting persists a meeting and its participants in one transaction.
func (s *SQLiteStore) InsertMeeting(ctx context.Context, record *models.MeetingRecord) (string, bool, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	if record.FeedbackToken == "" {
		record.FeedbackToken = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var duration sql.NullInt64
	if record.DurationMinutes != nil {
		duration = sql.NullInt64{Int64: int64(*record.DurationMinutes), Valid: true}
	}
	warnings, err := encodeWarnings(record.Warnings)
	if err != nil {
		return "", false, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO meetings (id, external_id, organizer, subject, start_time, end_time, duration_minutes,
		     body, total_cost, explanation, warnings, feedback_token, feedback_sent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		record.ID, record.ExternalID, record.Organizer, record.Subject, record.StartTime, record.EndTime, duration,
		record.Body, record.TotalCost, record.Explanation, warnings, record.FeedbackToken, record.FeedbackSent, record.CreatedAt,
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert meeting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to check inserted meeting: %w", err)
	}

	if affected == 0 {
		if record.ExternalID == "" {
			return "", false, fmt.Errorf("failed to insert meeting: conflicting id %s", record.ID)
		}
		var existingID string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM meetings WHERE external_id = ?", record.ExternalID,
		).Scan(&existingID)
		if err != nil {
			return "", false, fmt.Errorf("failed to get existing meeting: %w", err)
		}
		return existingID, false, nil
	}

	for i := range record.Participants {
		p := &record.Participants[i]
		p.MeetingID = record.ID
		if p.FeedbackToken == "" {
			p.FeedbackToken = uuid.New().String()
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO participants (meeting_id, email, initials, role, hourly_cost, feedback_token, feedback_requested)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.MeetingID, p.Email, p.Initials, p.Role, p.HourlyCost, p.FeedbackToken, p.FeedbackRequested,
		)
		if err != nil {
			return "", false, fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return record.ID, true, nil
}

const meetingColumns = `id, external_id, organizer, subject, start_time, end_time, duration_minutes,
	body, total_cost, explanation, warnings, feedback_token, feedback_sent, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.MeetingRecord, error) {
	m := &models.MeetingRecord{}
	var duration sql.NullInt64
	var warnings string
	err := row.Scan(&m.ID, &m.ExternalID, &m.Organizer, &m.Subject, &m.StartTime, &m.EndTime, &duration,
		&m.Body, &m.TotalCost, &m.Explanation, &warnings, &m.FeedbackToken, &m.FeedbackSent, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		m.DurationMinutes = &d
	}
	if err := json.Unmarshal([]byte(warnings), &m.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}
	if len(m.Warnings) == 0 {
		m.Warnings = nil
	}
	return m, nil
}

func encodeWarnings(warnings []string) (string, error) {
	if warnings == nil {
		warnings = []string{}
	}
	b, err := json.Marshal(warnings)
	if err != nil {
		return "", fmt.Errorf("failed to encode warnings: %w", err)
	}
	return string(b), nil
}

// GetMeeting retrieves a meeting by ID, including its participants.
func (s *SQLiteStore) GetMeeting(ctx context.Context, id string) (*models.MeetingRecord, error) {
	return s.getMeetingWhere(ctx, "id = ?", id)
}

// GetMeetingByFeedbackToken retrieves a meeting by its meeting-level feedback token.
func (s *SQLiteStore) GetMeetingByFeedbackToken(ctx context.Context, token string) (*models.MeetingRecord, error) {
	return s.getMeetingWhere(ctx, "feedback_token = ?", token)
}

func (s *SQLiteStore) getMeetingWhere(ctx context.Context, cond string, arg string) (*models.MeetingRecord, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE "+cond, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrMeetingNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	if m.Participants, err = s.listParticipants(ctx, m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMeetings returns meetings newest first, with participants.
func (s *SQLiteStore) ListMeetings(ctx context.Context, limit int) ([]*models.MeetingRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.queryMeetings(ctx,
		"SELECT "+meetingColumns+" FROM meetings ORDER BY created_at DESC, start_time DESC LIMIT ?", limit)
}

// ListPendingFeedback returns ended meetings whose participants were not yet asked for feedback.
func (s *SQLiteStore) ListPendingFeedback(ctx context.Context, endedBefore string) ([]*models.MeetingRecord, error) {
	return s.queryMeetings(ctx,
		"SELECT "+meetingColumns+` FROM meetings
		 WHERE feedback_sent = 0 AND end_time <> '' AND end_time <= ?
		 ORDER BY end_time`, endedBefore)
}

func (s *SQLiteStore) queryMeetings(ctx context.Context, query string, args ...any) ([]*models.MeetingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	var meetings []*models.MeetingRecord
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	// Participants are loaded after the cursor is closed; the store uses a single connection.
	for _, m := range meetings {
		if m.Participants, err = s.listParticipants(ctx, m.ID); err != nil {
			return nil, err
		}
	}
	return meetings, nil
}

func (s *SQLiteStore) listParticipants(ctx context.Context, meetingID string) ([]models.ParticipantRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT meeting_id, email, initials, role, hourly_cost, feedback_token, feedback_requested
		 FROM participants WHERE meeting_id = ? ORDER BY initials`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.ParticipantRecord
	for rows.Next() {
		var p models.ParticipantRecord
		if err := rows.Scan(&p.MeetingID, &p.Email, &p.Initials, &p.Role, &p.HourlyCost,
			&p.FeedbackToken, &p.FeedbackRequested); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// MarkFeedbackSent flags a meeting's feedback requests as sent.
func (s *SQLiteStore) MarkFeedbackSent(ctx context.Context, meetingID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE meetings SET feedback_sent = 1 WHERE id = ?", meetingID)
	if err != nil {
		return fmt.Errorf("failed to mark feedback sent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", models.ErrMeetingNotFound, meetingID)
	}
	return nil
}
