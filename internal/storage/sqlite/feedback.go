package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/meetcost/internal/models"
)

// GetParticipantByToken retrieves the participant owning a feedback token.
func (s *SQLiteStore) GetParticipantByToken(ctx context.Context, token string) (*models.ParticipantRecord, error) {
	p := &models.ParticipantRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT meeting_id, email, initials, role, hourly_cost, feedback_token, feedback_requested
		 FROM participants WHERE feedback_token = ?`,
		token,
	).Scan(&p.MeetingID, &p.Email, &p.Initials, &p.Role, &p.HourlyCost, &p.FeedbackToken, &p.FeedbackRequested)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return p, nil
}

// InsertFeedback persists feedback. Each participant token is accepted once.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.SubmittedAt == 0 {
		feedback.SubmittedAt = time.Now().Unix()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, meeting_id, participant_token, useful, improvements, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (participant_token) DO NOTHING`,
		feedback.ID, feedback.MeetingID, feedback.ParticipantToken,
		feedback.Useful, feedback.Improvements, feedback.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inserted feedback: %w", err)
	}
	if n == 0 {
		return models.ErrFeedbackAlreadySubmitted
	}

	return nil
}

// ListFeedback retrieves all feedback for a meeting, oldest first.
func (s *SQLiteStore) ListFeedback(ctx context.Context, meetingID string) ([]models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, meeting_id, participant_token, useful, improvements, submitted_at
		 FROM feedback WHERE meeting_id = ? ORDER BY submitted_at, id`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var list []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.MeetingID, &f.ParticipantToken, &f.Useful, &f.Improvements, &f.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		list = append(list, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	return list, nil
}
