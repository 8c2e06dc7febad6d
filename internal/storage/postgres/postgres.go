// Package postgres provides a PostgreSQL-backed implementation of the
// storage interfaces on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

// New connects to dsn and runs migrations.
func New(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	return sqlDB.Close()
}

// InsertMeeting stores a meeting and its participants in one transaction.
// A meeting whose external ID is already stored is left untouched and the
// existing meeting's ID is returned with created=false.
func (s *PostgresStore) InsertMeeting(ctx context.Context, record *models.MeetingRecord) (string, bool, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	if record.FeedbackToken == "" {
		record.FeedbackToken = uuid.New().String()
	}

	id := record.ID
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toMeetingRow(record)
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row)
		if res.Error != nil {
			return fmt.Errorf("failed to insert meeting: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			if record.ExternalID == "" {
				return fmt.Errorf("failed to insert meeting: conflicting id %s", record.ID)
			}
			var existing meetingRow
			if err := tx.Select("id").Where("external_id = ?", record.ExternalID).First(&existing).Error; err != nil {
				return fmt.Errorf("failed to get existing meeting: %w", err)
			}
			id = existing.ID
			return nil
		}

		if len(record.Participants) > 0 {
			rows := make([]participantRow, len(record.Participants))
			for i := range record.Participants {
				p := &record.Participants[i]
				p.MeetingID = record.ID
				if p.FeedbackToken == "" {
					p.FeedbackToken = uuid.New().String()
				}
				rows[i] = toParticipantRow(*p)
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		created = true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	return id, created, nil
}

func (s *PostgresStore) meetings(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("initials")
	})
}

// GetMeeting retrieves a meeting by ID, including its participants.
func (s *PostgresStore) GetMeeting(ctx context.Context, id string) (*models.MeetingRecord, error) {
	return s.getMeetingWhere(ctx, "id = ?", id)
}

// GetMeetingByFeedbackToken retrieves a meeting by its meeting-level feedback token.
func (s *PostgresStore) GetMeetingByFeedbackToken(ctx context.Context, token string) (*models.MeetingRecord, error) {
	return s.getMeetingWhere(ctx, "feedback_token = ?", token)
}

func (s *PostgresStore) getMeetingWhere(ctx context.Context, cond, arg string) (*models.MeetingRecord, error) {
	var row meetingRow
	err := s.meetings(ctx).Where(cond, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrMeetingNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return row.toModel(), nil
}

// ListMeetings returns meetings newest first, with participants.
func (s *PostgresStore) ListMeetings(ctx context.Context, limit int) ([]*models.MeetingRecord, error) {
	q := s.meetings(ctx).Order("created_at DESC, start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return findMeetings(q)
}

// ListPendingFeedback returns ended meetings whose participants were not yet asked for feedback.
func (s *PostgresStore) ListPendingFeedback(ctx context.Context, endedBefore string) ([]*models.MeetingRecord, error) {
	q := s.meetings(ctx).
		Where("feedback_sent = ? AND end_time <> '' AND end_time <= ?", false, endedBefore).
		Order("end_time")
	return findMeetings(q)
}

func findMeetings(q *gorm.DB) ([]*models.MeetingRecord, error) {
	var rows []meetingRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	meetings := make([]*models.MeetingRecord, len(rows))
	for i := range rows {
		meetings[i] = rows[i].toModel()
	}
	return meetings, nil
}

// MarkFeedbackSent flags a meeting's feedback requests as sent.
func (s *PostgresStore) MarkFeedbackSent(ctx context.Context, meetingID string) error {
	res := s.db.WithContext(ctx).Model(&meetingRow{}).Where("id = ?", meetingID).Update("feedback_sent", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark feedback sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrMeetingNotFound, meetingID)
	}
	return nil
}

// GetParticipantByToken retrieves the participant owning a feedback token.
func (s *PostgresStore) GetParticipantByToken(ctx context.Context, token string) (*models.ParticipantRecord, error) {
	var row participantRow
	err := s.db.WithContext(ctx).Where("feedback_token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

// InsertFeedback persists feedback. Each participant token is accepted once.
func (s *PostgresStore) InsertFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.SubmittedAt == 0 {
		feedback.SubmittedAt = time.Now().Unix()
	}

	row := feedbackRow{
		ID:               feedback.ID,
		MeetingID:        feedback.MeetingID,
		ParticipantToken: feedback.ParticipantToken,
		Useful:           feedback.Useful,
		Improvements:     feedback.Improvements,
		SubmittedAt:      feedback.SubmittedAt,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "participant_token"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to insert feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrFeedbackAlreadySubmitted
	}
	return nil
}

// ListFeedback retrieves all feedback for a meeting, oldest first.
func (s *PostgresStore) ListFeedback(ctx context.Context, meetingID string) ([]models.Feedback, error) {
	var rows []feedbackRow
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("submitted_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	list := make([]models.Feedback, len(rows))
	for i, r := range rows {
		list[i] = r.toModel()
	}
	return list, nil
}
