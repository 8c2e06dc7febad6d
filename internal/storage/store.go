// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/meetcost/internal/models"
)

// KeyValueStore is a durable string-keyed table.
// It backs both the identifier-to-role and role-to-wage lookups.
type KeyValueStore[V any] interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (V, bool, error)

	// GetOrInsert returns the stored value for key. When key is absent it
	// stores value first and reports inserted=true. The check and the
	// insert happen atomically.
	GetOrInsert(ctx context.Context, key string, value V) (stored V, inserted bool, err error)

	// Upsert sets key to value, replacing any previous value.
	Upsert(ctx context.Context, key string, value V) error

	// All returns a snapshot of every entry.
	All(ctx context.Context) (map[string]V, error)
}

// RoleTable maps participant identifiers to roles.
type RoleTable = KeyValueStore[string]

// WageTable maps roles to hourly rates.
type WageTable = KeyValueStore[float64]

// Refresher is implemented by tables that cache their backing data and
// can re-read it between processing batches.
type Refresher interface {
	Reload(ctx context.Context) error
}

// MeetingStore persists costed meetings.
type MeetingStore interface {
	// InsertMeeting stores the meeting and all its participants atomically.
	// When a meeting with the same non-empty ExternalID exists, nothing is
	// written and the existing ID is returned with created=false.
	InsertMeeting(ctx context.Context, record *models.MeetingRecord) (id string, created bool, err error)

	// GetMeeting returns a meeting with its participants.
	// Returns models.ErrMeetingNotFound if no such meeting exists.
	GetMeeting(ctx context.Context, id string) (*models.MeetingRecord, error)

	// GetMeetingByFeedbackToken looks a meeting up by its meeting-level token.
	GetMeetingByFeedbackToken(ctx context.Context, token string) (*models.MeetingRecord, error)

	// ListMeetings returns the most recently stored meetings first.
	// A limit <= 0 returns all meetings.
	ListMeetings(ctx context.Context, limit int) ([]*models.MeetingRecord, error)

	// ListPendingFeedback returns meetings that ended at or before
	// endedBefore (models.TimeLayout) and whose feedback was not yet requested.
	ListPendingFeedback(ctx context.Context, endedBefore string) ([]*models.MeetingRecord, error)

	// MarkFeedbackSent flags a meeting's feedback requests as sent.
	MarkFeedbackSent(ctx context.Context, meetingID string) error
}

// FeedbackStore persists anonymous participant feedback.
type FeedbackStore interface {
	// GetParticipantByToken returns the participant owning a feedback token.
	// Returns models.ErrParticipantNotFound for unknown tokens.
	GetParticipantByToken(ctx context.Context, token string) (*models.ParticipantRecord, error)

	// InsertFeedback stores feedback. Returns
	// models.ErrFeedbackAlreadySubmitted if the token was already used.
	InsertFeedback(ctx context.Context, feedback *models.Feedback) error

	// ListFeedback returns all feedback for a meeting, oldest first.
	ListFeedback(ctx context.Context, meetingID string) ([]models.Feedback, error)
}

// Store defines the full persistence surface used by the pipeline.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the pipeline.
type Store interface {
	MeetingStore
	FeedbackStore

	// Close releases any resources held by the store.
	Close() error
}
