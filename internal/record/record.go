// Package record turns costed meeting details into persistable records.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/meetcost/internal/calculator"
	"github.com/mmynk/meetcost/internal/extractor"
	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

// Assembler builds MeetingRecords and stores them idempotently.
type Assembler struct {
	domain   string
	store    storage.MeetingStore
	newToken func() string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithTokenGenerator overrides the feedback token generator (UUIDs by default).
func WithTokenGenerator(gen func() string) Option {
	return func(a *Assembler) { a.newToken = gen }
}

// New creates an Assembler for participants under domain.
func New(domain string, store storage.MeetingStore, opts ...Option) *Assembler {
	a := &Assembler{
		domain:   strings.ToLower(strings.TrimSpace(domain)),
		store:    store,
		newToken: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble merges details and cost into a MeetingRecord.
//
// The end time is the start plus the effective duration, and is left empty
// when the start could not be normalized. Each participant gets an address
// under the organizational domain, the role and rate it was costed with, and
// a fresh feedback token.
func (a *Assembler) Assemble(details models.MeetingDetails, cost *calculator.Cost) (*models.MeetingRecord, error) {
	if cost == nil {
		return nil, errors.New("cost is required")
	}
	if len(cost.Lines) != len(details.Participants) {
		return nil, fmt.Errorf("cost has %d lines for %d participants", len(cost.Lines), len(details.Participants))
	}
	if a.domain == "" {
		return nil, fmt.Errorf("organizational domain is empty: %w", models.ErrInvalidAddress)
	}
	if _, err := extractor.InitialsFromAddress(details.Organizer); err != nil {
		return nil, fmt.Errorf("invalid organizer: %w", err)
	}

	rec := &models.MeetingRecord{
		ExternalID:      details.ExternalID,
		Organizer:       details.Organizer,
		Subject:         details.Subject,
		StartTime:       details.Start,
		EndTime:         models.EndTime(details.Start, details.DurationMinutes),
		DurationMinutes: details.DurationMinutes,
		Body:            details.Body,
		TotalCost:       cost.Total,
		Explanation:     cost.Explanation,
		Warnings:        cost.Warnings,
		FeedbackToken:   a.newToken(),
		Participants:    make([]models.ParticipantRecord, 0, len(cost.Lines)),
	}

	for _, line := range cost.Lines {
		email := line.Identifier + "@" + a.domain
		initials, err := extractor.InitialsFromAddress(email)
		if err != nil {
			return nil, fmt.Errorf("invalid participant %q: %w", line.Identifier, err)
		}

		rec.Participants = append(rec.Participants, models.ParticipantRecord{
			Email:             email,
			Initials:          initials,
			Role:              line.Role,
			HourlyCost:        line.HourlyRate,
			FeedbackToken:     a.newToken(),
			FeedbackRequested: true,
		})
	}

	return rec, nil
}

// Save stores the record unless a meeting with the same external ID exists.
// It returns the stored meeting's ID and whether this call created it.
func (a *Assembler) Save(ctx context.Context, rec *models.MeetingRecord) (string, bool, error) {
	id, created, err := a.store.InsertMeeting(ctx, rec)
	if err != nil {
		return "", false, fmt.Errorf("failed to save meeting: %w", err)
	}
	if !created {
		slog.Info("Meeting already recorded", "meeting_id", id, "external_id", rec.ExternalID)
	}
	return id, created, nil
}
