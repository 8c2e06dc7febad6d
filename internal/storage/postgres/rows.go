package postgres

import (
	"gorm.io/datatypes"

	"github.com/mmynk/meetcost/internal/models"
)

type meetingRow struct {
	ID              string `gorm:"primaryKey"`
	ExternalID      string
	Organizer       string
	Subject         string
	StartTime       string
	EndTime         string
	DurationMinutes *int
	Body            string
	TotalCost       float64
	Explanation     string
	Warnings        datatypes.JSONType[[]string] `gorm:"type:jsonb"`
	FeedbackToken   string
	FeedbackSent    bool
	CreatedAt       int64 `gorm:"autoCreateTime:false"`

	Participants []participantRow `gorm:"foreignKey:MeetingID;references:ID"`
}

func (meetingRow) TableName() string { return "meetings" }

type participantRow struct {
	MeetingID         string `gorm:"primaryKey"`
	Email             string `gorm:"primaryKey"`
	Initials          string
	Role              string
	HourlyCost        float64
	FeedbackToken     string
	FeedbackRequested bool
}

func (participantRow) TableName() string { return "participants" }

type feedbackRow struct {
	ID               string `gorm:"primaryKey"`
	MeetingID        string
	ParticipantToken string
	Useful           bool
	Improvements     string
	SubmittedAt      int64
}

func (feedbackRow) TableName() string { return "feedback" }

func toMeetingRow(m *models.MeetingRecord) meetingRow {
	warnings := m.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return meetingRow{
		ID:              m.ID,
		ExternalID:      m.ExternalID,
		Organizer:       m.Organizer,
		Subject:         m.Subject,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		DurationMinutes: m.DurationMinutes,
		Body:            m.Body,
		TotalCost:       m.TotalCost,
		Explanation:     m.Explanation,
		Warnings:        datatypes.NewJSONType(warnings),
		FeedbackToken:   m.FeedbackToken,
		FeedbackSent:    m.FeedbackSent,
		CreatedAt:       m.CreatedAt,
	}
}

func (r *meetingRow) toModel() *models.MeetingRecord {
	m := &models.MeetingRecord{
		ID:              r.ID,
		ExternalID:      r.ExternalID,
		Organizer:       r.Organizer,
		Subject:         r.Subject,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes,
		Body:            r.Body,
		TotalCost:       r.TotalCost,
		Explanation:     r.Explanation,
		FeedbackToken:   r.FeedbackToken,
		FeedbackSent:    r.FeedbackSent,
		CreatedAt:       r.CreatedAt,
	}
	if w := r.Warnings.Data(); len(w) > 0 {
		m.Warnings = w
	}
	for _, p := range r.Participants {
		m.Participants = append(m.Participants, p.toModel())
	}
	return m
}

func toParticipantRow(p models.ParticipantRecord) participantRow {
	return participantRow{
		MeetingID:         p.MeetingID,
		Email:             p.Email,
		Initials:          p.Initials,
		Role:              p.Role,
		HourlyCost:        p.HourlyCost,
		FeedbackToken:     p.FeedbackToken,
		FeedbackRequested: p.FeedbackRequested,
	}
}

func (r participantRow) toModel() models.ParticipantRecord {
	return models.ParticipantRecord{
		MeetingID:         r.MeetingID,
		Email:             r.Email,
		Initials:          r.Initials,
		Role:              r.Role,
		HourlyCost:        r.HourlyCost,
		FeedbackToken:     r.FeedbackToken,
		FeedbackRequested: r.FeedbackRequested,
	}
}

func (r feedbackRow) toModel() models.Feedback {
	return models.Feedback{
		ID:               r.ID,
		MeetingID:        r.MeetingID,
		ParticipantToken: r.ParticipantToken,
		Useful:           r.Useful,
		Improvements:     r.Improvements,
		SubmittedAt:      r.SubmittedAt,
	}
}
