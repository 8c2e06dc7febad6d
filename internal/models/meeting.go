package models

// RawEmail is the subset of an inbound message the extractor reads.
type RawEmail struct {
	// UID is the mailbox-assigned identifier, zero for messages read from disk.
	UID uint32

	// From is the raw From header (e.g., `Jane Doe <jd@example.com>`).
	From string

	// Subject is the decoded Subject header.
	Subject string

	// Date is the raw Date header, untouched.
	Date string

	// Body is the first text/plain part of the message.
	Body string
}

// MeetingDetails holds the fields extracted from one meeting invite.
type MeetingDetails struct {
	// Organizer is the first email address found in the From header.
	Organizer string `json:"organizer" yaml:"organizer"`

	// From is the raw From header.
	From string `json:"from" yaml:"from"`

	// Participants are identifiers under the organizational domain.
	// Always lowercase, deduplicated and sorted ascending.
	Participants []string `json:"participants" yaml:"participants"`

	// Subject is the email subject.
	Subject string `json:"subject" yaml:"subject"`

	// Start is the meeting start in TimeLayout form, or the raw Date
	// header when it could not be parsed.
	Start string `json:"start" yaml:"start"`

	// DurationMinutes is end minus start from the `When:` line.
	// Nil when the line is absent. May be zero or negative.
	DurationMinutes *int `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`

	// Body is the raw message body.
	Body string `json:"-" yaml:"-"`

	// ExternalID is the conferencing meeting number with whitespace removed.
	// Empty when the invite carries none.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`
}

// MeetingRecord is the persisted form of a costed meeting.
type MeetingRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string `json:"id" yaml:"id"`

	// ExternalID is the deduplication key. Empty values never collide.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	// Organizer is the address the cost summary is sent to.
	Organizer string `json:"organizer" yaml:"organizer"`

	Subject string `json:"subject" yaml:"subject"`

	// StartTime is in TimeLayout form when the date header parsed,
	// otherwise the raw header.
	StartTime string `json:"start_time" yaml:"start_time"`

	// EndTime is StartTime plus the effective duration.
	// Empty when StartTime is not in TimeLayout form.
	EndTime string `json:"end_time,omitempty" yaml:"end_time,omitempty"`

	// DurationMinutes is the extracted duration, nil when absent.
	DurationMinutes *int `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`

	Body string `json:"-" yaml:"-"`

	// TotalCost is the sum of all participant costs.
	TotalCost float64 `json:"total_cost" yaml:"total_cost"`

	// Explanation is the human-readable cost breakdown.
	Explanation string `json:"explanation" yaml:"explanation"`

	// Warnings name participants whose cost is likely wrong.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// FeedbackToken identifies the meeting for feedback reports.
	FeedbackToken string `json:"feedback_token" yaml:"feedback_token"`

	// FeedbackSent is set once participants were asked for feedback.
	FeedbackSent bool `json:"feedback_sent" yaml:"feedback_sent"`

	// CreatedAt is the Unix timestamp when the record was stored.
	CreatedAt int64 `json:"created_at" yaml:"created_at"`

	Participants []ParticipantRecord `json:"participants" yaml:"participants"`
}

// ParticipantRecord is one attendee of a persisted meeting.
type ParticipantRecord struct {
	MeetingID string `json:"meeting_id" yaml:"meeting_id"`

	// Email is `{identifier}@{organizational domain}`.
	Email string `json:"email" yaml:"email"`

	// Initials is the participant identifier.
	Initials string `json:"initials" yaml:"initials"`

	// Role is the resolved role, RoleUndefined when unclassified.
	Role string `json:"role" yaml:"role"`

	// HourlyCost is the resolved rate, 0 when the role has no wage.
	HourlyCost float64 `json:"hourly_cost" yaml:"hourly_cost"`

	// FeedbackToken lets this participant submit feedback anonymously.
	FeedbackToken string `json:"feedback_token" yaml:"feedback_token"`

	// FeedbackRequested defaults to true.
	FeedbackRequested bool `json:"feedback_requested" yaml:"feedback_requested"`
}

// Identifiers returns the participant identifiers of the record.
func (r *MeetingRecord) Identifiers() []string {
	ids := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		ids = append(ids, p.Initials)
	}
	return ids
}
