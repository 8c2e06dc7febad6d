package models

// Feedback is one participant's anonymous response for a meeting.
type Feedback struct {
	// ID is the unique identifier for the feedback (UUID format).
	ID string `json:"id" yaml:"id"`

	// MeetingID is the meeting the feedback belongs to.
	MeetingID string `json:"meeting_id" yaml:"meeting_id"`

	// ParticipantToken is the participant feedback token it was submitted with.
	// A token can be used once.
	ParticipantToken string `json:"-" yaml:"-"`

	// Useful is the participant's yes/no verdict on the meeting.
	Useful bool `json:"useful" yaml:"useful"`

	// Improvements is optional free text.
	Improvements string `json:"improvements,omitempty" yaml:"improvements,omitempty"`

	// SubmittedAt is the Unix timestamp of the submission.
	SubmittedAt int64 `json:"submitted_at" yaml:"submitted_at"`
}

// FeedbackSummary aggregates all feedback for one meeting.
type FeedbackSummary struct {
	MeetingID    string   `json:"meeting_id" yaml:"meeting_id"`
	Responses    int      `json:"responses" yaml:"responses"`
	UsefulCount  int      `json:"useful_count" yaml:"useful_count"`
	Improvements []string `json:"improvements" yaml:"improvements"`
}
