package models

import "errors"

var (
	// ErrInvalidAddress is returned for addresses missing the @ separator.
	ErrInvalidAddress = errors.New("invalid email address")

	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrFeedbackAlreadySubmitted is returned when a participant token is reused.
	ErrFeedbackAlreadySubmitted = errors.New("feedback already submitted")

	// ErrInvalidFeedback is returned for nil or malformed feedback entries.
	ErrInvalidFeedback = errors.New("invalid feedback data")

	// ErrNegativeRate is returned when a wage table entry is below zero.
	ErrNegativeRate = errors.New("hourly rate must not be negative")
)
