// Package models defines the core domain models for meetcost.
//
// # Pipeline Models
//
// A meeting invite flows through these shapes:
//   - RawEmail: the subject/from/date/body fields pulled off the mailbox
//   - MeetingDetails: structured fields extracted from a RawEmail
//   - Resolution: one participant resolved to a role and hourly rate
//   - MeetingRecord: details plus cost, feedback tokens and participant rows
//
// MeetingDetails is never persisted. It is created per extraction pass and
// folded into a MeetingRecord once the cost is known.
//
// # Lookup Tables
//
// RoleAssignment and WageRate are the rows of the two lookup tables:
// identifier to role, and role to hourly rate. Unknown identifiers are
// registered with RoleUndefined the first time they are seen.
//
// # Feedback
//
// Every participant row carries its own feedback token. Feedback is
// submitted anonymously against that token and summarized per meeting
// as a FeedbackSummary.
//
// # Duration Policy
//
// Durations are nullable and signed at extraction time. EffectiveDuration
// is the single place where the one hour default is applied.
package models
