package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/meetcost/internal/feedback"
	"github.com/mmynk/meetcost/internal/mail"
	"github.com/mmynk/meetcost/internal/metrics"
	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

// FeedbackService asks participants of ended meetings for feedback, accepts
// their anonymous submissions and reports the aggregate to organizers.
type FeedbackService struct {
	store   storage.Store
	sink    mail.Sink
	signer  *feedback.LinkSigner
	baseURL string
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewFeedbackService creates a FeedbackService. The sink may be nil when
// feedback requests are not sent from this process.
func NewFeedbackService(store storage.Store, sink mail.Sink, signer *feedback.LinkSigner, baseURL string, m *metrics.Metrics) *FeedbackService {
	return &FeedbackService{
		store:   store,
		sink:    sink,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: m,
		now:     time.Now,
	}
}

// SendResult counts the feedback requests of one SendRequests call.
type SendResult struct {
	Meetings int `json:"meetings" yaml:"meetings"`
	Sent     int `json:"sent" yaml:"sent"`
	Failed   int `json:"failed" yaml:"failed"`
}

// FeedbackForm is what a participant sees before submitting feedback.
type FeedbackForm struct {
	Subject   string `json:"subject"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	Submitted bool   `json:"submitted"`
}

// SendRequests emails a feedback link to every participant of each meeting
// that has ended and was not yet handled. A meeting is marked as handled only
// when all of its requests were delivered, so failed ones are retried on the
// next call.
func (s *FeedbackService) SendRequests(ctx context.Context) (SendResult, error) {
	if s.sink == nil {
		return SendResult{}, errors.New("no mail sink configured")
	}

	meetings, err := s.store.ListPendingFeedback(ctx, s.now().Format(models.TimeLayout))
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{Meetings: len(meetings)}
	for _, m := range meetings {
		delivered := true
		for _, p := range m.Participants {
			if !p.FeedbackRequested {
				continue
			}
			if err := s.request(ctx, m, p); err != nil {
				delivered = false
				result.Failed++
				s.metrics.FeedbackRequestsTotal.WithLabelValues("failed").Inc()
				slog.Error("Failed to send feedback request", "meeting_id", m.ID, "to", p.Email, "error", err)
				continue
			}
			result.Sent++
			s.metrics.FeedbackRequestsTotal.WithLabelValues("sent").Inc()
		}

		if !delivered {
			continue
		}
		if err := s.store.MarkFeedbackSent(ctx, m.ID); err != nil {
			return result, err
		}
		slog.Info("Requested feedback", "meeting_id", m.ID, "participants", len(m.Participants))
	}

	return result, nil
}

func (s *FeedbackService) request(ctx context.Context, m *models.MeetingRecord, p models.ParticipantRecord) error {
	link, err := s.signer.Sign(p.FeedbackToken)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s - How was the meeting?", m.Subject)
	body := fmt.Sprintf(
		"You attended %q on %s.\n\nWas it useful? What could be improved?\nAnswer anonymously: %s/v1/feedback/%s",
		m.Subject, m.StartTime, s.baseURL, link,
	)
	return s.sink.Send(ctx, p.Email, subject, body)
}

// Lookup returns the meeting a feedback link belongs to.
func (s *FeedbackService) Lookup(ctx context.Context, link string) (*FeedbackForm, error) {
	p, err := s.participant(ctx, link)
	if err != nil {
		return nil, err
	}

	m, err := s.store.GetMeeting(ctx, p.MeetingID)
	if err != nil {
		return nil, err
	}

	submitted, err := s.submitted(ctx, m.ID, p.FeedbackToken)
	if err != nil {
		return nil, err
	}

	return &FeedbackForm{
		Subject:   m.Subject,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Submitted: submitted,
	}, nil
}

// Submit stores a participant's feedback. Each link is accepted once.
func (s *FeedbackService) Submit(ctx context.Context, link string, useful bool, improvements string) error {
	p, err := s.participant(ctx, link)
	if err != nil {
		s.metrics.FeedbackSubmissionsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	err = s.store.InsertFeedback(ctx, &models.Feedback{
		MeetingID:        p.MeetingID,
		ParticipantToken: p.FeedbackToken,
		Useful:           useful,
		Improvements:     strings.TrimSpace(improvements),
		SubmittedAt:      s.now().Unix(),
	})
	if errors.Is(err, models.ErrFeedbackAlreadySubmitted) {
		s.metrics.FeedbackSubmissionsTotal.WithLabelValues("duplicate").Inc()
		return err
	}
	if err != nil {
		s.metrics.FeedbackSubmissionsTotal.WithLabelValues("failed").Inc()
		return err
	}

	s.metrics.FeedbackSubmissionsTotal.WithLabelValues("accepted").Inc()
	slog.Info("Feedback submitted", "meeting_id", p.MeetingID, "useful", useful)
	return nil
}

// Report aggregates the feedback of the meeting owning meetingToken.
func (s *FeedbackService) Report(ctx context.Context, meetingToken string) (models.FeedbackSummary, error) {
	m, err := s.store.GetMeetingByFeedbackToken(ctx, meetingToken)
	if err != nil {
		return models.FeedbackSummary{}, err
	}
	return s.ReportByID(ctx, m.ID)
}

// ReportByID aggregates the feedback of a meeting.
func (s *FeedbackService) ReportByID(ctx context.Context, meetingID string) (models.FeedbackSummary, error) {
	list, err := s.store.ListFeedback(ctx, meetingID)
	if err != nil {
		return models.FeedbackSummary{}, err
	}

	entries := make([]*models.Feedback, len(list))
	for i := range list {
		entries[i] = &list[i]
	}
	return feedback.Aggregate(meetingID, entries)
}

func (s *FeedbackService) participant(ctx context.Context, link string) (*models.ParticipantRecord, error) {
	token, err := s.signer.Verify(link)
	if err != nil {
		return nil, err
	}
	return s.store.GetParticipantByToken(ctx, token)
}

func (s *FeedbackService) submitted(ctx context.Context, meetingID, token string) (bool, error) {
	list, err := s.store.ListFeedback(ctx, meetingID)
	if err != nil {
		return false, err
	}
	for _, f := range list {
		if f.ParticipantToken == token {
			return true, nil
		}
	}
	return false, nil
}
