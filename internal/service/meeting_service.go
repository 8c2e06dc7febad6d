package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/meetcost/internal/calculator"
	"github.com/mmynk/meetcost/internal/extractor"
	"github.com/mmynk/meetcost/internal/mail"
	"github.com/mmynk/meetcost/internal/metrics"
	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/record"
)

// TableResolver resolves participants and can reload its lookup tables.
type TableResolver interface {
	calculator.WageResolver
	Refresh(ctx context.Context) error
}

// MeetingService turns meeting invites into costed, stored meeting records
// and mails a cost summary to each organizer.
type MeetingService struct {
	source    mail.Source
	sink      mail.Sink
	extractor *extractor.Extractor
	resolver  TableResolver
	assembler *record.Assembler
	metrics   *metrics.Metrics

	reportBaseURL string
}

// MeetingOption configures a MeetingService.
type MeetingOption func(*MeetingService)

// WithReportBaseURL adds a feedback report link to cost summaries.
func WithReportBaseURL(baseURL string) MeetingOption {
	return func(s *MeetingService) { s.reportBaseURL = strings.TrimRight(baseURL, "/") }
}

// NewMeetingService creates a MeetingService. The source and sink may be nil
// when only Estimate is used.
func NewMeetingService(
	source mail.Source,
	sink mail.Sink,
	ex *extractor.Extractor,
	resolver TableResolver,
	assembler *record.Assembler,
	m *metrics.Metrics,
	opts ...MeetingOption,
) *MeetingService {
	s := &MeetingService{
		source:    source,
		sink:      sink,
		extractor: ex,
		resolver:  resolver,
		assembler: assembler,
		metrics:   m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BatchResult counts the outcomes of one mailbox batch.
type BatchResult struct {
	Fetched    int `json:"fetched" yaml:"fetched"`
	Recorded   int `json:"recorded" yaml:"recorded"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Rejected   int `json:"rejected" yaml:"rejected"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Estimate is the costing of one invite without persistence.
type Estimate struct {
	Details models.MeetingDetails `json:"details" yaml:"details"`
	Cost    *calculator.Cost      `json:"cost" yaml:"cost"`
}

// ProcessResult is the outcome of processing one invite.
type ProcessResult struct {
	MeetingID string
	Created   bool
	Record    *models.MeetingRecord
	Cost      *calculator.Cost
}

// ProcessBatch polls the mailbox once and processes every fetched invite.
// Rejected and failed invites are counted and skipped; only a failure to
// refresh the tables or poll the mailbox fails the batch. When the source is
// a mail.Acknowledger, every invite except the failed ones is marked seen,
// so failed invites are polled again by the next batch.
func (s *MeetingService) ProcessBatch(ctx context.Context) (BatchResult, error) {
	start := time.Now()
	defer func() { s.metrics.BatchSeconds.Observe(time.Since(start).Seconds()) }()

	if s.source == nil {
		return BatchResult{}, errors.New("no mail source configured")
	}
	if err := s.resolver.Refresh(ctx); err != nil {
		return BatchResult{}, err
	}

	emails, err := s.source.Poll(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to poll mailbox: %w", err)
	}

	result := BatchResult{Fetched: len(emails)}
	var handled []uint32
	for _, raw := range emails {
		if err := ctx.Err(); err != nil {
			s.acknowledge(context.WithoutCancel(ctx), handled)
			return result, err
		}

		res, err := s.ProcessEmail(ctx, raw)
		if err == nil || errors.Is(err, models.ErrInvalidAddress) {
			handled = append(handled, raw.UID)
		}
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			result.Rejected++
			s.metrics.EmailsProcessedTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			slog.Warn("Rejected invite", "uid", raw.UID, "subject", raw.Subject, "error", err)
		case err != nil:
			result.Failed++
			s.metrics.EmailsProcessedTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			slog.Error("Failed to process invite", "uid", raw.UID, "subject", raw.Subject, "error", err)
		case !res.Created:
			result.Duplicates++
			s.metrics.EmailsProcessedTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		default:
			result.Recorded++
			s.metrics.EmailsProcessedTotal.WithLabelValues(metrics.OutcomeRecorded).Inc()
		}
	}

	s.acknowledge(ctx, handled)

	slog.Info("Processed batch",
		"fetched", result.Fetched,
		"recorded", result.Recorded,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *MeetingService) acknowledge(ctx context.Context, uids []uint32) {
	ack, ok := s.source.(mail.Acknowledger)
	if !ok || len(uids) == 0 {
		return
	}
	if err := ack.MarkSeen(ctx, uids...); err != nil {
		slog.Error("Failed to mark invites seen", "count", len(uids), "error", err)
	}
}

// ProcessEmail extracts, costs and stores one invite, then notifies the
// organizer. Invites already recorded under the same external ID are not
// stored or notified again. A failed notification is logged, not returned.
func (s *MeetingService) ProcessEmail(ctx context.Context, raw models.RawEmail) (*ProcessResult, error) {
	est, err := s.Estimate(ctx, raw)
	if err != nil {
		return nil, err
	}

	rec, err := s.assembler.Assemble(est.Details, est.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble meeting record: %w", err)
	}

	id, created, err := s.assembler.Save(ctx, rec)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{MeetingID: id, Created: created, Record: rec, Cost: est.Cost}
	if !created {
		return result, nil
	}

	s.metrics.MeetingCost.Observe(rec.TotalCost)
	s.metrics.MeetingCostTotal.Add(rec.TotalCost)
	for _, line := range est.Cost.Lines {
		s.metrics.ParticipantsTotal.WithLabelValues(string(line.Status)).Inc()
	}

	slog.Info("Recorded meeting",
		"meeting_id", id,
		"external_id", rec.ExternalID,
		"subject", rec.Subject,
		"cost", rec.TotalCost,
		"participants", len(rec.Participants),
	)

	s.notify(ctx, rec, est.Cost)
	return result, nil
}

// Estimate extracts and costs one invite without storing it. Unknown
// participants are still registered in the role table.
func (s *MeetingService) Estimate(ctx context.Context, raw models.RawEmail) (*Estimate, error) {
	details, err := s.extractor.Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract meeting details: %w", err)
	}

	slog.Debug("Extracted meeting",
		"subject", details.Subject,
		"organizer", details.Organizer,
		"participants", details.Participants,
		"external_id", details.ExternalID,
	)

	cost, err := calculator.Calculate(ctx, details, s.resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate meeting cost: %w", err)
	}

	return &Estimate{Details: details, Cost: cost}, nil
}

// Run processes batches until ctx is cancelled. A zero interval runs a
// single batch. Batch errors are logged and the loop continues.
func (s *MeetingService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		_, err := s.ProcessBatch(ctx)
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.ProcessBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Batch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *MeetingService) notify(ctx context.Context, rec *models.MeetingRecord, cost *calculator.Cost) {
	if s.sink == nil {
		return
	}

	subject := SummarySubject(rec)
	if err := s.sink.Send(ctx, rec.Organizer, subject, s.summaryBody(rec, cost)); err != nil {
		s.metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		slog.Error("Failed to send cost summary", "meeting_id", rec.ID, "to", rec.Organizer, "error", err)
		return
	}
	s.metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}

// SummarySubject is the subject line of a meeting's cost summary.
func SummarySubject(rec *models.MeetingRecord) string {
	return fmt.Sprintf("%s [ID: %s] - Meeting Cost Summary", rec.Subject, rec.ExternalID)
}

func (s *MeetingService) summaryBody(rec *models.MeetingRecord, cost *calculator.Cost) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cost: %.2f\n\n%s", rec.TotalCost, rec.Explanation)

	if len(cost.Warnings) > 0 {
		b.WriteString("\n\nWarnings:")
		for _, w := range cost.Warnings {
			b.WriteString("\n- " + w)
		}
	}

	if s.reportBaseURL != "" {
		fmt.Fprintf(&b, "\n\nFeedback report: %s/v1/meetings/%s/feedback", s.reportBaseURL, rec.FeedbackToken)
	}
	return b.String()
}
