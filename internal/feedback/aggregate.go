// Package feedback aggregates post-meeting feedback and signs the links
// participants use to submit it.
package feedback

import (
	"fmt"
	"strings"

	"github.com/mmynk/meetcost/internal/models"
)

// Aggregate reduces a meeting's feedback to a summary. Improvements keep
// submission order and blank ones are dropped. A nil entry fails the whole
// aggregation with models.ErrInvalidFeedback.
func Aggregate(meetingID string, entries []*models.Feedback) (models.FeedbackSummary, error) {
	summary := models.FeedbackSummary{
		MeetingID:    meetingID,
		Improvements: []string{},
	}

	for i, f := range entries {
		if f == nil {
			return models.FeedbackSummary{}, fmt.Errorf("entry %d is nil: %w", i, models.ErrInvalidFeedback)
		}
		summary.Responses++
		if f.Useful {
			summary.UsefulCount++
		}
		if text := strings.TrimSpace(f.Improvements); text != "" {
			summary.Improvements = append(summary.Improvements, text)
		}
	}

	return summary, nil
}
