package calculator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/meetcost/internal/models"
)

// WageResolver resolves one participant identifier to a role and rate.
type WageResolver interface {
	Resolve(ctx context.Context, identifier string) (models.Resolution, error)
}

// Line is one participant's share of a meeting's cost.
type Line struct {
	models.Resolution `yaml:",inline"`
	Hours             float64 `json:"hours" yaml:"hours"`
	Cost              float64 `json:"cost" yaml:"cost"`
}

// Cost is the result of costing a meeting.
type Cost struct {
	Total float64 `json:"total" yaml:"total"`

	// Minutes is the effective duration used for the calculation.
	Minutes int     `json:"minutes" yaml:"minutes"`
	Hours   float64 `json:"hours" yaml:"hours"`

	// DefaultDuration is true when no usable duration was extracted.
	DefaultDuration bool `json:"default_duration" yaml:"default_duration"`

	// Lines follow the participant order of the details.
	Lines []Line `json:"lines" yaml:"lines"`

	// Explanation is the multi-line human-readable breakdown.
	Explanation string `json:"explanation" yaml:"explanation"`

	// Warnings name participants whose cost is likely wrong: identifiers
	// registered during this calculation and roles without a wage.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Calculate computes the cost of a meeting.
// Based on: participant_cost = hourly_rate × duration_hours, total = Σ participant_cost
func Calculate(ctx context.Context, details models.MeetingDetails, resolver WageResolver) (*Cost, error) {
	minutes, defaulted := models.EffectiveDuration(details.DurationMinutes)
	hours := float64(minutes) / 60.0

	cost := &Cost{
		Minutes:         minutes,
		Hours:           hours,
		DefaultDuration: defaulted,
		Lines:           make([]Line, 0, len(details.Participants)),
	}

	for _, id := range details.Participants {
		res, err := resolver.Resolve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve participant %s: %w", id, err)
		}

		line := Line{Resolution: res, Hours: hours, Cost: res.HourlyRate * hours}
		cost.Total += line.Cost
		cost.Lines = append(cost.Lines, line)

		switch {
		case res.Status == models.AutoRegistered:
			cost.Warnings = append(cost.Warnings, fmt.Sprintf("%s: not in role table, registered as %q", res.Identifier, res.Role))
		case !res.RateDefined:
			cost.Warnings = append(cost.Warnings, fmt.Sprintf("%s: no wage for role %q", res.Identifier, res.Role))
		}
	}

	cost.Explanation = Explain(cost)
	return cost, nil
}

// DurationDescription renders the duration part of the summary line.
func DurationDescription(minutes int, defaulted bool) string {
	if defaulted {
		return "1 hour (default)"
	}
	return fmt.Sprintf("%d minutes (%.2f hours)", minutes, float64(minutes)/60.0)
}

// Explain renders the summary line followed by one breakdown line per participant.
func Explain(c *Cost) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting cost: %.2f for %s\nBreakdown:", c.Total, DurationDescription(c.Minutes, c.DefaultDuration))
	for _, l := range c.Lines {
		fmt.Fprintf(&b, "\n%s: %.2f/hr * %.2fhr = %.2f", l.Identifier, l.HourlyRate, l.Hours, l.Cost)
	}
	return b.String()
}
