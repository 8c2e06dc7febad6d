package calculator

import (
	"sort"

	"github.com/mmynk/meetcost/internal/models"
)

// RoleSpend is the meeting spend attributed to one role.
type RoleSpend struct {
	Role         string  `json:"role" yaml:"role"`
	Participants int     `json:"participants" yaml:"participants"` // distinct identifiers
	Hours        float64 `json:"hours" yaml:"hours"`               // participant-hours
	Total        float64 `json:"total" yaml:"total"`
}

// ParticipantSpend is the meeting spend attributed to one identifier.
type ParticipantSpend struct {
	Identifier string  `json:"identifier" yaml:"identifier"`
	Role       string  `json:"role" yaml:"role"`
	Meetings   int     `json:"meetings" yaml:"meetings"`
	Hours      float64 `json:"hours" yaml:"hours"`
	Total      float64 `json:"total" yaml:"total"`
}

// SpendSummary aggregates stored meetings.
type SpendSummary struct {
	Meetings      int                `json:"meetings" yaml:"meetings"`
	Total         float64            `json:"total" yaml:"total"`
	ByRole        []RoleSpend        `json:"by_role" yaml:"by_role"`
	ByParticipant []ParticipantSpend `json:"by_participant" yaml:"by_participant"`
}

// SummarizeSpend computes spend across multiple meetings.
// It uses the role and rate stored with each participant, so later changes
// to the lookup tables do not rewrite history.
//
// Algorithm:
// - For each meeting: hours = effective duration / 60
// - For each participant: cost = stored hourly cost × hours
// - Aggregate per identifier and per role; sort by total descending
func SummarizeSpend(meetings []*models.MeetingRecord) SpendSummary {
	people := make(map[string]*ParticipantSpend)
	roles := make(map[string]*RoleSpend)
	roleMembers := make(map[string]map[string]struct{})

	summary := SpendSummary{Meetings: len(meetings)}

	for _, m := range meetings {
		minutes, _ := models.EffectiveDuration(m.DurationMinutes)
		hours := float64(minutes) / 60.0

		for _, p := range m.Participants {
			cost := p.HourlyCost * hours

			ps, exists := people[p.Initials]
			if !exists {
				ps = &ParticipantSpend{Identifier: p.Initials}
				people[p.Initials] = ps
			}
			// Last seen role wins for display.
			ps.Role = p.Role
			ps.Meetings++
			ps.Hours += hours
			ps.Total += cost

			rs, exists := roles[p.Role]
			if !exists {
				rs = &RoleSpend{Role: p.Role}
				roles[p.Role] = rs
				roleMembers[p.Role] = make(map[string]struct{})
			}
			roleMembers[p.Role][p.Initials] = struct{}{}
			rs.Hours += hours
			rs.Total += cost

			summary.Total += cost
		}
	}

	for role, rs := range roles {
		rs.Participants = len(roleMembers[role])
		summary.ByRole = append(summary.ByRole, *rs)
	}
	for _, ps := range people {
		summary.ByParticipant = append(summary.ByParticipant, *ps)
	}

	sort.Slice(summary.ByRole, func(i, j int) bool {
		if summary.ByRole[i].Total != summary.ByRole[j].Total {
			return summary.ByRole[i].Total > summary.ByRole[j].Total
		}
		return summary.ByRole[i].Role < summary.ByRole[j].Role
	})
	sort.Slice(summary.ByParticipant, func(i, j int) bool {
		if summary.ByParticipant[i].Total != summary.ByParticipant[j].Total {
			return summary.ByParticipant[i].Total > summary.ByParticipant[j].Total
		}
		return summary.ByParticipant[i].Identifier < summary.ByParticipant[j].Identifier
	})

	return summary
}
