package calculator

import (
	"math"
	"testing"

	"github.com/mmynk/meetcost/internal/models"
)

func TestSummarizeSpend(t *testing.T) {
	meetings := []*models.MeetingRecord{
		{
			DurationMinutes: minutes(120),
			Participants: []models.ParticipantRecord{
				{Initials: "mak", Role: "developer", HourlyCost: 2000},
				{Initials: "kk", Role: "ceo", HourlyCost: 4000},
			},
		},
		{
			DurationMinutes: nil, // one hour
			Participants: []models.ParticipantRecord{
				{Initials: "mak", Role: "developer", HourlyCost: 2000},
				{Initials: "crh", Role: "developer", HourlyCost: 2000},
				{Initials: "zz", Role: models.RoleUndefined, HourlyCost: 0},
			},
		},
	}

	s := SummarizeSpend(meetings)

	if s.Meetings != 2 {
		t.Errorf("Meetings = %d, want 2", s.Meetings)
	}
	// 2h*(2000+4000) + 1h*(2000+2000) = 16000
	if math.Abs(s.Total-16000.0) > 0.01 {
		t.Errorf("Total = %v, want 16000.0", s.Total)
	}

	if len(s.ByRole) != 3 {
		t.Fatalf("ByRole = %d entries, want 3", len(s.ByRole))
	}
	// ceo 8000, developer 8000 (tie broken by name), undefined 0
	wantRoles := []struct {
		role         string
		participants int
		hours        float64
		total        float64
	}{
		{"ceo", 1, 2, 8000},
		{"developer", 2, 4, 8000},
		{models.RoleUndefined, 1, 1, 0},
	}
	for i, want := range wantRoles {
		got := s.ByRole[i]
		if got.Role != want.role || got.Participants != want.participants ||
			math.Abs(got.Hours-want.hours) > 0.01 || math.Abs(got.Total-want.total) > 0.01 {
			t.Errorf("ByRole[%d] = %+v, want %+v", i, got, want)
		}
	}

	if len(s.ByParticipant) != 4 {
		t.Fatalf("ByParticipant = %d entries, want 4", len(s.ByParticipant))
	}
	if top := s.ByParticipant[0]; top.Identifier != "kk" || math.Abs(top.Total-8000.0) > 0.01 {
		t.Errorf("Top participant = %+v, want kk with 8000", top)
	}
	mak := s.ByParticipant[1]
	if mak.Identifier != "mak" || mak.Meetings != 2 || math.Abs(mak.Hours-3.0) > 0.01 || math.Abs(mak.Total-6000.0) > 0.01 {
		t.Errorf("Second participant = %+v, want mak with 6000 over 3h", mak)
	}
}

func TestSummarizeSpendEmpty(t *testing.T) {
	s := SummarizeSpend(nil)
	if s.Meetings != 0 || s.Total != 0 || len(s.ByRole) != 0 {
		t.Errorf("Unexpected summary for no meetings: %+v", s)
	}
}
