package record

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/meetcost/internal/calculator"
	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/resolver"
	"github.com/mmynk/meetcost/internal/storage/sqlite"
)

type fixture struct {
	store    *sqlite.SQLiteStore
	resolver *resolver.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for id, role := range map[string]string{"mak": "developer", "crh": "developer", "kk": "ceo"} {
		require.NoError(t, store.Roles().Upsert(ctx, id, role))
	}
	require.NoError(t, store.Wages().Upsert(ctx, "developer", 2000))
	require.NoError(t, store.Wages().Upsert(ctx, "ceo", 4000))

	return &fixture{store: store, resolver: resolver.New(store.Roles(), store.Wages())}
}

func (f *fixture) costed(t *testing.T, details models.MeetingDetails) *calculator.Cost {
	t.Helper()
	cost, err := calculator.Calculate(context.Background(), details, f.resolver)
	require.NoError(t, err)
	return cost
}

func details(externalID string, duration *int) models.MeetingDetails {
	return models.MeetingDetails{
		Organizer:       "org@example.com",
		From:            "Org <org@example.com>",
		Participants:    []string{"crh", "kk", "mak", "zz"},
		Subject:         "Planning",
		Start:           "2024-03-01 21:00:00",
		DurationMinutes: duration,
		Body:            "When: 21:00-23:00",
		ExternalID:      externalID,
	}
}

func minutes(v int) *int { return &v }

func TestAssembleAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := New("Example.com", f.store)

	d := details("123", minutes(120))
	rec, err := a.Assemble(d, f.costed(t, d))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01 23:00:00", rec.EndTime)
	assert.InDelta(t, 16000.0, rec.TotalCost, 0.001)
	require.Len(t, rec.Participants, 4)
	assert.Equal(t, "zz@example.com", rec.Participants[3].Email)
	assert.Equal(t, "zz", rec.Participants[3].Initials)
	assert.Equal(t, models.RoleUndefined, rec.Participants[3].Role)
	assert.Equal(t, 0.0, rec.Participants[3].HourlyCost)
	assert.Equal(t, "ceo", rec.Participants[1].Role)
	assert.Equal(t, 4000.0, rec.Participants[1].HourlyCost)

	id, created, err := a.Save(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	stored, err := f.store.GetMeeting(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 4)
	assert.Equal(t, fmt.Sprintf("%.2f", rec.TotalCost), fmt.Sprintf("%.2f", stored.TotalCost))

	tokens := map[string]struct{}{stored.FeedbackToken: {}}
	for _, p := range stored.Participants {
		assert.True(t, p.FeedbackRequested)
		tokens[p.FeedbackToken] = struct{}{}
	}
	assert.Len(t, tokens, 5, "meeting and participant tokens must all differ")
}

func TestSaveDuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := New("example.com", f.store)

	d := details("999", minutes(30))
	first, err := a.Assemble(d, f.costed(t, d))
	require.NoError(t, err)
	firstID, created, err := a.Save(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	second, err := a.Assemble(d, f.costed(t, d))
	require.NoError(t, err)
	secondID, created, err := a.Save(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, secondID)

	all, err := f.store.ListMeetings(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssembleDurationPolicy(t *testing.T) {
	f := newFixture(t)
	a := New("example.com", f.store)

	tests := []struct {
		name     string
		start    string
		duration *int
		wantEnd  string
	}{
		{name: "absent duration schedules one hour", start: "2024-03-01 21:00:00", duration: nil, wantEnd: "2024-03-01 22:00:00"},
		{name: "negative duration schedules one hour", start: "2024-03-01 20:00:00", duration: minutes(-30), wantEnd: "2024-03-01 21:00:00"},
		{name: "non-canonical start leaves end empty", start: "Fri, 1 Mar 2024 at nine", duration: minutes(30), wantEnd: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := details("", tt.duration)
			d.Start = tt.start
			cost := f.costed(t, d)

			rec, err := a.Assemble(d, cost)
			require.NoError(t, err)
			assert.Equal(t, tt.start, rec.StartTime)
			assert.Equal(t, tt.wantEnd, rec.EndTime)

			// Both layers agree on the default.
			if tt.duration == nil || *tt.duration <= 0 {
				assert.True(t, cost.DefaultDuration)
				assert.Equal(t, models.DefaultMeetingDuration, cost.Minutes)
			}
		})
	}
}

func TestAssembleRejectsBrokenInput(t *testing.T) {
	f := newFixture(t)

	d := details("1", nil)
	cost := f.costed(t, d)

	bad := d
	bad.Organizer = "not-an-address"
	_, err := New("example.com", f.store).Assemble(bad, cost)
	assert.ErrorIs(t, err, models.ErrInvalidAddress)

	_, err = New("", f.store).Assemble(d, cost)
	assert.ErrorIs(t, err, models.ErrInvalidAddress)

	_, err = New("example.com", f.store).Assemble(d, nil)
	assert.Error(t, err)
}

func TestWithTokenGenerator(t *testing.T) {
	f := newFixture(t)
	n := 0
	a := New("example.com", f.store, WithTokenGenerator(func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}))

	d := details("", nil)
	rec, err := a.Assemble(d, f.costed(t, d))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", rec.FeedbackToken)
	assert.Equal(t, "tok-2", rec.Participants[0].FeedbackToken)
}
