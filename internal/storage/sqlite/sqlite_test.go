package sqlite

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/meetcost/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "meetcost-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "data", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testMeeting(externalID string) *models.MeetingRecord {
	duration := 90
	return &models.MeetingRecord{
		ExternalID:      externalID,
		Organizer:       "org@example.com",
		Subject:         "Quarterly review",
		StartTime:       "2024-03-01 09:00:00",
		EndTime:         "2024-03-01 10:30:00",
		DurationMinutes: &duration,
		Body:            "When: 09:00-10:30",
		TotalCost:       4500.0,
		Explanation:     "Meeting cost: 4500.00 for 90 minutes (1.50 hours)",
		Warnings:        []string{`zz: no wage for role "undefined"`},
		Participants: []models.ParticipantRecord{
			{Email: "mak@example.com", Initials: "mak", Role: "developer", HourlyCost: 2000, FeedbackRequested: true},
			{Email: "zz@example.com", Initials: "zz", Role: models.RoleUndefined, HourlyCost: 0, FeedbackRequested: true},
			{Email: "kk@example.com", Initials: "kk", Role: "ceo", HourlyCost: 1000, FeedbackRequested: true},
		},
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Migrations create all tables", func(t *testing.T) {
		for _, table := range []string{"meetings", "participants", "roles", "wages", "feedback"} {
			var name string
			err := store.db.QueryRowContext(ctx,
				"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
			).Scan(&name)
			if err != nil {
				t.Errorf("table %s missing: %v", table, err)
			}
		}
	})

	t.Run("InsertMeeting generates IDs and tokens", func(t *testing.T) {
		meeting := testMeeting("111")

		id, created, err := store.InsertMeeting(ctx, meeting)
		if err != nil {
			t.Fatalf("InsertMeeting failed: %v", err)
		}

		if !created {
			t.Error("Expected meeting to be created")
		}
		if id == "" || id != meeting.ID {
			t.Errorf("Expected generated ID to be returned, got %q (record %q)", id, meeting.ID)
		}
		if meeting.FeedbackToken == "" {
			t.Error("Expected meeting feedback token to be generated")
		}
		if meeting.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		for _, p := range meeting.Participants {
			if p.FeedbackToken == "" {
				t.Errorf("Expected feedback token for %s", p.Initials)
			}
			if p.MeetingID != id {
				t.Errorf("Participant %s meeting ID = %q, want %q", p.Initials, p.MeetingID, id)
			}
		}
	})

	t.Run("GetMeeting round-trips the record", func(t *testing.T) {
		original := testMeeting("222")
		id, _, err := store.InsertMeeting(ctx, original)
		if err != nil {
			t.Fatalf("InsertMeeting failed: %v", err)
		}

		retrieved, err := store.GetMeeting(ctx, id)
		if err != nil {
			t.Fatalf("GetMeeting failed: %v", err)
		}

		if retrieved.ExternalID != "222" {
			t.Errorf("ExternalID mismatch: got %s, want 222", retrieved.ExternalID)
		}
		if math.Abs(retrieved.TotalCost-original.TotalCost) > 0.01 {
			t.Errorf("TotalCost mismatch: got %f, want %f", retrieved.TotalCost, original.TotalCost)
		}
		if retrieved.DurationMinutes == nil || *retrieved.DurationMinutes != 90 {
			t.Errorf("DurationMinutes mismatch: got %v, want 90", retrieved.DurationMinutes)
		}
		if retrieved.EndTime != original.EndTime {
			t.Errorf("EndTime mismatch: got %s, want %s", retrieved.EndTime, original.EndTime)
		}
		if len(retrieved.Warnings) != 1 || retrieved.Warnings[0] != original.Warnings[0] {
			t.Errorf("Warnings mismatch: got %v, want %v", retrieved.Warnings, original.Warnings)
		}
		if len(retrieved.Participants) != len(original.Participants) {
			t.Fatalf("Participants count mismatch: got %d, want %d", len(retrieved.Participants), len(original.Participants))
		}

		// Participants come back ordered by initials
		wantOrder := []string{"kk", "mak", "zz"}
		tokens := make(map[string]bool)
		for i, p := range retrieved.Participants {
			if p.Initials != wantOrder[i] {
				t.Errorf("Participant %d = %s, want %s", i, p.Initials, wantOrder[i])
			}
			if !p.FeedbackRequested {
				t.Errorf("Participant %s should have feedback requested", p.Initials)
			}
			tokens[p.FeedbackToken] = true
		}
		if len(tokens) != len(retrieved.Participants) {
			t.Errorf("Expected unique feedback tokens, got %d distinct for %d participants", len(tokens), len(retrieved.Participants))
		}
	})

	t.Run("InsertMeeting is idempotent by external ID", func(t *testing.T) {
		first := testMeeting("333 dup")
		firstID, created, err := store.InsertMeeting(ctx, first)
		if err != nil || !created {
			t.Fatalf("first InsertMeeting: created=%v err=%v", created, err)
		}

		second := testMeeting("333 dup")
		second.TotalCost = 1.0
		secondID, created, err := store.InsertMeeting(ctx, second)
		if err != nil {
			t.Fatalf("second InsertMeeting failed: %v", err)
		}
		if created {
			t.Error("Expected duplicate insert to be a no-op")
		}
		if secondID != firstID {
			t.Errorf("Expected existing ID %s, got %s", firstID, secondID)
		}

		var count int
		store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meetings WHERE external_id = ?", "333 dup").Scan(&count)
		if count != 1 {
			t.Errorf("Expected 1 meeting row, got %d", count)
		}

		stored, _ := store.GetMeeting(ctx, firstID)
		if stored.TotalCost != first.TotalCost {
			t.Errorf("Duplicate insert must not update: total %f", stored.TotalCost)
		}
	})

	t.Run("Meetings without external ID are never deduplicated", func(t *testing.T) {
		id1, created1, err1 := store.InsertMeeting(ctx, testMeeting(""))
		id2, created2, err2 := store.InsertMeeting(ctx, testMeeting(""))
		if err1 != nil || err2 != nil {
			t.Fatalf("InsertMeeting failed: %v / %v", err1, err2)
		}
		if !created1 || !created2 || id1 == id2 {
			t.Errorf("Expected two distinct meetings, got %s (%v) and %s (%v)", id1, created1, id2, created2)
		}
	})

	t.Run("Non-canonical start time is stored verbatim", func(t *testing.T) {
		meeting := testMeeting("444")
		meeting.StartTime = "Someday, sometime"
		meeting.EndTime = ""
		id, _, err := store.InsertMeeting(ctx, meeting)
		if err != nil {
			t.Fatalf("InsertMeeting failed: %v", err)
		}

		retrieved, err := store.GetMeeting(ctx, id)
		if err != nil {
			t.Fatalf("GetMeeting failed: %v", err)
		}
		if retrieved.StartTime != "Someday, sometime" || retrieved.EndTime != "" {
			t.Errorf("Unexpected times: start=%q end=%q", retrieved.StartTime, retrieved.EndTime)
		}
	})

	t.Run("GetMeeting returns not found for nonexistent meeting", func(t *testing.T) {
		_, err := store.GetMeeting(ctx, "nonexistent-id")
		if !errors.Is(err, models.ErrMeetingNotFound) {
			t.Errorf("Expected ErrMeetingNotFound, got %v", err)
		}
	})

	t.Run("GetMeetingByFeedbackToken", func(t *testing.T) {
		meeting := testMeeting("555")
		id, _, err := store.InsertMeeting(ctx, meeting)
		if err != nil {
			t.Fatalf("InsertMeeting failed: %v", err)
		}

		retrieved, err := store.GetMeetingByFeedbackToken(ctx, meeting.FeedbackToken)
		if err != nil {
			t.Fatalf("GetMeetingByFeedbackToken failed: %v", err)
		}
		if retrieved.ID != id {
			t.Errorf("Got meeting %s, want %s", retrieved.ID, id)
		}
	})
}

func TestPendingFeedback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ended := testMeeting("1")
	ended.EndTime = "2024-03-01 10:00:00"
	upcoming := testMeeting("2")
	upcoming.EndTime = "2024-03-05 10:00:00"
	undated := testMeeting("3")
	undated.StartTime = "garbage"
	undated.EndTime = ""

	for _, m := range []*models.MeetingRecord{ended, upcoming, undated} {
		if _, _, err := store.InsertMeeting(ctx, m); err != nil {
			t.Fatalf("InsertMeeting failed: %v", err)
		}
	}

	pending, err := store.ListPendingFeedback(ctx, "2024-03-02 00:00:00")
	if err != nil {
		t.Fatalf("ListPendingFeedback failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ended.ID {
		t.Fatalf("Expected only the ended meeting, got %d meetings", len(pending))
	}
	if len(pending[0].Participants) != 3 {
		t.Errorf("Expected participants to be loaded, got %d", len(pending[0].Participants))
	}

	if err := store.MarkFeedbackSent(ctx, ended.ID); err != nil {
		t.Fatalf("MarkFeedbackSent failed: %v", err)
	}

	pending, err = store.ListPendingFeedback(ctx, "2024-03-02 00:00:00")
	if err != nil {
		t.Fatalf("ListPendingFeedback failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending meetings after marking, got %d", len(pending))
	}

	if err := store.MarkFeedbackSent(ctx, "missing"); !errors.Is(err, models.ErrMeetingNotFound) {
		t.Errorf("Expected ErrMeetingNotFound, got %v", err)
	}

	all, err := store.ListMeetings(ctx, 0)
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 meetings, got %d", len(all))
	}

	limited, err := store.ListMeetings(ctx, 2)
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 meetings, got %d", len(limited))
	}
}

func TestFeedback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meeting := testMeeting("777")
	if _, _, err := store.InsertMeeting(ctx, meeting); err != nil {
		t.Fatalf("InsertMeeting failed: %v", err)
	}
	token := meeting.Participants[0].FeedbackToken

	participant, err := store.GetParticipantByToken(ctx, token)
	if err != nil {
		t.Fatalf("GetParticipantByToken failed: %v", err)
	}
	if participant.Initials != "mak" || participant.MeetingID != meeting.ID {
		t.Errorf("Unexpected participant: %+v", participant)
	}

	if _, err := store.GetParticipantByToken(ctx, "bogus"); !errors.Is(err, models.ErrParticipantNotFound) {
		t.Errorf("Expected ErrParticipantNotFound, got %v", err)
	}

	fb := &models.Feedback{MeetingID: meeting.ID, ParticipantToken: token, Useful: true, Improvements: "Shorter"}
	if err := store.InsertFeedback(ctx, fb); err != nil {
		t.Fatalf("InsertFeedback failed: %v", err)
	}
	if fb.ID == "" || fb.SubmittedAt == 0 {
		t.Error("Expected ID and SubmittedAt to be set")
	}

	again := &models.Feedback{MeetingID: meeting.ID, ParticipantToken: token, Useful: false}
	if err := store.InsertFeedback(ctx, again); !errors.Is(err, models.ErrFeedbackAlreadySubmitted) {
		t.Errorf("Expected ErrFeedbackAlreadySubmitted, got %v", err)
	}

	list, err := store.ListFeedback(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("ListFeedback failed: %v", err)
	}
	if len(list) != 1 || !list[0].Useful || list[0].Improvements != "Shorter" {
		t.Errorf("Unexpected feedback list: %+v", list)
	}
}

func TestLookupTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	roles := store.Roles()
	wages := store.Wages()

	t.Run("GetOrInsert registers once", func(t *testing.T) {
		role, inserted, err := roles.GetOrInsert(ctx, "zz", models.RoleUndefined)
		if err != nil {
			t.Fatalf("GetOrInsert failed: %v", err)
		}
		if !inserted || role != models.RoleUndefined {
			t.Errorf("first GetOrInsert = (%q, %v), want (%q, true)", role, inserted, models.RoleUndefined)
		}

		role, inserted, err = roles.GetOrInsert(ctx, "zz", "other")
		if err != nil {
			t.Fatalf("GetOrInsert failed: %v", err)
		}
		if inserted || role != models.RoleUndefined {
			t.Errorf("second GetOrInsert = (%q, %v), want (%q, false)", role, inserted, models.RoleUndefined)
		}

		all, err := roles.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("Expected 1 role entry, got %d", len(all))
		}
	})

	t.Run("Upsert replaces and Get reads", func(t *testing.T) {
		if err := roles.Upsert(ctx, "zz", "developer"); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		role, ok, err := roles.Get(ctx, "zz")
		if err != nil || !ok || role != "developer" {
			t.Errorf("Get = (%q, %v, %v), want developer", role, ok, err)
		}

		_, ok, err = roles.Get(ctx, "nobody")
		if err != nil || ok {
			t.Errorf("Get for missing key = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("Wage table stores floats", func(t *testing.T) {
		if err := wages.Upsert(ctx, "developer", 2000); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := wages.Upsert(ctx, "developer", 2100.5); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		rate, ok, err := wages.Get(ctx, "developer")
		if err != nil || !ok || math.Abs(rate-2100.5) > 0.01 {
			t.Errorf("Get = (%v, %v, %v), want 2100.5", rate, ok, err)
		}
	})

	t.Run("Wage table rejects negative rates", func(t *testing.T) {
		if err := wages.Upsert(ctx, "developer", -2000); !errors.Is(err, models.ErrNegativeRate) {
			t.Errorf("Upsert error = %v, want ErrNegativeRate", err)
		}
		if _, _, err := wages.GetOrInsert(ctx, "intern", -1); !errors.Is(err, models.ErrNegativeRate) {
			t.Errorf("GetOrInsert error = %v, want ErrNegativeRate", err)
		}

		rate, _, err := wages.Get(ctx, "developer")
		if err != nil || math.Abs(rate-2100.5) > 0.01 {
			t.Errorf("Get after rejected Upsert = (%v, %v), want 2100.5", rate, err)
		}
		if _, ok, _ := wages.Get(ctx, "intern"); ok {
			t.Error("rejected GetOrInsert stored an entry")
		}
	})
}
