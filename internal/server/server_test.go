package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/meetcost/internal/feedback"
	"github.com/mmynk/meetcost/internal/metrics"
	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/service"
	"github.com/mmynk/meetcost/internal/storage/sqlite"
)

type testServer struct {
	handler http.Handler
	meeting *models.MeetingRecord
	signer  *feedback.LinkSigner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	meeting := &models.MeetingRecord{
		Organizer: "mak@example.com",
		Subject:   "Standup",
		StartTime: "2024-03-01 09:00:00",
		EndTime:   "2024-03-01 09:15:00",
		Participants: []models.ParticipantRecord{
			{Email: "kk@example.com", Initials: "kk", Role: "ceo", FeedbackRequested: true},
			{Email: "mak@example.com", Initials: "mak", Role: "developer", FeedbackRequested: true},
		},
	}
	_, _, err = store.InsertMeeting(context.Background(), meeting)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	signer := feedback.NewLinkSigner("server-test-key", 0)
	fb := service.NewFeedbackService(store, nil, signer, "http://localhost", metrics.New(reg))

	return &testServer{handler: New(fb, reg).Handler(), meeting: meeting, signer: signer}
}

func (ts *testServer) link(t *testing.T, i int) string {
	t.Helper()
	link, err := ts.signer.Sign(ts.meeting.Participants[i].FeedbackToken)
	require.NoError(t, err)
	return link
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Touch a vector so it shows up in the exposition.
	rec := ts.do(http.MethodPost, "/v1/feedback/bogus", `{"useful": true}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `meetcost_feedback_submissions_total{result="invalid"} 1`)
}

func TestFeedbackFlow(t *testing.T) {
	ts := newTestServer(t)
	first, second := ts.link(t, 0), ts.link(t, 1)

	rec := ts.do(http.MethodGet, "/v1/feedback/"+first, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var form service.FeedbackForm
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, "Standup", form.Subject)
	assert.False(t, form.Submitted)

	rec = ts.do(http.MethodPost, "/v1/feedback/"+first, `{"useful": true, "improvements": "Start on time"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/feedback/"+first, `{"useful": false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/feedback/"+second, `{"useful": false}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/meetings/"+ts.meeting.FeedbackToken+"/feedback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.FeedbackSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Responses)
	assert.Equal(t, 1, summary.UsefulCount)
	assert.Equal(t, []string{"Start on time"}, summary.Improvements)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	ts := newTestServer(t)
	link := ts.link(t, 0)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing useful", `{"improvements": "x"}`, http.StatusBadRequest},
		{"malformed json", `{"useful": `, http.StatusBadRequest},
		{"improvements too long", `{"useful": true, "improvements": "` + strings.Repeat("a", 2001) + `"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/v1/feedback/"+link, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	unknown, err := ts.signer.Sign("unknown-token")
	require.NoError(t, err)

	rec := ts.do(http.MethodGet, "/v1/feedback/"+unknown, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/meetings/unknown/feedback", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
