package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/mmynk/meetcost/internal/models"
)

const multipartInvite = "From: =?UTF-8?Q?J=C3=BCrgen_Org?= <org@example.com>\r\n" +
	"To: <mak@example.com>, <kk@example.com>\r\n" +
	"Subject: Sprint planning\r\n" +
	"Date: Fri, 1 Mar 2024 20:15:00 +0100\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>html version</p>\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"When: 21:00-21:30\r\n" +
	"Meeting ID: 123 456\r\n" +
	"--b1--\r\n"

func TestParseMessageMultipart(t *testing.T) {
	raw, err := ParseMessage(strings.NewReader(multipartInvite))
	require.NoError(t, err)

	assert.Equal(t, "Sprint planning", raw.Subject)
	assert.Equal(t, "Fri, 1 Mar 2024 20:15:00 +0100", raw.Date)
	assert.Contains(t, raw.From, "Jürgen Org")
	assert.Contains(t, raw.From, "org@example.com")
	assert.Contains(t, raw.Body, "When: 21:00-21:30")
	assert.NotContains(t, raw.Body, "html version")
}

func TestParseMessageSinglePart(t *testing.T) {
	msg := "From: org@example.com\r\nSubject: Hi\r\n\r\nMeeting ID: 42\r\n"

	raw, err := ParseMessage(strings.NewReader(msg))
	require.NoError(t, err)
	assert.Equal(t, "org@example.com", raw.From)
	assert.Equal(t, "Hi", raw.Subject)
	assert.Equal(t, "", raw.Date)
	assert.Contains(t, raw.Body, "Meeting ID: 42")
}

func TestRenderHTMLEscapesBody(t *testing.T) {
	html, err := RenderHTML("Summary", "Cost: 10\n<script>alert(1)</script>")
	require.NoError(t, err)

	assert.Contains(t, html, "Cost: 10\n")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<title>Summary</title>")
}

type flakyDeliverer struct {
	failures int
	calls    int
	sent     []*gomail.Msg
}

func (d *flakyDeliverer) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	d.calls++
	if d.calls <= d.failures {
		return errors.New("421 try again later")
	}
	d.sent = append(d.sent, messages...)
	return nil
}

var fastRetry = RetryPolicy{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

func TestSMTPSinkRetries(t *testing.T) {
	d := &flakyDeliverer{failures: 2}
	sink := &SMTPSink{cfg: SMTPConfig{From: "bot@example.com", Retry: fastRetry}, client: d}

	err := sink.Send(context.Background(), "org@example.com", "Planning [ID: 1] - Meeting Cost Summary", "Cost: 16000.00\n\nBreakdown")
	require.NoError(t, err)
	assert.Equal(t, 3, d.calls)
	require.Len(t, d.sent, 1)

	var buf bytes.Buffer
	_, err = d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Meeting Cost Summary")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "text/html")
}

func TestSMTPSinkGivesUpWhenContextEnds(t *testing.T) {
	d := &flakyDeliverer{failures: 1000}
	sink := &SMTPSink{cfg: SMTPConfig{From: "bot@example.com", Retry: fastRetry}, client: d}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sink.Send(ctx, "org@example.com", "s", "b")
	assert.Error(t, err)
	assert.Empty(t, d.sent)
}

func TestSMTPSinkRejectsBadRecipient(t *testing.T) {
	d := &flakyDeliverer{}
	sink := &SMTPSink{cfg: SMTPConfig{From: "bot@example.com", Retry: fastRetry}, client: d}

	err := sink.Send(context.Background(), "not an address", "s", "b")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)
	assert.Equal(t, 0, d.calls)
}
