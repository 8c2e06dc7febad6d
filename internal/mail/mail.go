// Package mail reads meeting invites from an IMAP mailbox and sends cost
// summaries and feedback requests over SMTP.
package mail

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mmynk/meetcost/internal/models"
)

// Source yields unseen inbound emails, newest first.
type Source interface {
	Poll(ctx context.Context) ([]models.RawEmail, error)
}

// Acknowledger is implemented by sources that leave polled messages unseen
// until the caller has handled them. Messages never acknowledged are
// returned again by a later Poll.
type Acknowledger interface {
	MarkSeen(ctx context.Context, uids ...uint32) error
}

// Sink delivers one outbound email. The body is plain text; sinks may add
// an HTML rendering of it.
type Sink interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RetryPolicy bounds the exponential backoff used for mail server calls.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy retries for up to 30 seconds.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 2 * time.Second,
	MaxInterval:     10 * time.Second,
	MaxElapsedTime:  30 * time.Second,
}

func (p RetryPolicy) retry(ctx context.Context, op backoff.Operation) error {
	if p == (RetryPolicy{}) {
		p = DefaultRetryPolicy
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = p.MaxElapsedTime
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
