package mail

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // decode non-UTF-8 invites
	gomessage "github.com/emersion/go-message/mail"

	"github.com/mmynk/meetcost/internal/models"
)

// ParseMessage reads an RFC 5322 message. The body is the first text/plain
// part; messages without one have an empty body.
func ParseMessage(r io.Reader) (models.RawEmail, error) {
	mr, err := gomessage.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return models.RawEmail{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	raw := models.RawEmail{Date: h.Get("Date")}

	if raw.Subject, err = h.Subject(); err != nil {
		raw.Subject = h.Get("Subject")
	}
	if raw.From, err = h.Text("From"); err != nil {
		raw.From = h.Get("From")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return raw, fmt.Errorf("failed to read message part: %w", err)
		}
		if part == nil {
			continue
		}

		inline, ok := part.Header.(*gomessage.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		if contentType != "" && !strings.EqualFold(contentType, "text/plain") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return raw, fmt.Errorf("failed to read message body: %w", err)
		}
		raw.Body = string(body)
		break
	}

	return raw, nil
}
