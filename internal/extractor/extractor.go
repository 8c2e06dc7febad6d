// Package extractor pulls structured meeting details out of invite emails.
package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/meetcost/internal/models"
)

var (
	senderPattern    = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
	durationPattern  = regexp.MustCompile(`When:.*?(\d{2}):(\d{2})[ \t]*-[ \t]*(\d{2}):(\d{2})`)
	meetingIDPattern = regexp.MustCompile(`Meeting ID:\s*([0-9][0-9 \t]*)`)
	zoneComment      = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// dateLayouts are the Date header forms we normalize.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// Extractor turns raw emails into MeetingDetails for one organizational domain.
type Extractor struct {
	domain      string
	participant *regexp.Regexp
}

// New creates an Extractor that recognizes participants as `<id@domain>`.
// The domain match is case-insensitive.
func New(domain string) *Extractor {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return &Extractor{
		domain:      domain,
		participant: regexp.MustCompile(`(?i)<(\w{2,4})@` + regexp.QuoteMeta(domain) + `>`),
	}
}

// Domain returns the organizational domain participants belong to.
func (e *Extractor) Domain() string {
	return e.domain
}

// Extract builds MeetingDetails from a raw email.
// It fails with models.ErrInvalidAddress when the From header holds no address.
func (e *Extractor) Extract(raw models.RawEmail) (models.MeetingDetails, error) {
	organizer := SenderAddress(raw.From)
	if organizer == "" {
		return models.MeetingDetails{}, fmt.Errorf("no sender address in %q: %w", raw.From, models.ErrInvalidAddress)
	}

	return models.MeetingDetails{
		Organizer:       organizer,
		From:            raw.From,
		Participants:    e.Participants(raw.From, raw.Body),
		Subject:         raw.Subject,
		Start:           NormalizeDate(raw.Date),
		DurationMinutes: Duration(raw.Body),
		Body:            raw.Body,
		ExternalID:      MeetingID(raw.Body),
	}, nil
}

// Participants collects `<id@domain>` identifiers from all fields.
// The result is lowercase, deduplicated and sorted.
func (e *Extractor) Participants(fields ...string) []string {
	seen := make(map[string]struct{})
	for _, field := range fields {
		for _, m := range e.participant.FindAllStringSubmatch(field, -1) {
			seen[strings.ToLower(m[1])] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SenderAddress returns the first email address in from, or "".
func SenderAddress(from string) string {
	return senderPattern.FindString(from)
}

// Duration returns end minus start in minutes from the `When:` line.
// The result is nil when no such line exists and may be negative.
func Duration(body string) *int {
	m := durationPattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}

	start := clockMinutes(m[1], m[2])
	end := clockMinutes(m[3], m[4])
	d := end - start
	return &d
}

func clockMinutes(hh, mm string) int {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	return h*60 + m
}

// MeetingID returns the digits following `Meeting ID:` with whitespace removed.
func MeetingID(body string) string {
	m := meetingIDPattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(m[1]), "")
}

// NormalizeDate reformats an email Date header to models.TimeLayout,
// keeping the header's own offset. Unparseable input is returned unchanged.
func NormalizeDate(raw string) string {
	value := zoneComment.ReplaceAllString(strings.TrimSpace(raw), "")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(models.TimeLayout)
		}
	}
	return raw
}

// InitialsFromAddress returns the lowercase local part of an address.
func InitialsFromAddress(addr string) (string, error) {
	local, _, found := strings.Cut(strings.TrimSpace(addr), "@")
	if !found || local == "" {
		return "", fmt.Errorf("%q: %w", addr, models.ErrInvalidAddress)
	}
	return strings.ToLower(local), nil
}
