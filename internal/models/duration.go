package models

import "time"

// TimeLayout is the canonical timestamp form used for storage.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultMeetingDuration applies when no usable duration was extracted.
const DefaultMeetingDuration = 60

// EffectiveDuration returns the duration in minutes to cost and schedule a
// meeting with. Nil, zero and negative durations fall back to
// DefaultMeetingDuration and report defaulted=true.
func EffectiveDuration(minutes *int) (effective int, defaulted bool) {
	if minutes == nil || *minutes <= 0 {
		return DefaultMeetingDuration, true
	}
	return *minutes, false
}

// EndTime adds the effective duration to a TimeLayout start time.
// It returns "" when start is not in TimeLayout form.
func EndTime(start string, minutes *int) string {
	t, err := time.Parse(TimeLayout, start)
	if err != nil {
		return ""
	}
	effective, _ := EffectiveDuration(minutes)
	return t.Add(time.Duration(effective) * time.Minute).Format(TimeLayout)
}
