// Package schedule derives the time bucket of a scheduled item.
package schedule

import (
	"strings"
	"time"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

// layouts accepted for the joined "date time" string, most specific first.
// Month names match case-insensitively, so "OCT 28, 2026 7:30 PM" parses.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04PM",
	"Jan 2, 2006 15:04",
	"Jan 2 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"2 Jan 2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006 3:04 PM",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Parse reads a loosely formatted schedule in loc. ok is false when no layout matches.
func Parse(raw string, loc *time.Location) (time.Time, bool) {
	// AM/PM only parse upper-case
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Classify places scheduledAt relative to now. Unparseable or empty
// schedules are Upcoming so they stay visible and promotable.
func Classify(scheduledAt string, now time.Time, loc *time.Location) content.TimeBucket {
	t, ok := Parse(scheduledAt, loc)
	if !ok {
		return content.BucketUpcoming
	}
	if !t.Before(now) {
		return content.BucketUpcoming
	}
	return content.BucketPast
}

// Classifier binds Classify to a clock and a time zone.
type Classifier struct {
	Now      func() time.Time
	Location *time.Location
}

// New returns a Classifier on the wall clock in loc.
func New(loc *time.Location) *Classifier {
	return &Classifier{Now: time.Now, Location: loc}
}

// Bucket classifies an item. ok is false for kinds without a schedule.
func (c *Classifier) Bucket(it *content.Item) (content.TimeBucket, bool) {
	raw, ok := it.Schedule()
	if !ok {
		return "", false
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return Classify(raw, now(), c.Location), true
}
