package planner

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
)

// Scheduling is passive: a scheduled draft is a status plus a timestamp and
// nothing happens when the timestamp passes. The helpers here only read it.

// IsPastDue reports whether d is scheduled for a moment before now.
func IsPastDue(d domain.Draft, now time.Time) bool {
	return d.IsScheduled() && d.ScheduledAt.Before(now)
}

// SortByScheduledAt orders drafts by scheduled time, earliest first. Drafts
// without a timestamp go last. The sort is stable.
func SortByScheduledAt(drafts []domain.Draft) {
	slices.SortStableFunc(drafts, func(a, b domain.Draft) int {
		switch {
		case a.ScheduledAt == nil && b.ScheduledAt == nil:
			return 0
		case a.ScheduledAt == nil:
			return 1
		case b.ScheduledAt == nil:
			return -1
		default:
			return a.ScheduledAt.Compare(*b.ScheduledAt)
		}
	})
}

// TimeLeft renders the distance between now and at the way the dashboard
// shows it: "in 5 minutes", "in 3 hours", "2 days ago". Hours and days are
// rounded up.
func TimeLeft(at, now time.Time) string {
	diff := at.Sub(now)
	hours := math.Ceil(diff.Hours())

	if diff < 0 {
		absHours := math.Abs(hours)
		switch {
		case absHours < 1:
			return plural(int(math.Abs(math.Ceil(diff.Minutes()))), "minute") + " ago"
		case absHours < 24:
			return plural(int(absHours), "hour") + " ago"
		default:
			return plural(int(math.Ceil(absHours/24)), "day") + " ago"
		}
	}

	switch {
	case hours < 1:
		return "in " + plural(int(math.Ceil(diff.Minutes())), "minute")
	case hours < 24:
		return "in " + plural(int(hours), "hour")
	default:
		return "in " + plural(int(math.Ceil(hours/24)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
