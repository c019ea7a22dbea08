package delivery

import (
	"errors"
	"fmt"
	"time"
)

var errRangeInverted = errors.New("to must not be before from")

// resolvePreset maps a named range onto an inclusive date pair, evaluated
// against now in the report timezone.
func resolvePreset(name string, now time.Time) (string, string, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var start, end time.Time
	switch name {
	case "today":
		start, end = today, today
	case "yesterday":
		start = today.AddDate(0, 0, -1)
		end = start
	case "this_week":
		// Weeks start on Sunday, matching the report's week segmentation.
		start = today.AddDate(0, 0, -int(today.Weekday()))
		end = today
	case "last_week":
		thisSunday := today.AddDate(0, 0, -int(today.Weekday()))
		start = thisSunday.AddDate(0, 0, -7)
		end = thisSunday.AddDate(0, 0, -1)
	case "last_7_days":
		start, end = today.AddDate(0, 0, -6), today
	case "last_30_days":
		start, end = today.AddDate(0, 0, -29), today
	case "this_month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = today
	case "last_month":
		firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		start = firstOfThis.AddDate(0, -1, 0)
		end = firstOfThis.AddDate(0, 0, -1)
	default:
		return "", "", fmt.Errorf("unknown range preset %q", name)
	}

	return start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}
