// Package funding holds the settlement countdown formatting shared by the
// display API.
package funding

import (
	"fmt"
	"time"
)

const (
	// Placeholder is shown before the first funding fetch succeeds.
	Placeholder = "--:--:--"
	// Settling is shown while the settlement timestamp is in the past,
	// until the exchange publishes the next one.
	Settling = "Settling"
)

// FormatCountdown renders the time remaining until the given settlement
// timestamp (epoch milliseconds) as HH:MM:SS. Hours widen past two digits
// rather than wrap.
func FormatCountdown(nextFundingTime *int64, now time.Time) string {
	if nextFundingTime == nil || *nextFundingTime == 0 {
		return Placeholder
	}

	diff := *nextFundingTime - now.UnixMilli()
	if diff <= 0 {
		return Settling
	}

	hours := diff / (1000 * 60 * 60)
	minutes := (diff % (1000 * 60 * 60)) / (1000 * 60)
	seconds := (diff % (1000 * 60)) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// FormatDuration renders an elapsed duration as HH:MM:SS, used for the
// service uptime counter.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
