package metrics

import (
	"fmt"
	"time"
)

// Uptime sentinels.
const (
	UptimeStopped    = "0s"
	UptimeUnknown    = "unknown"
	UptimeParseError = "parse error"
)

// FormatUptime renders d as H:MM:SS. The hours field is not bounded.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// UptimeString formats the time elapsed since startUnix. A zero, negative or
// future start time yields UptimeParseError.
func UptimeString(startUnix int64, now time.Time) string {
	if startUnix <= 0 || startUnix > now.Unix() {
		return UptimeParseError
	}
	return FormatUptime(now.Sub(time.Unix(startUnix, 0)))
}
