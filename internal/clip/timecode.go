package clip

import (
	"fmt"
	"math"
)

// FormatTimecode renders seconds as HH:MM:SS:mmm, the clip start readout.
func FormatTimecode(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := math.Floor(seconds)
	whole := int64(total)
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	secs := whole % 60
	millis := int64(math.Floor((seconds - total) * 1000))
	return fmt.Sprintf("%02d:%02d:%02d:%03d", hours, minutes, secs, millis)
}
