package queue

import "fmt"

// Defaults for the wait estimate when no clinic-specific values are set.
const (
	DefaultAvgServiceMinutes = 15
	DefaultMinWaitMinutes    = 5
)

// WaitMinutes estimates how long the holder of a position waits: everyone
// ahead times the average service duration, clamped to a floor so position 1
// never shows zero.
func WaitMinutes(position, avgServiceMinutes, minimumWaitMinutes int) int {
	if position < 1 {
		position = 1
	}
	minutes := (position - 1) * avgServiceMinutes
	if minutes < minimumWaitMinutes {
		return minimumWaitMinutes
	}
	return minutes
}

// FormatWait renders a minute count as "N min" under an hour and "XhYm" above.
func FormatWait(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// CalculateWait combines WaitMinutes and FormatWait.
func CalculateWait(position, avgServiceMinutes, minimumWaitMinutes int) string {
	return FormatWait(WaitMinutes(position, avgServiceMinutes, minimumWaitMinutes))
}
