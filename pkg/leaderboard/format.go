package leaderboard

import (
	"math"
	"strconv"
)

// FormatCompact renders 1234 as "1.2k" and 3400000 as "3.4M".
func FormatCompact(n int64) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "k"
	}
	return strconv.FormatInt(n, 10)
}

// ChangePercent is the rounded month-over-month change. With no previous
// posts any activity counts as 100%.
func ChangePercent(current, previous int64) int {
	if previous > 0 {
		return int(math.Round(float64(current-previous) / float64(previous) * 100))
	}
	if current > 0 {
		return 100
	}
	return 0
}

func percentage(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
