package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hoursPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*h(?:ours?|rs?)?(?:[^A-Za-z]|$)`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*min`)
	clockPattern   = regexp.MustCompile(`^(\d+):([0-5]\d)(?::[0-5]\d)?$`)
)

// ParseDuration reads a rendered duration such as "2 h 30 min", "45 min", "8 h" or "7:30"
// and returns whole minutes. ok is false when text carries no duration token.
func ParseDuration(text string) (minutes int, ok bool) {
	text = strings.TrimSpace(text)
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h*60 + mm, true
	}

	h := hoursPattern.FindStringSubmatch(text)
	mm := minutesPattern.FindStringSubmatch(text)
	if h == nil && mm == nil {
		return 0, false
	}
	if h != nil {
		n, _ := strconv.ParseFloat(strings.Replace(h[1], ",", ".", 1), 64)
		minutes += int(math.Round(n * 60))
	}
	if mm != nil {
		n, _ := strconv.Atoi(mm[1])
		minutes += n
	}
	return minutes, true
}

// MillisToMinutes converts a state duration in milliseconds to whole minutes.
func MillisToMinutes(ms float64) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Round(ms / 60000))
}
