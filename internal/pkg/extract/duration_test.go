package extract_test

import (
	"testing"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/extract"
	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"0 min", 0, true},
		{"0 h 0 min", 0, true},
		{"2 h 30 min", 150, true},
		{"45 min", 45, true},
		{"8 h", 480, true},
		{"1.5 h", 90, true},
		{"12 hours", 720, true},
		{"7:30", 450, true},
		{"  3h 5min ", 185, true},
		{"2h30min", 150, true},
		{"1h5min", 65, true},
		{"8h", 480, true},
		{"2hrs 15 min", 135, true},
		{"", 0, false},
		{"—", 0, false},
		{"05/10/2025 Sunday", 0, false},
		{"Thursday", 0, false},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			minutes, ok := extract.ParseDuration(c.in)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.minutes, minutes)
		})
	}
}

func TestMillisToMinutes(t *testing.T) {
	assert.Equal(t, 150, extract.MillisToMinutes(9_000_000))
	assert.Equal(t, 1, extract.MillisToMinutes(59_999))
	assert.Equal(t, 0, extract.MillisToMinutes(-5))
}
