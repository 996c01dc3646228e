package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{" \t ", true},
		{"2025-10-06", false},
		{" x ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmpty(c.input), "IsEmpty(%q)", c.input)
	}
}

func TestIsValidEmail(t *testing.T) {
	for _, email := range []string{"admin@example.com", "ops.team+alerts@cmlabs.co"} {
		assert.True(t, IsValidEmail(email), email)
	}
	for _, email := range []string{"admin@", "@example.com", "admin@localhost", ""} {
		assert.False(t, IsValidEmail(email), email)
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
	assert.True(t, IsValidUUID("0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B"))
	assert.False(t, IsValidUUID("f47ac10b58cc4372a5670e02b2c3d479"))
	assert.False(t, IsValidUUID("../../etc/passwd"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidDate(t *testing.T) {
	got, ok := IsValidDate("2025-10-06")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC), got)

	for _, s := range []string{"06/10/2025", "2025-13-01", "2025-02-30", "20251006", ""} {
		_, ok := IsValidDate(s)
		assert.False(t, ok, s)
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "from", Message: "from must be in YYYY-MM-DD format"},
		{Field: "to", Message: "to must not be before from"},
	}

	assert.Equal(t, "from: from must be in YYYY-MM-DD format; to: to must not be before from", errs.Error())
	assert.Equal(t, map[string]string{
		"from": "from must be in YYYY-MM-DD format",
		"to":   "to must not be before from",
	}, errs.ToMap())
}
