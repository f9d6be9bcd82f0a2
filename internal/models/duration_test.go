package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationLabel(t *testing.T) {
	valid := map[string]time.Duration{
		"30 mins":   30 * time.Minute,
		"1 hour":    time.Hour,
		"2 Hours":   2 * time.Hour,
		"1.5 hours": 90 * time.Minute,
		"90m":       90 * time.Minute,
		"1h30m":     90 * time.Minute,
		"120s":      2 * time.Minute,
	}
	for label, want := range valid {
		got, err := ParseDurationLabel(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	for _, label := range []string{"", "soon", "0 mins", "-1 hour", "90s", "1m30s", "0.5 mins", "1.01 hours", "3 days"} {
		_, err := ParseDurationLabel(label)
		assert.Error(t, err, label)
	}
}

func TestDurationLabel(t *testing.T) {
	assert.Equal(t, "30 mins", DurationLabel(30))
	assert.Equal(t, "1 hour", DurationLabel(60))
	assert.Equal(t, "2 hours", DurationLabel(120))
	assert.Equal(t, "90 mins", DurationLabel(90))
}
