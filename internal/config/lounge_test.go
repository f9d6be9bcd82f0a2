package config

import (
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/models"
)

const sampleLounge = `
timezone: UTC
require_full_payment: true
categories:
  - name: PS5
    max_persons: 4
    seat_count: 2
  - name: VR
    seats:
      - { number: 7, name: VR Bay }
pricing:
  - { category: PS5, duration: 1 hour, price: 200 }
  - { category: PS5, kind: happy_hour, duration: 1 hour, persons: 1, price: 150 }
  - { category: VR, duration: 30 mins, price: "249.50" }
happy_hours:
  - { category: PS5, start: "14:00", end: "16:00" }
`

func TestParseLounge(t *testing.T) {
	lounge, err := ParseLounge([]byte(sampleLounge))
	require.NoError(t, err)

	s := lounge.Settings
	assert.True(t, s.RequireFullPayment)
	assert.Equal(t, "UTC", s.Location.String())
	assert.Equal(t, 4, s.MaxPersonsFor("PS5"))
	assert.Equal(t, 1, s.MaxPersonsFor("VR"))

	seat, ok := s.Seat("PS5", 2)
	require.True(t, ok)
	assert.Equal(t, "PS5-2", seat.Name)
	seat, ok = s.Seat("VR", 7)
	require.True(t, ok)
	assert.Equal(t, "VR Bay", seat.Name)

	require.Len(t, lounge.Rules, 3)
	assert.Equal(t, 60, lounge.Rules[0].DurationMinutes)
	assert.Equal(t, models.RuleKindRegular, lounge.Rules[0].Kind)
	assert.Equal(t, models.RuleKindHappyHour, lounge.Rules[1].Kind)
	assert.True(t, lounge.Rules[2].Price.Equal(decimal.RequireFromString("249.50")))

	require.Len(t, lounge.HappyHours, 1)
	assert.True(t, lounge.HappyHours[0].Enabled)
}

func TestParseLounge_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown category in pricing": `
categories: [{ name: PC, seat_count: 1 }]
pricing: [{ category: PS5, duration: 1 hour, price: 100 }]`,
		"too many persons": `
categories: [{ name: PC, seat_count: 1 }]
pricing: [{ category: PC, duration: 1 hour, persons: 2, price: 100 }]`,
		"bad duration": `
categories: [{ name: PC, seat_count: 1 }]
pricing: [{ category: PC, duration: forever, price: 100 }]`,
		"empty window": `
categories: [{ name: PC, seat_count: 1 }]
happy_hours: [{ category: PC, start: "10:00", end: "10:00" }]`,
		"no seats": `
categories: [{ name: PC }]`,
		"duplicate seat": `
categories: [{ name: VR, seats: [{ number: 1, name: A }, { number: 1, name: B }] }]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLounge([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidLounge)
		})
	}
}

func TestLoadLounge_ShippedLayout(t *testing.T) {
	path := filepath.Join("..", "..", "config", "lounge.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("layout file not present")
	}
	lounge, err := LoadLounge(path)
	require.NoError(t, err)
	assert.NotEmpty(t, lounge.Settings.Categories)
	assert.NotEmpty(t, lounge.Rules)
}
