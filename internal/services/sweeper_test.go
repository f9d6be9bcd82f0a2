package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/models"
)

func TestSweepOnce_CachesOpenEndedQuotes(t *testing.T) {
	f := newFixture(t)
	cache := NewMemoryQuoteCache()
	cache.now = f.clock.Now
	sweeper := NewLiveBillingSweeper(f.rt, f.pricing, cache, time.Minute)

	hourly, err := f.bookings.Start(f.ctx, desk, StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "Asha"})
	require.NoError(t, err)
	fixed := f.start(t, 2, "1 hour")

	f.clock.Advance(30 * time.Minute)
	n, err := sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q, err := cache.Get(f.ctx, hourly.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, q.ElapsedMinutes)
	assertMoney(t, "120", q.Quote.FinalPrice)
	assertMoney(t, "120", q.AmountDue)
	assert.Equal(t, f.clock.Now(), q.ComputedAt)

	_, err = cache.Get(f.ctx, fixed.ID)
	assert.ErrorIs(t, err, ErrQuoteNotCached)

	stored, err := f.bookings.Get(f.ctx, hourly.ID)
	require.NoError(t, err)
	assert.Equal(t, hourly.Version, stored.Version, "sweeps never write sessions")

	f.clock.Advance(3 * time.Minute)
	_, err = cache.Get(f.ctx, hourly.ID)
	assert.ErrorIs(t, err, ErrQuoteNotCached, "entries expire after two intervals")
}

func TestSweepOnce_AnnouncesTimeUpOncePerEndTime(t *testing.T) {
	f := newFixture(t)
	sweeper := NewLiveBillingSweeper(f.rt, f.pricing, nil, time.Minute)
	b := f.start(t, 1, "30 mins")

	f.clock.Advance(29 * time.Minute)
	_, err := sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, f.sent.OfType(models.NotificationBookingTimeUp))

	f.clock.Advance(2 * time.Minute)
	for i := 0; i < 3; i++ {
		_, err = sweeper.SweepOnce(f.ctx)
		require.NoError(t, err)
	}
	assert.Len(t, f.sent.OfType(models.NotificationBookingTimeUp), 1)

	_, err = f.bookings.Extend(f.ctx, desk, b.ID, ExtendRequest{Duration: "30 mins"})
	require.NoError(t, err)
	_, err = sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Len(t, f.sent.OfType(models.NotificationBookingTimeUp), 1)

	f.clock.Advance(30 * time.Minute)
	_, err = sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Len(t, f.sent.OfType(models.NotificationBookingTimeUp), 2, "an extended slot is announced again")
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	sweeper := NewLiveBillingSweeper(f.rt, f.pricing, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.NotNil(t, sweeper.Cache())
}

func TestMemoryQuoteCache_ReturnsCopies(t *testing.T) {
	cache := NewMemoryQuoteCache()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, LiveQuote{BookingID: "b1", AmountDue: decimal.NewFromInt(10)}, time.Minute))

	q, err := cache.Get(ctx, "b1")
	require.NoError(t, err)
	q.AmountDue = decimal.NewFromInt(99)

	again, err := cache.Get(ctx, "b1")
	require.NoError(t, err)
	assertMoney(t, "10", again.AmountDue)
}
