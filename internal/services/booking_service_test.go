package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/models"
)

func TestStart_HappyHourPrice(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(happyHourStart)

	b := f.start(t, 1, "1 hour")

	assertMoney(t, "150", b.OriginalPrice)
	assertMoney(t, "150", b.FinalPrice)
	assert.Equal(t, models.RuleKindHappyHour, b.AppliedRuleKind)
	assert.Equal(t, models.BookingStatusActive, b.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, b.PaymentStatus)
	assert.Equal(t, 60, b.DurationMinutes)
	require.NotNil(t, b.EndTime)
	assert.Equal(t, happyHourStart.Add(time.Hour), *b.EndTime)
	assert.True(t, strings.HasPrefix(b.BookingCode, "BK-"))
	assert.Len(t, b.BookingCode, len("BK-")+6)
	assert.Len(t, f.sent.OfType(models.NotificationBookingStarted), 1)
}

func TestStart_RegularPriceOutsideHappyHour(t *testing.T) {
	f := newFixture(t)

	b := f.start(t, 1, "1 hour")

	assertMoney(t, "200", b.FinalPrice)
	assert.Equal(t, models.RuleKindRegular, b.AppliedRuleKind)
}

func TestStart_SeatUnavailable(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, "1 hour")

	_, err := f.bookings.Start(f.ctx, desk, StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "Ravi", Duration: "1 hour"})
	assert.ErrorIs(t, err, ErrSeatUnavailable)

	other := f.start(t, 2, "1 hour")
	assert.Equal(t, "PS5-2", other.SeatName)
}

func TestStart_Rejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  StartRequest
		want error
	}{
		{"unknown seat", StartRequest{Category: "PS5", SeatNumber: 9, CustomerName: "A", Duration: "1 hour"}, ErrUnknownSeat},
		{"unknown category", StartRequest{Category: "Xbox", SeatNumber: 1, CustomerName: "A", Duration: "1 hour"}, ErrUnknownSeat},
		{"missing name", StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: " ", Duration: "1 hour"}, ErrValidation},
		{"too many persons", StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "A", Duration: "1 hour", PersonCount: 5}, ErrValidation},
		{"bad duration", StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "A", Duration: "forever"}, ErrValidation},
		{"hourly with duration", StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "A", BookingType: "hourly", Duration: "1 hour"}, ErrValidation},
		{"no pricing bucket", StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "A", Duration: "3 hours"}, ErrNoPricingRuleFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.Start(f.ctx, desk, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	live, err := f.bookings.ListLive(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, live, "rejected starts must not occupy a seat")
}

func TestPauseResume_KeepsRemainingTime(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")

	f.clock.Advance(20 * time.Minute)
	paused, err := f.bookings.Pause(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaused, paused.Status)
	assert.Equal(t, 40*time.Minute, paused.PausedRemaining())

	f.clock.Advance(10 * time.Minute)
	resumedAt := f.clock.Now()
	resumed, err := f.bookings.Resume(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusActive, resumed.Status)
	require.NotNil(t, resumed.EndTime)
	assert.Equal(t, resumedAt.Add(40*time.Minute), *resumed.EndTime)
	assert.Nil(t, resumed.PausedRemainingSeconds)
	assertMoney(t, "200", resumed.FinalPrice)
}

func TestTransitions_RejectedFromWrongState(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")

	_, err := f.bookings.Resume(f.ctx, desk, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.bookings.Pause(f.ctx, desk, b.ID)
	require.NoError(t, err)
	_, err = f.bookings.Pause(f.ctx, desk, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.bookings.Pause(f.ctx, desk, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestTerminalBookingsAreImmutable(t *testing.T) {
	f := newFixture(t)
	item := f.stockedItem(t, "Cola", 0, [2]int64{10, 20})
	b := f.start(t, 1, "1 hour")

	_, err := f.bookings.Complete(f.ctx, desk, b.ID)
	require.NoError(t, err)
	frozen, err := f.bookings.Get(f.ctx, b.ID)
	require.NoError(t, err)

	attempts := map[string]func() error{
		"pause":    func() error { _, err := f.bookings.Pause(f.ctx, desk, b.ID); return err },
		"resume":   func() error { _, err := f.bookings.Resume(f.ctx, desk, b.ID); return err },
		"extend":   func() error { _, err := f.bookings.Extend(f.ctx, desk, b.ID, ExtendRequest{Duration: "30 mins"}); return err },
		"food":     func() error { _, err := f.bookings.AttachFoodOrder(f.ctx, desk, b.ID, FoodOrderRequest{FoodItemID: item.ID, Quantity: 1}); return err },
		"payment":  func() error { _, err := f.bookings.SettlePayment(f.ctx, desk, b.ID, SettlePaymentRequest{Method: "cash", CashAmount: decimal.NewFromInt(10)}); return err },
		"complete": func() error { _, err := f.bookings.Complete(f.ctx, desk, b.ID); return err },
		"cancel":   func() error { _, err := f.bookings.Cancel(f.ctx, desk, b.ID); return err },
	}
	for name, attempt := range attempts {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, attempt(), ErrInvalidTransition)
		})
	}

	after, err := f.bookings.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, frozen.Version, after.Version)
	assert.Equal(t, models.BookingStatusCompleted, after.Status)

	stock, err := f.inventory.GetFoodItem(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stock.CurrentStock, "rejected food order must not draw stock")
}

func TestSettlePayment_OverpaymentLeavesAmountsUnchanged(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")

	partial, err := f.bookings.SettlePayment(f.ctx, desk, b.ID, SettlePaymentRequest{Method: "cash", CashAmount: decimal.NewFromInt(150)})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, partial.PaymentStatus)

	_, err = f.bookings.SettlePayment(f.ctx, desk, b.ID, SettlePaymentRequest{Method: "upi", UpiAmount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, ErrOverpaymentNotAllowed)

	unchanged, err := f.bookings.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assertMoney(t, "150", unchanged.CashAmount)
	assertMoney(t, "0", unchanged.UpiAmount)
	assert.Equal(t, models.PaymentStatusPartial, unchanged.PaymentStatus)

	paid, err := f.bookings.SettlePayment(f.ctx, desk, b.ID, SettlePaymentRequest{Method: "upi", UpiAmount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, models.PaymentMethodSplit, *paid.PaymentMethod)
	assertMoney(t, "0", paid.Balance())

	logs, err := f.bookings.PaymentLogs(f.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[1].PreviousStatus)
	assert.Equal(t, models.PaymentStatusPartial, *logs[1].PreviousStatus)
}

func TestSettlePayment_Validation(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")

	for name, req := range map[string]SettlePaymentRequest{
		"unknown method": {Method: "card", CashAmount: decimal.NewFromInt(10)},
		"zero amount":    {Method: "cash"},
		"negative":       {Method: "cash", CashAmount: decimal.NewFromInt(-5)},
		"cash with upi":  {Method: "cash", CashAmount: decimal.NewFromInt(5), UpiAmount: decimal.NewFromInt(5)},
	} {
		_, err := f.bookings.SettlePayment(f.ctx, desk, b.ID, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestComplete_RequireFullPaymentPolicy(t *testing.T) {
	f := newFixture(t, func(s *models.LoungeSettings) { s.RequireFullPayment = true })
	b := f.start(t, 1, "1 hour")

	_, err := f.bookings.Complete(f.ctx, desk, b.ID)
	assert.ErrorIs(t, err, ErrUnsettledPaymentBlocksCompletion)
	still, err := f.bookings.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusActive, still.Status)

	_, err = f.bookings.SettlePayment(f.ctx, desk, b.ID, SettlePaymentRequest{Method: "cash", CashAmount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	h, err := f.bookings.Complete(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, h.Booking.PaymentStatus)
}

func TestCancel_IgnoresPaymentPolicy(t *testing.T) {
	f := newFixture(t, func(s *models.LoungeSettings) { s.RequireFullPayment = true })
	b := f.start(t, 1, "1 hour")

	h, err := f.bookings.Cancel(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, h.Booking.Status)
	assert.Len(t, f.sent.OfType(models.NotificationBookingCancelled), 1)
}

func TestComplete_ArchivesSnapshotAndFreesSeat(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")

	f.clock.Advance(time.Hour)
	h, err := f.bookings.Complete(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, h.BookingID)
	assert.Equal(t, models.BookingStatusCompleted, h.Booking.Status)
	require.NotNil(t, h.Booking.EndedAt)
	assert.Equal(t, f.clock.Now(), h.ArchivedAt)

	stored, err := f.bookings.GetHistory(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.Booking.BookingCode, stored.Booking.BookingCode)

	list, total, err := f.bookings.ListHistory(f.ctx, models.BookingFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	next := f.start(t, 1, "1 hour")
	assert.NotEqual(t, b.ID, next.ID)

	_, err = f.bookings.GetHistory(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestHourlySession_BillsActiveTimeOnly(t *testing.T) {
	f := newFixture(t)
	b, err := f.bookings.Start(f.ctx, desk, StartRequest{Category: "PS5", SeatNumber: 1, CustomerName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingTypeHourly, b.BookingType)
	assert.Nil(t, b.EndTime)
	assertMoney(t, "0", b.FinalPrice)

	// smallest regular bucket is 30 mins for 120, so 240 an hour
	f.clock.Advance(45 * time.Minute)
	q, err := f.bookings.LiveQuote(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, q.BilledMinutes)
	assertMoney(t, "180", q.FinalPrice)

	f.clock.Advance(30 * time.Second)
	q, err = f.bookings.LiveQuote(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 46, q.BilledMinutes, "a started minute is billed")

	f.clock.Advance(-30 * time.Second)
	paused, err := f.bookings.Pause(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assertMoney(t, "180", paused.FinalPrice)

	f.clock.Advance(time.Hour)
	_, err = f.bookings.Resume(f.ctx, desk, b.ID)
	require.NoError(t, err)
	f.clock.Advance(15 * time.Minute)

	h, err := f.bookings.Complete(f.ctx, desk, b.ID)
	require.NoError(t, err)
	assertMoney(t, "240", h.Booking.FinalPrice)
	assert.Equal(t, int64(3600), h.Booking.ActiveSeconds)

	q, err = f.bookings.LiveQuote(f.ctx, b.ID)
	require.NoError(t, err)
	assertMoney(t, "240", q.FinalPrice, "terminal sessions quote their frozen price")
}

func TestHourlySession_BonusMinutesAreFree(t *testing.T) {
	f := newFixture(t)
	b, err := f.bookings.Start(f.ctx, desk, StartRequest{
		Category:     "PS5",
		SeatNumber:   1,
		CustomerName: "Asha",
		Adjustments:  []models.PriceAdjustment{{Type: models.AdjustmentBonus, BonusMinutes: 15}},
	})
	require.NoError(t, err)

	f.clock.Advance(45 * time.Minute)
	q, err := f.bookings.LiveQuote(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, q.BilledMinutes)
	assertMoney(t, "120", q.FinalPrice)
}

func TestExtend(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")

	_, err := f.bookings.Extend(f.ctx, desk, b.ID, ExtendRequest{Duration: "90s"})
	assert.ErrorIs(t, err, ErrValidation, "extensions are whole minutes")

	ext, err := f.bookings.Extend(f.ctx, desk, b.ID, ExtendRequest{Duration: "30 mins"})
	require.NoError(t, err)
	assertMoney(t, "320", ext.FinalPrice)
	assert.Equal(t, 90, ext.DurationMinutes)
	assert.Equal(t, eveningStart.Add(90*time.Minute), *ext.EndTime)

	f.clock.Advance(30 * time.Minute)
	_, err = f.bookings.Pause(f.ctx, desk, b.ID)
	require.NoError(t, err)
	ext, err = f.bookings.Extend(f.ctx, desk, b.ID, ExtendRequest{Duration: "30 mins"})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ext.PausedRemaining())

	hourly, err := f.bookings.Start(f.ctx, desk, StartRequest{Category: "PS5", SeatNumber: 2, CustomerName: "Ravi"})
	require.NoError(t, err)
	_, err = f.bookings.Extend(f.ctx, desk, hourly.ID, ExtendRequest{Duration: "30 mins"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAttachFoodOrder_UsesFIFOCost(t *testing.T) {
	f := newFixture(t)
	item := f.stockedItem(t, "Nachos", 0, [2]int64{3, 10}, [2]int64{4, 12})
	b := f.start(t, 1, "1 hour")

	withFood, err := f.bookings.AttachFoodOrder(f.ctx, desk, b.ID, FoodOrderRequest{FoodItemID: item.ID, Quantity: 5})
	require.NoError(t, err)
	require.Len(t, withFood.FoodOrders, 1)
	line := withFood.FoodOrders[0]
	assert.Equal(t, "Nachos", line.Name)
	assertMoney(t, "250", line.Total)
	assertMoney(t, "10.8", line.UnitCost)
	assertMoney(t, "450", withFood.AmountDue())

	_, err = f.bookings.AttachFoodOrder(f.ctx, desk, b.ID, FoodOrderRequest{FoodItemID: item.ID, Quantity: 3})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	again, err := f.bookings.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, again.FoodOrders, 1)
}

func TestStart_ManualOverrideWinsWithWarning(t *testing.T) {
	f := newFixture(t)
	manual := decimal.NewFromInt(99)
	b, err := f.bookings.Start(f.ctx, desk, StartRequest{
		Category:     "PS5",
		SeatNumber:   1,
		CustomerName: "Asha",
		Duration:     "1 hour",
		Adjustments: []models.PriceAdjustment{
			{Type: models.AdjustmentDiscount, DiscountPercent: decimal.NewFromInt(10)},
			{Type: models.AdjustmentManual, ManualPrice: &manual},
		},
	})
	require.NoError(t, err)
	assertMoney(t, "99", b.FinalPrice)
	assertMoney(t, "200", b.OriginalPrice)
	assert.Equal(t, models.QuoteSourceManual, b.Breakdown.Source)
	assert.Len(t, b.Breakdown.Warnings, 1)
}

func TestStart_DiscountAndBonusCombine(t *testing.T) {
	f := newFixture(t)
	b, err := f.bookings.Start(f.ctx, desk, StartRequest{
		Category:     "PS5",
		SeatNumber:   1,
		CustomerName: "Asha",
		Duration:     "1 hour",
		Adjustments: []models.PriceAdjustment{
			{Type: models.AdjustmentDiscount, DiscountPercent: decimal.NewFromInt(10)},
			{Type: models.AdjustmentBonus, BonusMinutes: 30},
		},
	})
	require.NoError(t, err)
	assertMoney(t, "180", b.FinalPrice)
	assert.Equal(t, 90, b.DurationMinutes)
	assert.Equal(t, eveningStart.Add(90*time.Minute), *b.EndTime)
	assert.Equal(t, models.QuoteSourcePromotional, b.Breakdown.Source)
}

func TestGetByCodeAndList(t *testing.T) {
	f := newFixture(t)
	b := f.start(t, 1, "1 hour")
	f.start(t, 2, "30 mins")

	byCode, err := f.bookings.GetByCode(f.ctx, b.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byCode.ID)

	_, err = f.bookings.GetByCode(f.ctx, "BK-NOPE00")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, total, err := f.bookings.List(f.ctx, models.BookingFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	bad := "running"
	_, _, err = f.bookings.List(f.ctx, models.BookingFilters{Status: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}
