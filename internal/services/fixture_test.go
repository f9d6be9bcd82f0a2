package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/notify"
	"gaming_lounge_backend/internal/repositories"
)

// 2024-05-01 is a Wednesday; the PS5 happy hour runs 14:00-16:00.
var (
	happyHourStart = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	eveningStart   = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	desk           = models.Actor{UserID: "u-desk", Username: "desk", Role: models.RoleStaff}
	admin          = models.Actor{UserID: "u-admin", Username: "owner", Role: models.RoleAdmin}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	ctx       context.Context
	clock     *fakeClock
	store     *repositories.MemoryStore
	sent      *notify.Recorder
	rt        Runtime
	pricing   PricingResolver
	inventory InventoryLedger
	bookings  BookingService
	groups    GroupCoordinator
	settings  SettingsService
	reports   ReportService
	auth      AuthService
}

func testLounge() models.LoungeSettings {
	return models.LoungeSettings{
		Location: time.UTC,
		Categories: []models.DeviceCategory{
			{Name: "PS5", MaxPersons: 4, Seats: []models.Seat{{Number: 1, Name: "PS5-1"}, {Number: 2, Name: "PS5-2"}, {Number: 3, Name: "PS5-3"}}},
			{Name: "PC", MaxPersons: 1, Seats: []models.Seat{{Number: 1, Name: "PC-1"}, {Number: 2, Name: "PC-2"}}},
		},
	}
}

func rule(kind models.RuleKind, category string, minutes, persons int, price int64) models.PricingRule {
	return models.PricingRule{
		ID:              uuid.NewString(),
		Kind:            kind,
		Category:        category,
		DurationMinutes: minutes,
		PersonCount:     persons,
		Price:           decimal.NewFromInt(price),
	}
}

func newFixture(t *testing.T, tweak ...func(*models.LoungeSettings)) *fixture {
	t.Helper()
	lounge := testLounge()
	for _, fn := range tweak {
		fn(&lounge)
	}

	f := &fixture{
		ctx:   context.Background(),
		clock: &fakeClock{t: eveningStart},
		store: repositories.NewMemoryStore(),
		sent:  &notify.Recorder{},
	}
	f.rt = Runtime{
		Store:    f.store,
		Locker:   locks.NewLocalLocker(),
		Notifier: f.sent,
		Audit:    notify.NewStoreAuditSink(f.store, f.clock.Now),
		Settings: lounge,
		Now:      f.clock.Now,
	}
	f.pricing = NewPricingResolver(f.rt)
	f.inventory = NewInventoryLedger(f.rt)
	f.bookings = NewBookingService(f.rt, f.pricing, f.inventory, nil)
	f.groups = NewGroupCoordinator(f.rt, f.bookings)
	f.settings = NewSettingsService(f.rt)
	f.reports = NewReportService(f.rt, f.inventory)
	f.auth = NewAuthService(f.rt)

	require.NoError(t, f.pricing.Seed(f.ctx, []models.PricingRule{
		rule(models.RuleKindRegular, "PS5", 30, 1, 120),
		rule(models.RuleKindRegular, "PS5", 60, 1, 200),
		rule(models.RuleKindRegular, "PS5", 60, 2, 300),
		rule(models.RuleKindHappyHour, "PS5", 60, 1, 150),
		rule(models.RuleKindRegular, "PC", 60, 1, 100),
	}, []models.HappyHourConfig{
		{ID: uuid.NewString(), Category: "PS5", StartTime: "14:00", EndTime: "16:00", Enabled: true},
	}))
	return f
}

func (f *fixture) start(t *testing.T, seat int, duration string) *models.BookingSession {
	t.Helper()
	b, err := f.bookings.Start(f.ctx, desk, StartRequest{
		Category:     "PS5",
		SeatNumber:   seat,
		CustomerName: "Asha",
		Duration:     duration,
	})
	require.NoError(t, err)
	return b
}

// stockedItem creates a trackable item with one batch per (qty, cost) pair,
// purchased a day apart, oldest first.
func (f *fixture) stockedItem(t *testing.T, name string, minStock int, batches ...[2]int64) *models.FoodItem {
	t.Helper()
	item, err := f.inventory.CreateFoodItem(f.ctx, desk, CreateFoodItemRequest{
		Name:          name,
		Price:         decimal.NewFromInt(50),
		MinStockLevel: minStock,
	})
	require.NoError(t, err)
	for i, b := range batches {
		bought := eveningStart.AddDate(0, 0, -10+i)
		_, err := f.inventory.AddBatch(f.ctx, desk, item.ID, AddBatchRequest{
			Quantity:     int(b[0]),
			CostPrice:    decimal.NewFromInt(b[1]),
			PurchaseDate: &bought,
		})
		require.NoError(t, err)
	}
	return item
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !got.Equal(dec(want)) {
		require.Failf(t, "amount mismatch", "want %s, got %s %v", want, got.String(), msgAndArgs)
	}
}
