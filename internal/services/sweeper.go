package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

// ErrQuoteNotCached is returned by a QuoteCache miss.
var ErrQuoteNotCached = errors.New("no cached live quote")

// LiveQuote is the running price of an open-ended session as of ComputedAt.
type LiveQuote struct {
	BookingID      string            `json:"booking_id"`
	BookingCode    string            `json:"booking_code"`
	SeatName       string            `json:"seat_name"`
	ElapsedMinutes int               `json:"elapsed_minutes"`
	Quote          models.PriceQuote `json:"quote"`
	FoodTotal      decimal.Decimal   `json:"food_total"`
	AmountDue      decimal.Decimal   `json:"amount_due"`
	ComputedAt     time.Time         `json:"computed_at"`
}

// QuoteCache keeps the latest LiveQuote per booking.
type QuoteCache interface {
	Set(ctx context.Context, q LiveQuote, ttl time.Duration) error
	Get(ctx context.Context, bookingID string) (*LiveQuote, error)
}

type cachedQuote struct {
	quote   LiveQuote
	expires time.Time
}

// MemoryQuoteCache is a process-local QuoteCache.
type MemoryQuoteCache struct {
	mu      sync.RWMutex
	entries map[string]cachedQuote
	now     func() time.Time
}

func NewMemoryQuoteCache() *MemoryQuoteCache {
	return &MemoryQuoteCache{entries: make(map[string]cachedQuote), now: time.Now}
}

func (c *MemoryQuoteCache) Set(_ context.Context, q LiveQuote, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[q.BookingID] = cachedQuote{quote: q, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryQuoteCache) Get(_ context.Context, bookingID string) (*LiveQuote, error) {
	c.mu.RLock()
	e, ok := c.entries[bookingID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, ErrQuoteNotCached
	}
	q := e.quote
	return &q, nil
}

// RedisQuoteCache stores quotes as JSON strings with an expiry.
type RedisQuoteCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisQuoteCache(rdb *redis.Client, prefix string) *RedisQuoteCache {
	if prefix == "" {
		prefix = "lounge:quote:"
	}
	return &RedisQuoteCache{rdb: rdb, prefix: prefix}
}

func (c *RedisQuoteCache) Set(ctx context.Context, q LiveQuote, ttl time.Duration) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode live quote: %w", err)
	}
	return c.rdb.Set(ctx, c.prefix+q.BookingID, data, ttl).Err()
}

func (c *RedisQuoteCache) Get(ctx context.Context, bookingID string) (*LiveQuote, error) {
	data, err := c.rdb.Get(ctx, c.prefix+bookingID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQuoteNotCached
	}
	if err != nil {
		return nil, err
	}
	var q LiveQuote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode live quote: %w", err)
	}
	return &q, nil
}

// LiveBillingSweeper periodically prices running open-ended sessions into a
// QuoteCache and announces fixed slots whose time ran out. It never writes
// session state.
type LiveBillingSweeper struct {
	rt       Runtime
	pricing  PricingResolver
	cache    QuoteCache
	interval time.Duration

	mu      sync.Mutex
	timesUp map[string]time.Time // booking id -> end time already announced
}

func NewLiveBillingSweeper(rt Runtime, pricing PricingResolver, cache QuoteCache, interval time.Duration) *LiveBillingSweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if cache == nil {
		cache = NewMemoryQuoteCache()
	}
	return &LiveBillingSweeper{
		rt:       rt.withDefaults(),
		pricing:  pricing,
		cache:    cache,
		interval: interval,
		timesUp:  make(map[string]time.Time),
	}
}

// Cache exposes the cache the sweeper fills.
func (s *LiveBillingSweeper) Cache() QuoteCache { return s.cache }

// Run sweeps every interval until ctx is cancelled.
func (s *LiveBillingSweeper) Run(ctx context.Context) {
	utils.LogInfo("Live billing sweeper started", map[string]interface{}{"interval": s.interval.String()})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			utils.LogError(err, "Live billing sweep failed", nil)
		}
		select {
		case <-ctx.Done():
			utils.LogInfo("Live billing sweeper stopped", nil)
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single pass and returns how many quotes were cached.
func (s *LiveBillingSweeper) SweepOnce(ctx context.Context) (int, error) {
	var live []models.BookingSession
	err := s.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		live, err = tx.Bookings().ListLive(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	now := s.rt.now()
	ttl := 2 * s.interval
	cached := 0
	seen := make(map[string]struct{}, len(live))
	for i := range live {
		b := &live[i]
		seen[b.ID] = struct{}{}

		if !b.OpenEnded() {
			if b.Status == models.BookingStatusActive && b.EndTime != nil && !now.Before(*b.EndTime) {
				s.announceTimeUp(ctx, b)
			}
			continue
		}

		req := openEndedQuote(b, now)
		q, err := s.pricing.Quote(ctx, req)
		if err != nil {
			utils.LogWarn(err, "Could not price live session", map[string]interface{}{"booking_id": b.ID})
			continue
		}
		lq := LiveQuote{
			BookingID:      b.ID,
			BookingCode:    b.BookingCode,
			SeatName:       b.SeatName,
			ElapsedMinutes: req.ElapsedMinutes,
			Quote:          *q,
			FoodTotal:      b.FoodTotal(),
			AmountDue:      q.FinalPrice.Add(b.FoodTotal()),
			ComputedAt:     now,
		}
		if err := s.cache.Set(ctx, lq, ttl); err != nil {
			utils.LogWarn(err, "Could not cache live quote", map[string]interface{}{"booking_id": b.ID})
			continue
		}
		cached++
	}

	s.mu.Lock()
	for id := range s.timesUp {
		if _, ok := seen[id]; !ok {
			delete(s.timesUp, id)
		}
	}
	s.mu.Unlock()

	utils.LogDebug("Live billing sweep done", map[string]interface{}{"live": len(live), "cached": cached})
	return cached, nil
}

func (s *LiveBillingSweeper) announceTimeUp(ctx context.Context, b *models.BookingSession) {
	s.mu.Lock()
	announced, ok := s.timesUp[b.ID]
	done := ok && announced.Equal(*b.EndTime)
	s.timesUp[b.ID] = *b.EndTime
	s.mu.Unlock()
	if done {
		return
	}
	s.rt.notify(ctx, models.NotificationBookingTimeUp, "Time is up",
		fmt.Sprintf("%s on %s has used the booked time", b.CustomerName, b.SeatName), "booking", b.ID, bookingData(b))
}
