package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gaming_lounge_backend/internal/models"
)

// MemoryStore is an in-process Store. Transactions run one at a time against
// a private copy of the data that replaces the committed copy only when fn
// returns nil.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	bookings     map[string]models.BookingSession
	history      map[string]models.BookingHistory
	groups       map[string]models.SessionGroup
	foodItems    map[string]models.FoodItem
	batches      map[string]models.StockBatch
	batchSeq     int64
	rules        map[string]models.PricingRule
	happyHours   map[string]models.HappyHourConfig
	paymentLogs  []models.PaymentLog
	activityLogs []models.ActivityLog
	admin        *models.AdminSettings
	users        map[string]models.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		bookings:   map[string]models.BookingSession{},
		history:    map[string]models.BookingHistory{},
		groups:     map[string]models.SessionGroup{},
		foodItems:  map[string]models.FoodItem{},
		batches:    map[string]models.StockBatch{},
		rules:      map[string]models.PricingRule{},
		happyHours: map[string]models.HappyHourConfig{},
		users:      map[string]models.User{},
	}}
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		bookings:     make(map[string]models.BookingSession, len(d.bookings)),
		history:      make(map[string]models.BookingHistory, len(d.history)),
		groups:       make(map[string]models.SessionGroup, len(d.groups)),
		foodItems:    make(map[string]models.FoodItem, len(d.foodItems)),
		batches:      make(map[string]models.StockBatch, len(d.batches)),
		batchSeq:     d.batchSeq,
		rules:        make(map[string]models.PricingRule, len(d.rules)),
		happyHours:   make(map[string]models.HappyHourConfig, len(d.happyHours)),
		paymentLogs:  append([]models.PaymentLog(nil), d.paymentLogs...),
		activityLogs: append([]models.ActivityLog(nil), d.activityLogs...),
		users:        make(map[string]models.User, len(d.users)),
	}
	for k, v := range d.bookings {
		c.bookings[k] = v.Clone()
	}
	// history records are immutable, sharing them is safe
	for k, v := range d.history {
		c.history[k] = v
	}
	for k, v := range d.groups {
		c.groups[k] = v.Clone()
	}
	for k, v := range d.foodItems {
		c.foodItems[k] = v
	}
	for k, v := range d.batches {
		c.batches[k] = v
	}
	for k, v := range d.rules {
		c.rules[k] = v
	}
	for k, v := range d.happyHours {
		c.happyHours[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	if d.admin != nil {
		a := *d.admin
		c.admin = &a
	}
	return c
}

// WithTx implements Store.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memoryTx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type memoryTx struct{ d *memoryData }

func (t *memoryTx) Bookings() BookingRepository         { return memBookings{t.d} }
func (t *memoryTx) History() BookingHistoryRepository   { return memHistory{t.d} }
func (t *memoryTx) Groups() SessionGroupRepository      { return memGroups{t.d} }
func (t *memoryTx) Food() FoodRepository                { return memFood{t.d} }
func (t *memoryTx) Pricing() PricingRepository          { return memPricing{t.d} }
func (t *memoryTx) PaymentLogs() PaymentLogRepository   { return memPayments{t.d} }
func (t *memoryTx) ActivityLogs() ActivityLogRepository { return memActivity{t.d} }
func (t *memoryTx) Settings() SettingsRepository        { return memSettings{t.d} }
func (t *memoryTx) Users() UserRepository               { return memUsers{t.d} }

func paginate(total, page, pageSize int) (int, int) {
	if pageSize <= 0 {
		return 0, total
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

func matchesFilters(b *models.BookingSession, f models.BookingFilters) bool {
	if f.Category != nil && b.Category != *f.Category {
		return false
	}
	if f.Status != nil && *f.Status != "" && string(b.Status) != *f.Status {
		return false
	}
	if f.GroupID != nil && (b.GroupID == nil || *b.GroupID != *f.GroupID) {
		return false
	}
	if f.DateFrom != nil && b.StartTime.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && b.StartTime.After(*f.DateTo) {
		return false
	}
	return true
}

// --- bookings ---

type memBookings struct{ d *memoryData }

func (r memBookings) Create(_ context.Context, b *models.BookingSession) error {
	if _, exists := r.d.bookings[b.ID]; exists {
		return fmt.Errorf("%w: booking %s", ErrDuplicateKey, b.ID)
	}
	for _, other := range r.d.bookings {
		if other.BookingCode == b.BookingCode {
			return fmt.Errorf("%w: booking code %s", ErrDuplicateKey, b.BookingCode)
		}
		if !other.Status.IsTerminal() && other.Category == b.Category && other.SeatNumber == b.SeatNumber {
			return fmt.Errorf("%w: seat %s already occupied", ErrDuplicateKey, b.SeatKey())
		}
	}
	b.Version = 1
	r.d.bookings[b.ID] = b.Clone()
	return nil
}

func (r memBookings) GetByID(_ context.Context, id string) (*models.BookingSession, error) {
	b, ok := r.d.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := b.Clone()
	return &c, nil
}

func (r memBookings) GetByCode(_ context.Context, code string) (*models.BookingSession, error) {
	for _, b := range r.d.bookings {
		if b.BookingCode == code {
			c := b.Clone()
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r memBookings) FindLiveBySeat(_ context.Context, category string, seatNumber int) (*models.BookingSession, error) {
	for _, b := range r.d.bookings {
		if b.Category == category && b.SeatNumber == seatNumber && !b.Status.IsTerminal() {
			c := b.Clone()
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r memBookings) List(_ context.Context, f models.BookingFilters) ([]models.BookingSession, int, error) {
	out := []models.BookingSession{}
	for _, b := range r.d.bookings {
		if matchesFilters(&b, f) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	start, end := paginate(len(out), f.Page, f.PageSize)
	return out[start:end], len(out), nil
}

func (r memBookings) ListLive(_ context.Context) ([]models.BookingSession, error) {
	out := []models.BookingSession{}
	for _, b := range r.d.bookings {
		if !b.Status.IsTerminal() {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r memBookings) Update(_ context.Context, b *models.BookingSession) error {
	cur, ok := r.d.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != b.Version {
		return fmt.Errorf("%w: booking %s at version %d, update carries %d", ErrPersistenceConflict, b.ID, cur.Version, b.Version)
	}
	b.Version++
	r.d.bookings[b.ID] = b.Clone()
	return nil
}

func (r memBookings) Delete(_ context.Context, id string) error {
	if _, ok := r.d.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.d.bookings, id)
	return nil
}

// --- history ---

type memHistory struct{ d *memoryData }

func (r memHistory) Insert(_ context.Context, h *models.BookingHistory) error {
	if _, exists := r.d.history[h.ID]; exists {
		return fmt.Errorf("%w: history %s", ErrDuplicateKey, h.ID)
	}
	r.d.history[h.ID] = models.NewBookingHistory(h.ID, h.Booking, h.ArchivedAt)
	return nil
}

func (r memHistory) GetByID(_ context.Context, id string) (*models.BookingHistory, error) {
	h, ok := r.d.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := models.NewBookingHistory(h.ID, h.Booking, h.ArchivedAt)
	return &c, nil
}

func (r memHistory) sorted() []models.BookingHistory {
	out := make([]models.BookingHistory, 0, len(r.d.history))
	for _, h := range r.d.history {
		out = append(out, models.NewBookingHistory(h.ID, h.Booking, h.ArchivedAt))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArchivedAt.Equal(out[j].ArchivedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ArchivedAt.After(out[j].ArchivedAt)
	})
	return out
}

func (r memHistory) List(_ context.Context, f models.BookingFilters) ([]models.BookingHistory, int, error) {
	out := []models.BookingHistory{}
	for _, h := range r.sorted() {
		if matchesFilters(&h.Booking, f) {
			out = append(out, h)
		}
	}
	start, end := paginate(len(out), f.Page, f.PageSize)
	return out[start:end], len(out), nil
}

func (r memHistory) ListArchivedBetween(_ context.Context, from, to time.Time) ([]models.BookingHistory, error) {
	out := []models.BookingHistory{}
	for _, h := range r.sorted() {
		if !h.ArchivedAt.Before(from) && h.ArchivedAt.Before(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r memHistory) DeleteArchivedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, h := range r.d.history {
		if h.ArchivedAt.Before(cutoff) {
			delete(r.d.history, id)
			n++
		}
	}
	return n, nil
}

// --- groups ---

type memGroups struct{ d *memoryData }

func (r memGroups) Create(_ context.Context, g *models.SessionGroup) error {
	for _, other := range r.d.groups {
		if other.ID == g.ID || other.GroupCode == g.GroupCode {
			return fmt.Errorf("%w: group %s", ErrDuplicateKey, g.GroupCode)
		}
	}
	g.Version = 1
	r.d.groups[g.ID] = g.Clone()
	return nil
}

func (r memGroups) GetByID(_ context.Context, id string) (*models.SessionGroup, error) {
	g, ok := r.d.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := g.Clone()
	return &c, nil
}

func (r memGroups) Update(_ context.Context, g *models.SessionGroup) error {
	cur, ok := r.d.groups[g.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != g.Version {
		return fmt.Errorf("%w: group %s", ErrPersistenceConflict, g.ID)
	}
	g.Version++
	r.d.groups[g.ID] = g.Clone()
	return nil
}

// --- food ---

type memFood struct{ d *memoryData }

func (r memFood) CreateItem(_ context.Context, item *models.FoodItem) error {
	if _, exists := r.d.foodItems[item.ID]; exists {
		return fmt.Errorf("%w: food item %s", ErrDuplicateKey, item.ID)
	}
	item.Version = 1
	r.d.foodItems[item.ID] = *item
	return nil
}

func (r memFood) GetItem(_ context.Context, id string) (*models.FoodItem, error) {
	item, ok := r.d.foodItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r memFood) ListItems(_ context.Context) ([]models.FoodItem, error) {
	out := make([]models.FoodItem, 0, len(r.d.foodItems))
	for _, item := range r.d.foodItems {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memFood) UpdateItem(_ context.Context, item *models.FoodItem) error {
	cur, ok := r.d.foodItems[item.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != item.Version {
		return fmt.Errorf("%w: food item %s", ErrPersistenceConflict, item.ID)
	}
	item.Version++
	r.d.foodItems[item.ID] = *item
	return nil
}

func (r memFood) CreateBatch(_ context.Context, batch *models.StockBatch) error {
	if _, ok := r.d.foodItems[batch.FoodItemID]; !ok {
		return fmt.Errorf("%w: food item %s for batch", ErrNotFound, batch.FoodItemID)
	}
	if _, exists := r.d.batches[batch.ID]; exists {
		return fmt.Errorf("%w: batch %s", ErrDuplicateKey, batch.ID)
	}
	r.d.batchSeq++
	batch.Seq = r.d.batchSeq
	r.d.batches[batch.ID] = *batch
	return nil
}

func (r memFood) ListBatches(_ context.Context, foodItemID string) ([]models.StockBatch, error) {
	out := []models.StockBatch{}
	for _, b := range r.d.batches {
		if b.FoodItemID == foodItemID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].PurchaseDate.Before(out[j].PurchaseDate)
	})
	return out, nil
}

func (r memFood) UpdateBatchQuantity(_ context.Context, batchID string, quantity int) error {
	b, ok := r.d.batches[batchID]
	if !ok {
		return ErrNotFound
	}
	if quantity < 0 {
		return fmt.Errorf("%w: negative quantity for batch %s", ErrDatabaseError, batchID)
	}
	b.Quantity = quantity
	r.d.batches[batchID] = b
	return nil
}

// --- pricing ---

type memPricing struct{ d *memoryData }

func (r memPricing) ListRules(_ context.Context, category string, kind models.RuleKind) ([]models.PricingRule, error) {
	out := []models.PricingRule{}
	for _, rule := range r.d.rules {
		if (category == "" || rule.Category == category) && (kind == "" || rule.Kind == kind) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.DurationMinutes != b.DurationMinutes {
			return a.DurationMinutes < b.DurationMinutes
		}
		return a.PersonCount < b.PersonCount
	})
	return out, nil
}

func (r memPricing) UpsertRule(_ context.Context, rule *models.PricingRule) error {
	for id, existing := range r.d.rules {
		if existing.Kind == rule.Kind && existing.Category == rule.Category &&
			existing.DurationMinutes == rule.DurationMinutes && existing.PersonCount == rule.PersonCount {
			rule.ID = id
		}
	}
	r.d.rules[rule.ID] = *rule
	return nil
}

func (r memPricing) DeleteRule(_ context.Context, id string) error {
	if _, ok := r.d.rules[id]; !ok {
		return ErrNotFound
	}
	delete(r.d.rules, id)
	return nil
}

func (r memPricing) ListHappyHours(_ context.Context, category string) ([]models.HappyHourConfig, error) {
	out := []models.HappyHourConfig{}
	for _, h := range r.d.happyHours {
		if category == "" || h.Category == category {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r memPricing) UpsertHappyHour(_ context.Context, cfg *models.HappyHourConfig) error {
	for id, existing := range r.d.happyHours {
		if existing.Category == cfg.Category && existing.StartTime == cfg.StartTime {
			cfg.ID = id
		}
	}
	r.d.happyHours[cfg.ID] = *cfg
	return nil
}

// --- logs & settings ---

type memPayments struct{ d *memoryData }

func (r memPayments) Create(_ context.Context, p *models.PaymentLog) error {
	r.d.paymentLogs = append(r.d.paymentLogs, *p)
	return nil
}

func (r memPayments) ListByBooking(_ context.Context, bookingID string) ([]models.PaymentLog, error) {
	out := []models.PaymentLog{}
	for _, p := range r.d.paymentLogs {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memActivity struct{ d *memoryData }

func (r memActivity) Create(_ context.Context, l *models.ActivityLog) error {
	r.d.activityLogs = append(r.d.activityLogs, *l)
	return nil
}

func (r memActivity) List(_ context.Context, limit int) ([]models.ActivityLog, error) {
	out := []models.ActivityLog{}
	for i := len(r.d.activityLogs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.d.activityLogs[i])
	}
	return out, nil
}

type memSettings struct{ d *memoryData }

func (r memSettings) GetAdmin(_ context.Context) (*models.AdminSettings, error) {
	if r.d.admin == nil {
		return &models.AdminSettings{ID: models.AdminSettingsID}, nil
	}
	a := *r.d.admin
	return &a, nil
}

func (r memSettings) SaveAdmin(_ context.Context, s *models.AdminSettings) error {
	a := *s
	a.ID = models.AdminSettingsID
	r.d.admin = &a
	return nil
}

// --- users ---

type memUsers struct{ d *memoryData }

func (r memUsers) Create(_ context.Context, u *models.User) error {
	for _, other := range r.d.users {
		if other.ID == u.ID || strings.EqualFold(other.Username, u.Username) {
			return fmt.Errorf("%w: user %s", ErrDuplicateKey, u.Username)
		}
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.d.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) List(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	if _, ok := r.d.users[u.ID]; !ok {
		return ErrNotFound
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r memUsers) CountAdmins(_ context.Context) (int, error) {
	n := 0
	for _, u := range r.d.users {
		if u.Role == models.RoleAdmin && u.IsActive {
			n++
		}
	}
	return n, nil
}
