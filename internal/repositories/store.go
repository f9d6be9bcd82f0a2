package repositories

import (
	"context"
	"time"

	"gaming_lounge_backend/internal/models"
)

// Store is the transactional record store the engine runs against.
// Everything fn does through tx commits together, or nothing does.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx hands out repositories bound to one transaction.
type Tx interface {
	Bookings() BookingRepository
	History() BookingHistoryRepository
	Groups() SessionGroupRepository
	Food() FoodRepository
	Pricing() PricingRepository
	PaymentLogs() PaymentLogRepository
	ActivityLogs() ActivityLogRepository
	Settings() SettingsRepository
	Users() UserRepository
}

// BookingRepository stores live sessions. Update is optimistic: the stored
// version must equal b.Version, which is then incremented.
type BookingRepository interface {
	Create(ctx context.Context, b *models.BookingSession) error
	GetByID(ctx context.Context, id string) (*models.BookingSession, error)
	GetByCode(ctx context.Context, code string) (*models.BookingSession, error)
	FindLiveBySeat(ctx context.Context, category string, seatNumber int) (*models.BookingSession, error)
	List(ctx context.Context, filters models.BookingFilters) ([]models.BookingSession, int, error)
	ListLive(ctx context.Context) ([]models.BookingSession, error)
	Update(ctx context.Context, b *models.BookingSession) error
	Delete(ctx context.Context, id string) error
}

// BookingHistoryRepository is append-only apart from retention purges.
type BookingHistoryRepository interface {
	Insert(ctx context.Context, h *models.BookingHistory) error
	GetByID(ctx context.Context, id string) (*models.BookingHistory, error)
	List(ctx context.Context, filters models.BookingFilters) ([]models.BookingHistory, int, error)
	ListArchivedBetween(ctx context.Context, from, to time.Time) ([]models.BookingHistory, error)
	DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionGroupRepository interface {
	Create(ctx context.Context, g *models.SessionGroup) error
	GetByID(ctx context.Context, id string) (*models.SessionGroup, error)
	Update(ctx context.Context, g *models.SessionGroup) error
}

// FoodRepository owns food items and their stock batches.
// ListBatches returns batches oldest first (purchase date, then insertion order).
type FoodRepository interface {
	CreateItem(ctx context.Context, item *models.FoodItem) error
	GetItem(ctx context.Context, id string) (*models.FoodItem, error)
	ListItems(ctx context.Context) ([]models.FoodItem, error)
	UpdateItem(ctx context.Context, item *models.FoodItem) error
	CreateBatch(ctx context.Context, batch *models.StockBatch) error
	ListBatches(ctx context.Context, foodItemID string) ([]models.StockBatch, error)
	UpdateBatchQuantity(ctx context.Context, batchID string, quantity int) error
}

// PricingRepository holds both pricing tables and the happy-hour windows.
// An empty category means all categories.
type PricingRepository interface {
	ListRules(ctx context.Context, category string, kind models.RuleKind) ([]models.PricingRule, error)
	UpsertRule(ctx context.Context, rule *models.PricingRule) error
	DeleteRule(ctx context.Context, id string) error
	ListHappyHours(ctx context.Context, category string) ([]models.HappyHourConfig, error)
	UpsertHappyHour(ctx context.Context, cfg *models.HappyHourConfig) error
}

type PaymentLogRepository interface {
	Create(ctx context.Context, p *models.PaymentLog) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.PaymentLog, error)
}

type ActivityLogRepository interface {
	Create(ctx context.Context, l *models.ActivityLog) error
	List(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

// SettingsRepository returns a zero-valued "global" row when none is stored yet.
type SettingsRepository interface {
	GetAdmin(ctx context.Context) (*models.AdminSettings, error)
	SaveAdmin(ctx context.Context, s *models.AdminSettings) error
}

// UserRepository stores staff accounts. Usernames are unique.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	CountAdmins(ctx context.Context) (int, error)
}
