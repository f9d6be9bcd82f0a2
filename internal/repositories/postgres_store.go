package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore runs every transaction in a database/sql transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx implements Store. The transaction is rolled back when fn fails or panics.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrDatabaseError, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&pgTx{ex: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return mapPQError(err, "commit transaction")
	}
	return nil
}

type pgTx struct{ ex SQLExecutor }

func (t *pgTx) Bookings() BookingRepository         { return &pgBookingRepository{ex: t.ex} }
func (t *pgTx) History() BookingHistoryRepository   { return &pgHistoryRepository{ex: t.ex} }
func (t *pgTx) Groups() SessionGroupRepository      { return &pgGroupRepository{ex: t.ex} }
func (t *pgTx) Food() FoodRepository                { return &pgFoodRepository{ex: t.ex} }
func (t *pgTx) Pricing() PricingRepository          { return &pgPricingRepository{ex: t.ex} }
func (t *pgTx) PaymentLogs() PaymentLogRepository   { return &pgPaymentLogRepository{ex: t.ex} }
func (t *pgTx) ActivityLogs() ActivityLogRepository { return &pgActivityLogRepository{ex: t.ex} }
func (t *pgTx) Settings() SettingsRepository        { return &pgSettingsRepository{ex: t.ex} }
func (t *pgTx) Users() UserRepository               { return &pgUserRepository{ex: t.ex} }

func jsonValue(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding json column: %v", ErrDatabaseError, err)
	}
	return b, nil
}

func jsonScan(raw []byte, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: decoding json column: %v", ErrDatabaseError, err)
	}
	return nil
}
