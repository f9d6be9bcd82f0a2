package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gaming_lounge_backend/internal/models"
)

// pgHistoryRepository stores the frozen booking as a JSONB snapshot next to
// the few columns history is filtered on.
type pgHistoryRepository struct {
	ex SQLExecutor
}

const selectHistoryFields = `id, booking_id, snapshot, archived_at`

func scanHistoryRow(row scanner, withCount bool) (*models.BookingHistory, int, error) {
	var h models.BookingHistory
	var snapshot []byte
	var totalCount int
	dest := []interface{}{&h.ID, &h.BookingID, &snapshot, &h.ArchivedAt}
	if withCount {
		dest = append(dest, &totalCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, mapPQError(err, "scanning booking history")
	}
	if err := jsonScan(snapshot, &h.Booking); err != nil {
		return nil, 0, err
	}
	return &h, totalCount, nil
}

func (r *pgHistoryRepository) Insert(ctx context.Context, h *models.BookingHistory) error {
	snapshot, err := jsonValue(h.Booking)
	if err != nil {
		return err
	}
	query := `INSERT INTO booking_history
	            (id, booking_id, booking_code, group_id, category, seat_number, status, start_time, snapshot, archived_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.ex.ExecContext(ctx, query,
		h.ID, h.BookingID, h.Booking.BookingCode, h.Booking.GroupID, h.Booking.Category,
		h.Booking.SeatNumber, h.Booking.Status, h.Booking.StartTime, snapshot, h.ArchivedAt,
	)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("archiving booking %s", h.BookingID))
	}
	return nil
}

func (r *pgHistoryRepository) GetByID(ctx context.Context, id string) (*models.BookingHistory, error) {
	h, _, err := scanHistoryRow(r.ex.QueryRowContext(ctx,
		"SELECT "+selectHistoryFields+" FROM booking_history WHERE id = $1", id), false)
	return h, err
}

func (r *pgHistoryRepository) collect(ctx context.Context, query string, withCount bool, args ...interface{}) ([]models.BookingHistory, int, error) {
	rows, err := r.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapPQError(err, "listing booking history")
	}
	defer rows.Close()

	records := []models.BookingHistory{}
	totalCount := 0
	for rows.Next() {
		h, count, err := scanHistoryRow(rows, withCount)
		if err != nil {
			return nil, 0, err
		}
		totalCount = count
		records = append(records, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapPQError(err, "iterating booking history")
	}
	return records, totalCount, nil
}

func (r *pgHistoryRepository) List(ctx context.Context, f models.BookingFilters) ([]models.BookingHistory, int, error) {
	where, args := bookingConditions(f, "start_time")

	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + selectHistoryFields + ", COUNT(*) OVER() AS total_count FROM booking_history")
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(" ORDER BY archived_at DESC, id")
	queryBuilder.WriteString(limitOffset(f.Page, f.PageSize))

	return r.collect(ctx, queryBuilder.String(), true, args...)
}

func (r *pgHistoryRepository) ListArchivedBetween(ctx context.Context, from, to time.Time) ([]models.BookingHistory, error) {
	records, _, err := r.collect(ctx, "SELECT "+selectHistoryFields+
		" FROM booking_history WHERE archived_at >= $1 AND archived_at < $2 ORDER BY archived_at DESC, id", false, from, to)
	return records, err
}

func (r *pgHistoryRepository) DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.ex.ExecContext(ctx, "DELETE FROM booking_history WHERE archived_at < $1", cutoff)
	if err != nil {
		return 0, mapPQError(err, "purging booking history")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected on booking_history: %v", ErrDatabaseError, err)
	}
	return n, nil
}
