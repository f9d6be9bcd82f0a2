package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, models.Notification) error {
	f.calls++
	return errors.New("broker down")
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(rec, 8, time.Second)
	for _, typ := range []models.NotificationType{models.NotificationBookingStarted, models.NotificationBookingPaused} {
		require.NoError(t, d.Notify(context.Background(), models.Notification{Type: typ, EntityID: "b1"}))
	}
	d.Close()

	sent := rec.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, models.NotificationBookingStarted, sent[0].Type)
	assert.Equal(t, models.NotificationBookingPaused, sent[1].Type)
	assert.Len(t, rec.OfType(models.NotificationBookingPaused), 1)
}

func TestDispatcher_SwallowsDeliveryErrors(t *testing.T) {
	f := &failingNotifier{}
	d := NewDispatcher(f, 1, time.Second)
	assert.NoError(t, d.Notify(context.Background(), models.Notification{Type: models.NotificationLowStock}))
	d.Close()
	assert.Equal(t, 1, f.calls)
}

func TestStoreAuditSink_WritesActivityLog(t *testing.T) {
	store := repositories.NewMemoryStore()
	at := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	sink := NewStoreAuditSink(store, func() time.Time { return at })

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // a finished request must still be audited
	sink.Record(ctx, AuditEntry{
		Actor:      models.Actor{UserID: "u1", Username: "meera", Role: "Staff"},
		Action:     "booking.completed",
		EntityType: "booking",
		EntityID:   "b1",
	})

	var logs []models.ActivityLog
	require.NoError(t, store.WithTx(context.Background(), func(tx repositories.Tx) error {
		var err error
		logs, err = tx.ActivityLogs().List(context.Background(), 10)
		return err
	}))
	require.Len(t, logs, 1)
	assert.Equal(t, "meera", logs[0].Username)
	assert.Equal(t, "Staff", logs[0].UserRole)
	assert.Equal(t, at, logs[0].CreatedAt)
}

func TestStoreAuditSink_RecordTxRollsBackWithCaller(t *testing.T) {
	store := repositories.NewMemoryStore()
	sink := NewStoreAuditSink(store, nil)
	var _ TxAuditSink = sink
	entry := AuditEntry{Actor: models.SystemActor(), Action: "booking.paused", EntityType: "booking", EntityID: "b1"}
	ctx := context.Background()

	failed := errors.New("transition rejected")
	err := store.WithTx(ctx, func(tx repositories.Tx) error {
		require.NoError(t, sink.RecordTx(ctx, tx, entry))
		return failed
	})
	require.ErrorIs(t, err, failed)

	require.NoError(t, store.WithTx(ctx, func(tx repositories.Tx) error {
		return sink.RecordTx(ctx, tx, entry)
	}))

	var logs []models.ActivityLog
	require.NoError(t, store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		logs, err = tx.ActivityLogs().List(ctx, 10)
		return err
	}))
	require.Len(t, logs, 1, "only the committed transaction leaves a row")
	assert.Equal(t, "booking.paused", logs[0].Action)
}
