package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

// AuditEntry is what the engine reports for every state-changing operation.
type AuditEntry struct {
	Actor      models.Actor
	Action     string
	EntityType string
	EntityID   string
	Details    string
}

// AuditSink is the activity-log collaborator. Record must not fail the caller.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry)
}

// TxAuditSink can also write an entry inside the caller's transaction, so
// the row commits or rolls back with the change it describes.
type TxAuditSink interface {
	AuditSink
	RecordTx(ctx context.Context, tx repositories.Tx, entry AuditEntry) error
}

// StoreAuditSink writes activity logs to the store, either in its own
// transaction (Record) or in the caller's (RecordTx).
type StoreAuditSink struct {
	store repositories.Store
	now   func() time.Time
}

// NewStoreAuditSink creates a sink backed by store.
func NewStoreAuditSink(store repositories.Store, now func() time.Time) *StoreAuditSink {
	if now == nil {
		now = time.Now
	}
	return &StoreAuditSink{store: store, now: now}
}

func (s *StoreAuditSink) row(entry AuditEntry) *models.ActivityLog {
	return &models.ActivityLog{
		ID:         uuid.NewString(),
		UserID:     entry.Actor.UserID,
		Username:   entry.Actor.Username,
		UserRole:   entry.Actor.Role,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		CreatedAt:  s.now(),
	}
}

func (s *StoreAuditSink) Record(ctx context.Context, entry AuditEntry) {
	row := s.row(entry)
	ctx = context.WithoutCancel(ctx)
	err := s.store.WithTx(ctx, func(tx repositories.Tx) error {
		return tx.ActivityLogs().Create(ctx, row)
	})
	if err != nil {
		utils.LogError(err, "Failed to write activity log", map[string]interface{}{
			"action": entry.Action, "entity_type": entry.EntityType, "entity_id": entry.EntityID,
		})
	}
}

func (s *StoreAuditSink) RecordTx(ctx context.Context, tx repositories.Tx, entry AuditEntry) error {
	return tx.ActivityLogs().Create(ctx, s.row(entry))
}

// NopAuditSink discards entries.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, AuditEntry) {}
