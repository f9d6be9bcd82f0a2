package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/notify"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

// ErrValidation is returned for malformed requests.
var ErrValidation = errors.New("validation failed")

const lockWait = 5 * time.Second

// Runtime bundles the collaborators every engine service runs against.
type Runtime struct {
	Store    repositories.Store
	Locker   locks.Locker
	Notifier notify.Notifier
	Audit    notify.AuditSink
	Settings models.LoungeSettings
	Now      func() time.Time
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Locker == nil {
		rt.Locker = locks.NewLocalLocker()
	}
	if rt.Notifier == nil {
		rt.Notifier = notify.LogNotifier{}
	}
	if rt.Audit == nil {
		rt.Audit = notify.NopAuditSink{}
	}
	if rt.Now == nil {
		rt.Now = time.Now
	}
	if rt.Settings.Location == nil {
		rt.Settings.Location = time.Local
	}
	return rt
}

// now is the runtime clock in the lounge's time zone.
func (rt Runtime) now() time.Time {
	return rt.Now().In(rt.Settings.Location)
}

// runTx runs fn in a transaction and retries it once on a persistence conflict.
// fn must do all of its reads through tx so the retry sees fresh state.
func (rt Runtime) runTx(ctx context.Context, fn func(tx repositories.Tx) error) error {
	err := rt.Store.WithTx(ctx, fn)
	if errors.Is(err, repositories.ErrPersistenceConflict) {
		utils.LogDebug("Retrying after persistence conflict", map[string]interface{}{"error": err.Error()})
		err = rt.Store.WithTx(ctx, fn)
	}
	return err
}

// withLocks holds keys for the duration of fn.
func (rt Runtime) withLocks(ctx context.Context, keys []string, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	unlock, err := rt.Locker.Lock(lockCtx, keys...)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (rt Runtime) notify(ctx context.Context, typ models.NotificationType, title, message, entityType, entityID string, data map[string]string) {
	n := models.Notification{
		ID:         uuid.NewString(),
		Type:       typ,
		Title:      title,
		Message:    message,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
		CreatedAt:  rt.Now(),
	}
	if err := rt.Notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		utils.LogWarn(err, "Failed to push notification", map[string]interface{}{"type": string(typ), "entity_id": entityID})
	}
}

func (rt Runtime) audit(ctx context.Context, actor models.Actor, action, entityType, entityID, details string) {
	rt.Audit.Record(ctx, notify.AuditEntry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}

// auditTx writes entry inside tx when the sink can join transactions.
func (rt Runtime) auditTx(ctx context.Context, tx repositories.Tx, entry notify.AuditEntry) error {
	if sink, ok := rt.Audit.(notify.TxAuditSink); ok {
		return sink.RecordTx(ctx, tx, entry)
	}
	return nil
}

// auditCommitted records entry after commit for sinks auditTx skipped.
func (rt Runtime) auditCommitted(ctx context.Context, entry notify.AuditEntry) {
	if _, ok := rt.Audit.(notify.TxAuditSink); !ok {
		rt.Audit.Record(ctx, entry)
	}
}

// newCode returns prefix-XXXX style human readable codes.
func newCode(prefix string, n int) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + raw[:n]
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
