// Package notify delivers engine events to the notification and audit
// collaborators. Delivery is push-only and never fails a business operation.
package notify

import (
	"context"
	"sync"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/pkg/utils"
)

// Notifier pushes one notification to its destination.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier writes notifications to the structured log only.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n models.Notification) error {
	utils.LogInfo("Notification", map[string]interface{}{
		"type":        string(n.Type),
		"title":       n.Title,
		"message":     n.Message,
		"entity_type": n.EntityType,
		"entity_id":   n.EntityID,
	})
	return nil
}

// Recorder keeps notifications in memory; tests read them back with Sent.
type Recorder struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *Recorder) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.sent...)
}

// OfType filters recorded notifications by type.
func (r *Recorder) OfType(t models.NotificationType) []models.Notification {
	out := []models.Notification{}
	for _, n := range r.Sent() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
