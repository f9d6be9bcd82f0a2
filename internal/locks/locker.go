// Package locks provides the per-key mutual exclusion the engine uses to
// serialize transitions on one seat and reservations on one food item.
package locks

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a key could not be acquired before the
// context expired.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker acquires keys in the order given and returns a function releasing
// all of them. Callers must always pass keys in a consistent order
// (seat, then group, then food items) to avoid deadlocks.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// FoodKey formats the lock key of a food item.
func FoodKey(foodItemID string) string {
	return "food:" + foodItemID
}

// GroupKey formats the lock key of a session group.
func GroupKey(groupID string) string {
	return "group:" + groupID
}

// dedupe drops repeated keys, keeping first occurrence order.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
