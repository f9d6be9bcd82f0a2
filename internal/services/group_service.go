package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

// --- Custom Service Errors for Session Groups ---
var (
	ErrGroupNotFound       = errors.New("session group not found")
	ErrCategoryMismatch    = errors.New("booking category does not match the group")
	ErrBookingTypeMismatch = errors.New("booking type does not match the group")
)

// MemberError reports the failure of a group operation on one member.
type MemberError struct {
	BookingID string
	Op        string
	Err       error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.BookingID, e.Err)
}

func (e *MemberError) Unwrap() error { return e.Err }

type CreateGroupRequest struct {
	GroupName   string `json:"group_name"`
	Category    string `json:"category" binding:"required"`
	BookingType string `json:"booking_type" binding:"required"`
}

type AddMemberRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// GroupResult is what a collective operation did. Err aggregates the
// MemberErrors of the members that failed; Done lists those that succeeded.
type GroupResult struct {
	Group   *models.SessionGroup `json:"group"`
	Done    []string             `json:"done"`
	Skipped []string             `json:"skipped,omitempty"`
	Err     error                `json:"-"`
}

// GroupCoordinator applies booking operations to every member of a group.
// A failing member never rolls back its siblings.
type GroupCoordinator interface {
	CreateGroup(ctx context.Context, actor models.Actor, req CreateGroupRequest) (*models.SessionGroup, error)
	GetGroup(ctx context.Context, id string) (*models.SessionGroup, error)
	AddMember(ctx context.Context, actor models.Actor, groupID, bookingID string) (*models.SessionGroup, error)

	PauseAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error)
	ResumeAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error)
	CompleteAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error)
	CancelAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error)
}

type groupCoordinator struct {
	rt       Runtime
	bookings BookingService
}

// NewGroupCoordinator creates a new instance of GroupCoordinator.
func NewGroupCoordinator(rt Runtime, bookings BookingService) GroupCoordinator {
	return &groupCoordinator{rt: rt.withDefaults(), bookings: bookings}
}

func (g *groupCoordinator) CreateGroup(ctx context.Context, actor models.Actor, req CreateGroupRequest) (*models.SessionGroup, error) {
	if _, ok := g.rt.Settings.Category(req.Category); !ok {
		return nil, validationError("unknown category '%s'", req.Category)
	}
	if !models.IsValidBookingType(req.BookingType) {
		return nil, validationError("invalid booking type '%s'", req.BookingType)
	}

	now := g.rt.now()
	group := &models.SessionGroup{
		ID:          uuid.NewString(),
		GroupCode:   newCode("GRP", 4),
		GroupName:   strings.TrimSpace(req.GroupName),
		Category:    req.Category,
		BookingType: models.BookingType(req.BookingType),
		MemberIDs:   []string{},
		CreatedAt:   now,
	}
	if group.GroupName == "" {
		group.GroupName = group.GroupCode
	}
	err := g.rt.runTx(ctx, func(tx repositories.Tx) error {
		return tx.Groups().Create(ctx, group)
	})
	if err != nil {
		return nil, err
	}
	g.rt.audit(ctx, actor, "group.created", "group", group.ID,
		fmt.Sprintf("%s (%s, %s)", group.GroupCode, group.Category, group.BookingType))
	return group, nil
}

func loadGroup(ctx context.Context, tx repositories.Tx, id string) (*models.SessionGroup, error) {
	group, err := tx.Groups().GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return group, err
}

func (g *groupCoordinator) GetGroup(ctx context.Context, id string) (*models.SessionGroup, error) {
	var group *models.SessionGroup
	err := g.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		group, err = loadGroup(ctx, tx, id)
		return err
	})
	return group, err
}

func (g *groupCoordinator) AddMember(ctx context.Context, actor models.Actor, groupID, bookingID string) (*models.SessionGroup, error) {
	current, err := g.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var group *models.SessionGroup
	err = g.rt.withLocks(ctx, []string{current.SeatKey(), locks.GroupKey(groupID)}, func() error {
		return g.rt.runTx(ctx, func(tx repositories.Tx) error {
			b, err := loadBooking(ctx, tx, bookingID)
			if err != nil {
				return err
			}
			if b.Status.IsTerminal() {
				return invalidTransition(b, "group")
			}
			if b.GroupID != nil && *b.GroupID != groupID {
				return validationError("booking %s already belongs to group %s", b.BookingCode, *b.GroupCode)
			}
			if group, err = joinGroupTx(ctx, tx, groupID, b); err != nil {
				return err
			}
			b.UpdatedAt = g.rt.now()
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			return tx.Groups().Update(ctx, group)
		})
	})
	if err != nil {
		return nil, err
	}
	g.rt.audit(ctx, actor, "group.member_added", "group", group.ID, fmt.Sprintf("%s joined %s", current.BookingCode, group.GroupCode))
	return group, nil
}

// joinGroupTx checks compatibility and links b to the group. The caller
// persists both records.
func joinGroupTx(ctx context.Context, tx repositories.Tx, groupID string, b *models.BookingSession) (*models.SessionGroup, error) {
	group, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if group.DissolvedAt != nil {
		return nil, validationError("group %s is dissolved", group.GroupCode)
	}
	if b.Category != group.Category {
		return nil, fmt.Errorf("%w: %s is %s, group %s is %s", ErrCategoryMismatch, b.BookingCode, b.Category, group.GroupCode, group.Category)
	}
	if b.BookingType != group.BookingType {
		return nil, fmt.Errorf("%w: %s is %s, group %s is %s", ErrBookingTypeMismatch, b.BookingCode, b.BookingType, group.GroupCode, group.BookingType)
	}
	b.GroupID = &group.ID
	code := group.GroupCode
	b.GroupCode = &code
	if !group.HasMember(b.ID) {
		group.MemberIDs = append(group.MemberIDs, b.ID)
	}
	return group, nil
}

// dissolveIfDoneTx marks the group dissolved once every member is terminal.
func dissolveIfDoneTx(ctx context.Context, tx repositories.Tx, groupID string, at time.Time) error {
	group, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if group.DissolvedAt != nil {
		return nil
	}
	for _, id := range group.MemberIDs {
		b, err := tx.Bookings().GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !b.Status.IsTerminal() {
			return nil
		}
	}
	group.DissolvedAt = &at
	return tx.Groups().Update(ctx, group)
}

func (g *groupCoordinator) PauseAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error) {
	return g.forEach(ctx, groupID, "pause", func(id string) error {
		_, err := g.bookings.Pause(ctx, actor, id)
		return err
	})
}

func (g *groupCoordinator) ResumeAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error) {
	return g.forEach(ctx, groupID, "resume", func(id string) error {
		_, err := g.bookings.Resume(ctx, actor, id)
		return err
	})
}

func (g *groupCoordinator) CompleteAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error) {
	return g.forEach(ctx, groupID, "complete", func(id string) error {
		_, err := g.bookings.Complete(ctx, actor, id)
		return err
	})
}

func (g *groupCoordinator) CancelAll(ctx context.Context, actor models.Actor, groupID string) (*GroupResult, error) {
	return g.forEach(ctx, groupID, "cancel", func(id string) error {
		_, err := g.bookings.Cancel(ctx, actor, id)
		return err
	})
}

// forEach runs apply on every live member; terminal members are skipped.
// The returned error is only for failing to load the group.
func (g *groupCoordinator) forEach(ctx context.Context, groupID, op string, apply func(id string) error) (*GroupResult, error) {

	group, err := g.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	result := &GroupResult{Done: []string{}}
	for _, id := range group.MemberIDs {
		b, err := g.bookings.Get(ctx, id)
		if err != nil {
			result.Err = multierr.Append(result.Err, &MemberError{BookingID: id, Op: op, Err: err})
			continue
		}
		if b.Status.IsTerminal() {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if err := apply(id); err != nil {
			result.Err = multierr.Append(result.Err, &MemberError{BookingID: id, Op: op, Err: err})
			continue
		}
		result.Done = append(result.Done, id)
	}

	if result.Group, err = g.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if result.Err != nil {
		utils.LogWarn(result.Err, "Group operation partially failed", map[string]interface{}{
			"group_id": groupID, "op": op, "failed": len(multierr.Errors(result.Err)), "done": len(result.Done),
		})
	}
	return result, nil
}
