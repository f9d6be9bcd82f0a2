package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/notify"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

// --- Custom Service Errors for Booking ---
var (
	ErrBookingNotFound                  = errors.New("booking not found")
	ErrSeatUnavailable                  = errors.New("seat is unavailable")
	ErrUnknownSeat                      = errors.New("unknown seat")
	ErrInvalidTransition                = errors.New("invalid booking state transition")
	ErrOverpaymentNotAllowed            = errors.New("payment exceeds amount due")
	ErrUnsettledPaymentBlocksCompletion = errors.New("booking must be fully paid before completion")
)

// --- Booking DTOs ---

type StartRequest struct {
	Category       string                   `json:"category" binding:"required"`
	SeatNumber     int                      `json:"seat_number" binding:"required"`
	CustomerName   string                   `json:"customer_name" binding:"required"`
	WhatsappNumber *string                  `json:"whatsapp_number"`
	BookingType    string                   `json:"booking_type"`
	Duration       string                   `json:"duration"`
	PersonCount    int                      `json:"person_count"`
	Adjustments    []models.PriceAdjustment `json:"adjustments"`
	GroupID        *string                  `json:"group_id"`
}

type ExtendRequest struct {
	Duration string `json:"duration" binding:"required"`
}

type FoodOrderRequest struct {
	FoodItemID string `json:"food_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
}

type SettlePaymentRequest struct {
	Method     string          `json:"method" binding:"required"`
	CashAmount decimal.Decimal `json:"cash_amount"`
	UpiAmount  decimal.Decimal `json:"upi_amount"`
}

// CompletionPolicy decides whether a session may be completed as it stands.
type CompletionPolicy interface {
	CheckCompletion(b *models.BookingSession) error
}

// RequireFullPayment blocks completion while a balance remains.
type RequireFullPayment struct{}

func (RequireFullPayment) CheckCompletion(b *models.BookingSession) error {
	if bal := b.Balance(); bal.IsPositive() {
		return fmt.Errorf("%w: %s still owes %s", ErrUnsettledPaymentBlocksCompletion, b.BookingCode, bal.StringFixed(2))
	}
	return nil
}

// AllowUnpaid lets sessions complete with an open balance.
type AllowUnpaid struct{}

func (AllowUnpaid) CheckCompletion(*models.BookingSession) error { return nil }

// PolicyFromSettings picks the policy named by the lounge configuration.
func PolicyFromSettings(s models.LoungeSettings) CompletionPolicy {
	if s.RequireFullPayment {
		return RequireFullPayment{}
	}
	return AllowUnpaid{}
}

// BookingService is the session state machine:
// active <-> paused, then completed or cancelled exactly once.
type BookingService interface {
	Start(ctx context.Context, actor models.Actor, req StartRequest) (*models.BookingSession, error)
	Get(ctx context.Context, id string) (*models.BookingSession, error)
	GetByCode(ctx context.Context, code string) (*models.BookingSession, error)
	List(ctx context.Context, filters models.BookingFilters) ([]models.BookingSession, int, error)
	ListLive(ctx context.Context) ([]models.BookingSession, error)

	Pause(ctx context.Context, actor models.Actor, id string) (*models.BookingSession, error)
	Resume(ctx context.Context, actor models.Actor, id string) (*models.BookingSession, error)
	Extend(ctx context.Context, actor models.Actor, id string, req ExtendRequest) (*models.BookingSession, error)
	AttachFoodOrder(ctx context.Context, actor models.Actor, id string, req FoodOrderRequest) (*models.BookingSession, error)
	SettlePayment(ctx context.Context, actor models.Actor, id string, req SettlePaymentRequest) (*models.BookingSession, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.BookingHistory, error)
	Cancel(ctx context.Context, actor models.Actor, id string) (*models.BookingHistory, error)

	// LiveQuote prices the session as of now without changing it.
	LiveQuote(ctx context.Context, id string) (*models.PriceQuote, error)
	PaymentLogs(ctx context.Context, id string) ([]models.PaymentLog, error)
	ListHistory(ctx context.Context, filters models.BookingFilters) ([]models.BookingHistory, int, error)
	GetHistory(ctx context.Context, id string) (*models.BookingHistory, error)
}

type bookingService struct {
	rt        Runtime
	pricing   PricingResolver
	inventory InventoryLedger
	policy    CompletionPolicy
}

// NewBookingService creates a new instance of BookingService.
func NewBookingService(rt Runtime, pricing PricingResolver, inventory InventoryLedger, policy CompletionPolicy) BookingService {
	rt = rt.withDefaults()
	if policy == nil {
		policy = PolicyFromSettings(rt.Settings)
	}
	return &bookingService{rt: rt, pricing: pricing, inventory: inventory, policy: policy}
}

func (s *bookingService) Start(ctx context.Context, actor models.Actor, req StartRequest) (*models.BookingSession, error) {
	seat, ok := s.rt.Settings.Seat(req.Category, req.SeatNumber)
	if !ok {
		return nil, fmt.Errorf("%w: %s #%d", ErrUnknownSeat, req.Category, req.SeatNumber)
	}
	if utils.IsEmpty(req.CustomerName) {
		return nil, validationError("customer name is required")
	}
	persons := req.PersonCount
	if persons == 0 {
		persons = 1
	}
	if limit := s.rt.Settings.MaxPersonsFor(req.Category); persons < 1 || persons > limit {
		return nil, validationError("person count %d outside 1..%d for %s", persons, limit, req.Category)
	}

	bookingType := models.BookingType(req.BookingType)
	if req.BookingType == "" {
		bookingType = models.BookingTypeHourly
		if req.Duration != "" {
			bookingType = models.BookingTypeFixedSlot
		}
	}
	if !models.IsValidBookingType(string(bookingType)) {
		return nil, validationError("invalid booking type '%s'", req.BookingType)
	}
	minutes := 0
	switch bookingType {
	case models.BookingTypeFixedSlot:
		d, err := models.ParseDurationLabel(req.Duration)
		if err != nil {
			return nil, validationError("%v", err)
		}
		minutes = int(d / time.Minute)
	case models.BookingTypeHourly:
		if req.Duration != "" {
			return nil, validationError("hourly sessions are open-ended and take no duration")
		}
	}

	keys := []string{models.SeatKey(req.Category, req.SeatNumber)}
	if req.GroupID != nil && *req.GroupID != "" {
		keys = append(keys, locks.GroupKey(*req.GroupID))
	}

	var b *models.BookingSession
	var entry notify.AuditEntry
	err := s.rt.withLocks(ctx, keys, func() error {
		return s.rt.runTx(ctx, func(tx repositories.Tx) error {
			now := s.rt.now()
			live, err := tx.Bookings().FindLiveBySeat(ctx, req.Category, req.SeatNumber)
			if err == nil {
				return fmt.Errorf("%w: %s is occupied by %s", ErrSeatUnavailable, seat.Name, live.BookingCode)
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}

			q, err := s.pricing.QuoteTx(ctx, tx, QuoteRequest{
				Category:        req.Category,
				PersonCount:     persons,
				DurationMinutes: minutes,
				OpenEnded:       bookingType == models.BookingTypeHourly,
				ScheduledStart:  &now,
				Adjustments:     req.Adjustments,
			})
			if err != nil {
				return err
			}

			b = &models.BookingSession{
				ID:              uuid.NewString(),
				BookingCode:     newCode("BK", 6),
				Category:        req.Category,
				SeatNumber:      seat.Number,
				SeatName:        seat.Name,
				CustomerName:    strings.TrimSpace(req.CustomerName),
				WhatsappNumber:  req.WhatsappNumber,
				StartTime:       now,
				BookingType:     bookingType,
				Status:          models.BookingStatusActive,
				PersonCount:     persons,
				ActiveSince:     &now,
				FoodOrders:      []models.FoodOrderLine{},
				Adjustments:     append([]models.PriceAdjustment(nil), req.Adjustments...),
				OriginalPrice:   q.BasePrice,
				FinalPrice:      q.FinalPrice,
				AppliedRuleKind: q.AppliedRuleKind,
				Breakdown:       q.Breakdown,
				PaymentStatus:   models.PaymentStatusUnpaid,
				CashAmount:      decimal.Zero,
				UpiAmount:       decimal.Zero,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if bookingType == models.BookingTypeFixedSlot {
				b.DurationMinutes = minutes + q.BonusMinutes
				end := now.Add(time.Duration(b.DurationMinutes) * time.Minute)
				b.EndTime = &end
			}

			var group *models.SessionGroup
			if req.GroupID != nil && *req.GroupID != "" {
				if group, err = joinGroupTx(ctx, tx, *req.GroupID, b); err != nil {
					return err
				}
			}
			if err := tx.Bookings().Create(ctx, b); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return fmt.Errorf("%w: %v", ErrSeatUnavailable, err)
				}
				return err
			}
			if group != nil {
				if err := tx.Groups().Update(ctx, group); err != nil {
					return err
				}
			}
			entry = bookingAudit(actor, "booking.started", b,
				fmt.Sprintf("%s on %s, %s", b.BookingCode, b.SeatName, b.FinalPrice.StringFixed(2)))
			return s.rt.auditTx(ctx, tx, entry)
		})
	})
	if err != nil {
		return nil, err
	}

	utils.LogDebug("Booking started", map[string]interface{}{"booking_id": b.ID, "seat": b.SeatKey()})
	s.rt.auditCommitted(ctx, entry)
	s.rt.notify(ctx, models.NotificationBookingStarted, "Session started",
		fmt.Sprintf("%s started on %s", b.CustomerName, b.SeatName), "booking", b.ID, bookingData(b))
	return b, nil
}

func (s *bookingService) read(ctx context.Context, fn func(tx repositories.Tx) error) error {
	return s.rt.Store.WithTx(ctx, fn)
}

func loadBooking(ctx context.Context, tx repositories.Tx, id string) (*models.BookingSession, error) {
	b, err := tx.Bookings().GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b, err
}

func (s *bookingService) Get(ctx context.Context, id string) (*models.BookingSession, error) {
	var b *models.BookingSession
	err := s.read(ctx, func(tx repositories.Tx) error {
		var err error
		b, err = loadBooking(ctx, tx, id)
		return err
	})
	return b, err
}

func (s *bookingService) GetByCode(ctx context.Context, code string) (*models.BookingSession, error) {
	var b *models.BookingSession
	err := s.read(ctx, func(tx repositories.Tx) error {
		var err error
		b, err = tx.Bookings().GetByCode(ctx, code)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, code)
	}
	return b, err
}

func (s *bookingService) List(ctx context.Context, filters models.BookingFilters) ([]models.BookingSession, int, error) {
	if filters.Status != nil && *filters.Status != "" && !models.IsValidBookingStatus(*filters.Status) {
		return nil, 0, validationError("invalid status filter '%s'", *filters.Status)
	}
	var list []models.BookingSession
	var total int
	err := s.read(ctx, func(tx repositories.Tx) error {
		var err error
		list, total, err = tx.Bookings().List(ctx, filters)
		return err
	})
	return list, total, err
}

func (s *bookingService) ListLive(ctx context.Context) ([]models.BookingSession, error) {
	var list []models.BookingSession
	err := s.read(ctx, func(tx repositories.Tx) error {
		var err error
		list, err = tx.Bookings().ListLive(ctx)
		return err
	})
	return list, err
}

// transition names a booking change for the audit trail. note, when set, is
// appended to the audit details once fn has run.
type transition struct {
	actor  models.Actor
	action string
	note   func() string
}

// mutate serializes a change to one booking: seat lock (plus extraKeys),
// transaction, fresh read, fn, versioned update and audit row.
func (s *bookingService) mutate(ctx context.Context, t transition, id string, extraKeys []string,
	fn func(tx repositories.Tx, b *models.BookingSession, now time.Time) error) (*models.BookingSession, notify.AuditEntry, error) {

	var entry notify.AuditEntry
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, entry, err
	}
	keys := append([]string{current.SeatKey()}, extraKeys...)

	var b *models.BookingSession
	err = s.rt.withLocks(ctx, keys, func() error {
		return s.rt.runTx(ctx, func(tx repositories.Tx) error {
			var err error
			if b, err = loadBooking(ctx, tx, id); err != nil {
				return err
			}
			now := s.rt.now()
			if err := fn(tx, b, now); err != nil {
				return err
			}
			b.UpdatedAt = now
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			details := bookingAuditDetails(b)
			if t.note != nil {
				details += "; " + t.note()
			}
			entry = bookingAudit(t.actor, t.action, b, details)
			return s.rt.auditTx(ctx, tx, entry)
		})
	})
	if err != nil {
		return nil, entry, err
	}
	return b, entry, nil
}

func invalidTransition(b *models.BookingSession, op string) error {
	return fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, op, b.Status)
}

// foldActive moves the running stretch into ActiveSeconds.
func foldActive(b *models.BookingSession, now time.Time) {
	if b.ActiveSince != nil && now.After(*b.ActiveSince) {
		b.ActiveSeconds += int64(now.Sub(*b.ActiveSince) / time.Second)
	}
	b.ActiveSince = nil
}

// billedMinutes rounds elapsed time up to whole minutes.
func billedMinutes(d time.Duration) int {
	m := int(d / time.Minute)
	if d%time.Minute > 0 {
		m++
	}
	return m
}

// accrue reprices an open-ended session for the time used so far.
func (s *bookingService) accrue(ctx context.Context, tx repositories.Tx, b *models.BookingSession, now time.Time) error {
	if !b.OpenEnded() {
		return nil
	}
	q, err := s.pricing.QuoteTx(ctx, tx, openEndedQuote(b, now))
	if err != nil {
		return err
	}
	b.OriginalPrice = q.BasePrice
	b.FinalPrice = q.FinalPrice
	b.AppliedRuleKind = q.AppliedRuleKind
	b.Breakdown = q.Breakdown
	b.PaymentStatus = b.DerivePaymentStatus()
	return nil
}

func openEndedQuote(b *models.BookingSession, now time.Time) QuoteRequest {
	start := b.StartTime
	return QuoteRequest{
		Category:       b.Category,
		PersonCount:    b.PersonCount,
		OpenEnded:      true,
		ElapsedMinutes: billedMinutes(b.Elapsed(now)),
		ScheduledStart: &start,
		Adjustments:    b.Adjustments,
	}
}

func (s *bookingService) Pause(ctx context.Context, actor models.Actor, id string) (*models.BookingSession, error) {
	b, entry, err := s.mutate(ctx, transition{actor: actor, action: "booking.paused"}, id, nil, func(tx repositories.Tx, b *models.BookingSession, now time.Time) error {
		if b.Status != models.BookingStatusActive {
			return invalidTransition(b, "pause")
		}
		if err := s.accrue(ctx, tx, b, now); err != nil {
			return err
		}
		foldActive(b, now)
		if b.EndTime != nil {
			remaining := b.EndTime.Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			secs := int64(remaining / time.Second)
			b.PausedRemainingSeconds = &secs
		}
		b.PausedAt = &now
		b.Status = models.BookingStatusPaused
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, b, entry, models.NotificationBookingPaused, "Session paused")
	return b, nil
}

func (s *bookingService) Resume(ctx context.Context, actor models.Actor, id string) (*models.BookingSession, error) {
	b, entry, err := s.mutate(ctx, transition{actor: actor, action: "booking.resumed"}, id, nil, func(tx repositories.Tx, b *models.BookingSession, now time.Time) error {
		if b.Status != models.BookingStatusPaused {
			return invalidTransition(b, "resume")
		}
		if b.BookingType == models.BookingTypeFixedSlot {
			end := now.Add(b.PausedRemaining())
			b.EndTime = &end
			b.PausedRemainingSeconds = nil
		}
		b.PausedAt = nil
		b.ActiveSince = &now
		b.Status = models.BookingStatusActive
		return s.accrue(ctx, tx, b, now)
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, b, entry, models.NotificationBookingResumed, "Session resumed")
	return b, nil
}

func (s *bookingService) Extend(ctx context.Context, actor models.Actor, id string, req ExtendRequest) (*models.BookingSession, error) {
	d, err := models.ParseDurationLabel(req.Duration)
	if err != nil {
		return nil, validationError("%v", err)
	}
	minutes := int(d / time.Minute)

	b, entry, err := s.mutate(ctx, transition{actor: actor, action: "booking.extended"}, id, nil, func(tx repositories.Tx, b *models.BookingSession, now time.Time) error {
		if b.Status.IsTerminal() {
			return invalidTransition(b, "extend")
		}
		if b.OpenEnded() {
			return validationError("open-ended sessions run until completed and cannot be extended")
		}
		q, err := s.pricing.QuoteTx(ctx, tx, QuoteRequest{
			Category:        b.Category,
			PersonCount:     b.PersonCount,
			DurationMinutes: minutes,
			ScheduledStart:  &now,
		})
		if err != nil {
			return err
		}
		b.OriginalPrice = b.OriginalPrice.Add(q.BasePrice)
		b.FinalPrice = b.FinalPrice.Add(q.FinalPrice)
		b.DurationMinutes += minutes
		b.Breakdown.Applied = append(b.Breakdown.Applied, "extended by "+models.DurationLabel(minutes))
		if b.Status == models.BookingStatusPaused {
			secs := int64(b.PausedRemaining()/time.Second) + int64(minutes*60)
			b.PausedRemainingSeconds = &secs
		} else {
			end := b.EndTime.Add(time.Duration(minutes) * time.Minute)
			b.EndTime = &end
		}
		b.PaymentStatus = b.DerivePaymentStatus()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, b, entry, models.NotificationBookingExtended, "Session extended")
	return b, nil
}

func (s *bookingService) AttachFoodOrder(ctx context.Context, actor models.Actor, id string, req FoodOrderRequest) (*models.BookingSession, error) {
	if req.Quantity <= 0 {
		return nil, validationError("quantity must be positive")
	}
	var res *models.StockReservation
	var item *models.FoodItem
	t := transition{actor: actor, action: "booking.food_order_added", note: func() string {
		return fmt.Sprintf("%d x %s", req.Quantity, item.Name)
	}}
	b, entry, err := s.mutate(ctx, t, id, []string{locks.FoodKey(req.FoodItemID)}, func(tx repositories.Tx, b *models.BookingSession, now time.Time) error {
		if b.Status.IsTerminal() {
			return invalidTransition(b, "add food to")
		}
		var err error
		if res, item, err = s.inventory.ReserveTx(ctx, tx, req.FoodItemID, req.Quantity); err != nil {
			return err
		}
		qty := decimal.NewFromInt(int64(req.Quantity))
		b.FoodOrders = append(b.FoodOrders, models.FoodOrderLine{
			ID:         uuid.NewString(),
			FoodItemID: item.ID,
			Name:       item.Name,
			Quantity:   req.Quantity,
			UnitPrice:  item.Price,
			Total:      item.Price.Mul(qty),
			UnitCost:   res.WeightedCost,
			AddedAt:    now,
		})
		b.PaymentStatus = b.DerivePaymentStatus()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rt.auditCommitted(ctx, entry)
	signalLowStock(ctx, s.rt, item, res)
	return b, nil
}

func (s *bookingService) SettlePayment(ctx context.Context, actor models.Actor, id string, req SettlePaymentRequest) (*models.BookingSession, error) {
	if !models.IsValidPaymentMethod(req.Method) {
		return nil, validationError("invalid payment method '%s'", req.Method)
	}
	method := models.PaymentMethod(req.Method)
	if req.CashAmount.IsNegative() || req.UpiAmount.IsNegative() {
		return nil, validationError("payment amounts cannot be negative")
	}
	amount := req.CashAmount.Add(req.UpiAmount)
	if !amount.IsPositive() {
		return nil, validationError("payment amount must be positive")
	}
	switch {
	case method == models.PaymentMethodCash && req.UpiAmount.IsPositive():
		return nil, validationError("cash payment cannot carry a UPI amount")
	case method == models.PaymentMethodUPI && req.CashAmount.IsPositive():
		return nil, validationError("UPI payment cannot carry a cash amount")
	}

	b, entry, err := s.mutate(ctx, transition{actor: actor, action: "booking.payment"}, id, nil, func(tx repositories.Tx, b *models.BookingSession, now time.Time) error {
		if b.Status.IsTerminal() {
			return invalidTransition(b, "take payment for")
		}
		if err := s.accrue(ctx, tx, b, now); err != nil {
			return err
		}
		due := b.AmountDue()
		if b.AmountPaid().Add(amount).GreaterThan(due) {
			return fmt.Errorf("%w: %s already paid of %s due, %s offered",
				ErrOverpaymentNotAllowed, b.AmountPaid().StringFixed(2), due.StringFixed(2), amount.StringFixed(2))
		}

		prevStatus := b.PaymentStatus
		var prevMethod *models.PaymentMethod
		if b.PaymentMethod != nil {
			m := *b.PaymentMethod
			prevMethod = &m
			if m != method {
				method = models.PaymentMethodSplit
			}
		}
		b.CashAmount = b.CashAmount.Add(req.CashAmount)
		b.UpiAmount = b.UpiAmount.Add(req.UpiAmount)
		b.PaymentMethod = &method
		b.PaymentStatus = b.DerivePaymentStatus()
		action := fmt.Sprintf("received %s via %s", amount.StringFixed(2), req.Method)
		b.LastPaymentAction = &action

		return tx.PaymentLogs().Create(ctx, &models.PaymentLog{
			ID:             uuid.NewString(),
			BookingID:      b.ID,
			SeatName:       b.SeatName,
			CustomerName:   b.CustomerName,
			Amount:         amount,
			CashAmount:     req.CashAmount,
			UpiAmount:      req.UpiAmount,
			PaymentMethod:  models.PaymentMethod(req.Method),
			PaymentStatus:  b.PaymentStatus,
			PreviousStatus: &prevStatus,
			PreviousMethod: prevMethod,
			UserID:         actor.UserID,
			Username:       actor.Username,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, b, entry, models.NotificationBookingPayment, "Payment received")
	return b, nil
}

func (s *bookingService) Complete(ctx context.Context, actor models.Actor, id string) (*models.BookingHistory, error) {
	return s.finish(ctx, actor, id, models.BookingStatusCompleted)
}

func (s *bookingService) Cancel(ctx context.Context, actor models.Actor, id string) (*models.BookingHistory, error) {
	return s.finish(ctx, actor, id, models.BookingStatusCancelled)
}

// finish freezes the price, moves the session to a terminal state and
// archives it in the same transaction.
func (s *bookingService) finish(ctx context.Context, actor models.Actor, id string, status models.BookingStatus) (*models.BookingHistory, error) {
	op := "complete"
	if status == models.BookingStatusCancelled {
		op = "cancel"
	}

	var history models.BookingHistory
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	keys := []string{current.SeatKey()}
	if current.GroupID != nil {
		keys = append(keys, locks.GroupKey(*current.GroupID))
	}

	var b *models.BookingSession
	var entry notify.AuditEntry
	err = s.rt.withLocks(ctx, keys, func() error {
		return s.rt.runTx(ctx, func(tx repositories.Tx) error {
			var err error
			if b, err = loadBooking(ctx, tx, id); err != nil {
				return err
			}
			if b.Status.IsTerminal() {
				return invalidTransition(b, op)
			}
			now := s.rt.now()
			if err := s.accrue(ctx, tx, b, now); err != nil {
				return err
			}
			foldActive(b, now)
			b.PaymentStatus = b.DerivePaymentStatus()
			if status == models.BookingStatusCompleted {
				if err := s.policy.CheckCompletion(b); err != nil {
					return err
				}
			}
			b.Status = status
			b.EndedAt = &now
			b.UpdatedAt = now
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}

			history = models.NewBookingHistory(uuid.NewString(), *b, now)
			if err := tx.History().Insert(ctx, &history); err != nil {
				return err
			}
			if b.GroupID != nil {
				if err := dissolveIfDoneTx(ctx, tx, *b.GroupID, now); err != nil {
					return err
				}
			}
			entry = bookingAudit(actor, "booking."+string(status), b, bookingAuditDetails(b))
			return s.rt.auditTx(ctx, tx, entry)
		})
	})
	if err != nil {
		return nil, err
	}

	typ, title := models.NotificationBookingCompleted, "Session completed"
	if status == models.BookingStatusCancelled {
		typ, title = models.NotificationBookingCancelled, "Session cancelled"
	}
	s.afterTransition(ctx, b, entry, typ, title)
	return &history, nil
}

// afterTransition runs once the transition has committed.
func (s *bookingService) afterTransition(ctx context.Context, b *models.BookingSession, entry notify.AuditEntry,
	typ models.NotificationType, title string) {

	utils.LogDebug("Booking transition committed", map[string]interface{}{
		"booking_id": b.ID, "action": entry.Action, "status": string(b.Status), "version": b.Version,
	})
	s.rt.auditCommitted(ctx, entry)
	s.rt.notify(ctx, typ, title, fmt.Sprintf("%s on %s", b.CustomerName, b.SeatName), "booking", b.ID, bookingData(b))
}

func bookingAudit(actor models.Actor, action string, b *models.BookingSession, details string) notify.AuditEntry {
	return notify.AuditEntry{Actor: actor, Action: action, EntityType: "booking", EntityID: b.ID, Details: details}
}

func bookingAuditDetails(b *models.BookingSession) string {
	return fmt.Sprintf("%s %s, price %s, paid %s (%s)",
		b.BookingCode, b.Status, b.FinalPrice.StringFixed(2), b.AmountPaid().StringFixed(2), b.PaymentStatus)
}

func bookingData(b *models.BookingSession) map[string]string {
	data := map[string]string{
		"booking_code":   b.BookingCode,
		"category":       b.Category,
		"seat_name":      b.SeatName,
		"status":         string(b.Status),
		"final_price":    b.FinalPrice.StringFixed(2),
		"payment_status": string(b.PaymentStatus),
	}
	if b.EndTime != nil {
		data["end_time"] = b.EndTime.Format(time.RFC3339)
	}
	if b.GroupCode != nil {
		data["group_code"] = *b.GroupCode
	}
	return data
}

func (s *bookingService) LiveQuote(ctx context.Context, id string) (*models.PriceQuote, error) {
	var q *models.PriceQuote
	err := s.read(ctx, func(tx repositories.Tx) error {
		b, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.OpenEnded() && !b.Status.IsTerminal() {
			q, err = s.pricing.QuoteTx(ctx, tx, openEndedQuote(b, s.rt.now()))
			return err
		}
		q = &models.PriceQuote{
			Category:        b.Category,
			PersonCount:     b.PersonCount,
			DurationMinutes: b.DurationMinutes,
			OpenEnded:       b.OpenEnded(),
			BasePrice:       b.OriginalPrice,
			AppliedRuleKind: b.AppliedRuleKind,
			FinalPrice:      b.FinalPrice,
			BonusMinutes:    b.Breakdown.BonusMinutes,
			Breakdown:       b.Breakdown,
		}
		if b.OpenEnded() {
			q.BilledMinutes = billedMinutes(time.Duration(b.ActiveSeconds) * time.Second)
		}
		return nil
	})
	return q, err
}

func (s *bookingService) PaymentLogs(ctx context.Context, id string) ([]models.PaymentLog, error) {
	var logs []models.PaymentLog
	err := s.read(ctx, func(tx repositories.Tx) error {
		if _, err := loadBooking(ctx, tx, id); err != nil {
			return err
		}
		var err error
		logs, err = tx.PaymentLogs().ListByBooking(ctx, id)
		return err
	})
	return logs, err
}

func (s *bookingService) ListHistory(ctx context.Context, filters models.BookingFilters) ([]models.BookingHistory, int, error) {
	var list []models.BookingHistory
	var total int
	err := s.read(ctx, func(tx repositories.Tx) error {
		var err error
		list, total, err = tx.History().List(ctx, filters)
		return err
	})
	return list, total, err
}

func (s *bookingService) GetHistory(ctx context.Context, id string) (*models.BookingHistory, error) {
	var h *models.BookingHistory
	err := s.read(ctx, func(tx repositories.Tx) error {
		var err error
		h, err = tx.History().GetByID(ctx, id)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: history %s", ErrBookingNotFound, id)
	}
	return h, err
}
