package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

var (
	ErrInvalidPin = errors.New("invalid admin pin")
	ErrPinLocked  = errors.New("admin pin is locked")
	ErrPinNotSet  = errors.New("admin pin has not been set")
)

const (
	maxPinAttempts = 5
	pinLockout     = 15 * time.Minute
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

type SetAdminPinRequest struct {
	CurrentPin string `json:"current_pin"`
	NewPin     string `json:"new_pin" binding:"required"`
}

type PurgeHistoryRequest struct {
	Before time.Time `json:"before" binding:"required"`
	Pin    string    `json:"pin" binding:"required"`
}

// PurgeResult counts what a retention purge removed.
type PurgeResult struct {
	HistoryDeleted  int64 `json:"history_deleted"`
	BookingsDeleted int64 `json:"bookings_deleted"`
}

// SettingsService guards destructive admin operations with a PIN.
type SettingsService interface {
	GetAdminSettings(ctx context.Context) (*models.AdminSettings, error)
	SetAdminPin(ctx context.Context, actor models.Actor, req SetAdminPinRequest) error
	PurgeHistory(ctx context.Context, actor models.Actor, req PurgeHistoryRequest) (*PurgeResult, error)
}

type settingsService struct {
	rt Runtime
}

// NewSettingsService creates a new instance of SettingsService.
func NewSettingsService(rt Runtime) SettingsService {
	return &settingsService{rt: rt.withDefaults()}
}

func (s *settingsService) GetAdminSettings(ctx context.Context) (*models.AdminSettings, error) {
	var settings *models.AdminSettings
	err := s.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		settings, err = tx.Settings().GetAdmin(ctx)
		return err
	})
	return settings, err
}

func (s *settingsService) SetAdminPin(ctx context.Context, actor models.Actor, req SetAdminPinRequest) error {
	if !pinPattern.MatchString(req.NewPin) {
		return validationError("pin must be 4 to 8 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	var verifyErr error
	err = s.rt.runTx(ctx, func(tx repositories.Tx) error {
		settings, err := tx.Settings().GetAdmin(ctx)
		if err != nil {
			return err
		}
		now := s.rt.now()
		if settings.AdminDeletePinHash != nil {
			if verifyErr = verifyPin(settings, req.CurrentPin, now); verifyErr != nil {
				settings.UpdatedAt = now
				return tx.Settings().SaveAdmin(ctx, settings)
			}
		}
		h := string(hash)
		settings.AdminDeletePinHash = &h
		settings.FailedAttempts = 0
		settings.LockUntil = nil
		settings.UpdatedAt = now
		return tx.Settings().SaveAdmin(ctx, settings)
	})
	if err != nil {
		return err
	}
	if verifyErr != nil {
		return verifyErr
	}
	s.rt.audit(ctx, actor, "settings.admin_pin_set", "settings", models.AdminSettingsID, "")
	return nil
}

// verifyPin checks pin against the stored hash and updates the attempt
// counters on settings. The caller saves settings either way.
func verifyPin(settings *models.AdminSettings, pin string, now time.Time) error {
	if settings.AdminDeletePinHash == nil {
		return ErrPinNotSet
	}
	if settings.LockUntil != nil && now.Before(*settings.LockUntil) {
		return fmt.Errorf("%w until %s", ErrPinLocked, settings.LockUntil.Format(time.Kitchen))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*settings.AdminDeletePinHash), []byte(pin)); err != nil {
		settings.FailedAttempts++
		if settings.FailedAttempts >= maxPinAttempts {
			until := now.Add(pinLockout)
			settings.LockUntil = &until
			settings.FailedAttempts = 0
			return fmt.Errorf("%w: too many failed attempts, locked until %s", ErrPinLocked, until.Format(time.Kitchen))
		}
		return fmt.Errorf("%w: %d attempts left", ErrInvalidPin, maxPinAttempts-settings.FailedAttempts)
	}
	settings.FailedAttempts = 0
	settings.LockUntil = nil
	return nil
}

// PurgeHistory deletes archived sessions older than req.Before, together with
// the terminal live rows they were archived from.
func (s *settingsService) PurgeHistory(ctx context.Context, actor models.Actor, req PurgeHistoryRequest) (*PurgeResult, error) {
	if req.Before.IsZero() {
		return nil, validationError("a cutoff date is required")
	}
	if req.Before.After(s.rt.now()) {
		return nil, validationError("cutoff cannot be in the future")
	}

	result := &PurgeResult{}
	var verifyErr error
	err := s.rt.runTx(ctx, func(tx repositories.Tx) error {
		*result = PurgeResult{}
		settings, err := tx.Settings().GetAdmin(ctx)
		if err != nil {
			return err
		}
		now := s.rt.now()
		verifyErr = verifyPin(settings, req.Pin, now)
		settings.UpdatedAt = now
		if err := tx.Settings().SaveAdmin(ctx, settings); err != nil {
			return err
		}
		if verifyErr != nil {
			return nil
		}

		old, err := tx.History().ListArchivedBetween(ctx, time.Time{}, req.Before)
		if err != nil {
			return err
		}
		for _, h := range old {
			err := tx.Bookings().Delete(ctx, h.BookingID)
			switch {
			case err == nil:
				result.BookingsDeleted++
			case !errors.Is(err, repositories.ErrNotFound):
				return err
			}
		}
		result.HistoryDeleted, err = tx.History().DeleteArchivedBefore(ctx, req.Before)
		return err
	})
	if err != nil {
		return nil, err
	}
	if verifyErr != nil {
		utils.LogWarn(verifyErr, "History purge rejected", map[string]interface{}{"user": actor.Username})
		s.rt.audit(ctx, actor, "history.purge_rejected", "settings", models.AdminSettingsID, verifyErr.Error())
		return nil, verifyErr
	}

	utils.LogInfo("History purged", map[string]interface{}{
		"before": req.Before.Format(time.RFC3339), "history": result.HistoryDeleted, "bookings": result.BookingsDeleted,
	})
	s.rt.audit(ctx, actor, "history.purged", "booking_history", "",
		fmt.Sprintf("%d records before %s", result.HistoryDeleted, req.Before.Format("2006-01-02")))
	return result, nil
}
