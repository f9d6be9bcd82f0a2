package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// RuleKind says which pricing table a base price came from.
type RuleKind string

const (
	RuleKindRegular   RuleKind = "regular"
	RuleKindHappyHour RuleKind = "happy_hour"
)

// IsValidRuleKind checks if the provided string is a known RuleKind.
func IsValidRuleKind(k string) bool {
	switch RuleKind(k) {
	case RuleKindRegular, RuleKindHappyHour:
		return true
	default:
		return false
	}
}

// PricingRule is one row of a pricing table:
// (kind, category, duration bucket, person count) -> price.
type PricingRule struct {
	ID              string          `json:"id" db:"id"`
	Kind            RuleKind        `json:"kind" db:"kind"`
	Category        string          `json:"category" db:"category"`
	DurationMinutes int             `json:"duration_minutes" db:"duration_minutes"`
	PersonCount     int             `json:"person_count" db:"person_count"`
	Price           decimal.Decimal `json:"price" db:"price"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Duration returns the bucket length.
func (r PricingRule) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// HappyHourConfig is a daily [StartTime, EndTime) window, "HH:MM" local clock.
// A window whose end is not after its start wraps past midnight.
type HappyHourConfig struct {
	ID        string    `json:"id" db:"id"`
	Category  string    `json:"category" db:"category"`
	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Validate checks both clock fields.
func (h HappyHourConfig) Validate() error {
	if _, err := ParseClock(h.StartTime); err != nil {
		return err
	}
	if _, err := ParseClock(h.EndTime); err != nil {
		return err
	}
	if h.StartTime == h.EndTime {
		return fmt.Errorf("happy hour window %s-%s is empty", h.StartTime, h.EndTime)
	}
	return nil
}

// Contains reports whether t falls inside the window on t's own calendar day.
// Disabled or malformed windows never match.
func (h HappyHourConfig) Contains(t time.Time) bool {
	if !h.Enabled {
		return false
	}
	start, err := ParseClock(h.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(h.EndTime)
	if err != nil {
		return false
	}
	offset := t.Sub(now.With(t).BeginningOfDay())
	if start < end {
		return offset >= start && offset < end
	}
	return offset >= start || offset < end
}

// AdjustmentType is the variant tag of a PriceAdjustment.
type AdjustmentType string

const (
	AdjustmentDiscount AdjustmentType = "discount" // percentage off the base price
	AdjustmentBonus    AdjustmentType = "bonus"    // free minutes added to the session
	AdjustmentManual   AdjustmentType = "manual"   // staff-set price replacing everything
)

// PriceAdjustment is a promotion or a manual override attached to a booking.
// Only the field matching Type is meaningful.
type PriceAdjustment struct {
	Type            AdjustmentType   `json:"type"`
	Label           string           `json:"label,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discount_percent,omitempty"`
	BonusMinutes    int              `json:"bonus_minutes,omitempty"`
	ManualPrice     *decimal.Decimal `json:"manual_price,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks the variant's payload.
func (a PriceAdjustment) Validate() error {
	switch a.Type {
	case AdjustmentDiscount:
		if !a.DiscountPercent.IsPositive() || a.DiscountPercent.GreaterThan(hundred) {
			return fmt.Errorf("discount percent must be in (0, 100], got %s", a.DiscountPercent)
		}
	case AdjustmentBonus:
		if a.BonusMinutes <= 0 {
			return fmt.Errorf("bonus minutes must be positive, got %d", a.BonusMinutes)
		}
	case AdjustmentManual:
		if a.ManualPrice == nil || a.ManualPrice.IsNegative() {
			return fmt.Errorf("manual override needs a non-negative price")
		}
	default:
		return fmt.Errorf("unknown adjustment type %q", a.Type)
	}
	return nil
}

// QuoteSource records which override path produced the final price.
type QuoteSource string

const (
	QuoteSourceNone        QuoteSource = "none"
	QuoteSourcePromotional QuoteSource = "promotional"
	QuoteSourceManual      QuoteSource = "manual"
)

// DiscountBreakdown explains how FinalPrice was derived from BasePrice.
type DiscountBreakdown struct {
	Source          QuoteSource      `json:"source"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	BonusMinutes    int              `json:"bonus_minutes"`
	ManualPrice     *decimal.Decimal `json:"manual_price,omitempty"`
	Applied         []string         `json:"applied,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// PriceQuote is the Pricing Resolver's answer. It holds no timestamps so the
// same inputs always produce an equal value.
type PriceQuote struct {
	Category        string            `json:"category"`
	PersonCount     int               `json:"person_count"`
	DurationMinutes int               `json:"duration_minutes"`
	OpenEnded       bool              `json:"open_ended"`
	BilledMinutes   int               `json:"billed_minutes,omitempty"`
	HourlyRate      *decimal.Decimal  `json:"hourly_rate,omitempty"`
	BasePrice       decimal.Decimal   `json:"base_price"`
	AppliedRuleKind RuleKind          `json:"applied_rule_kind"`
	FinalPrice      decimal.Decimal   `json:"final_price"`
	BonusMinutes    int               `json:"bonus_minutes"`
	Breakdown       DiscountBreakdown `json:"discount_breakdown"`
}
