package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
)

var ErrNoPricingRuleFound = errors.New("no pricing rule found")

var (
	hundred   = decimal.NewFromInt(100)
	sixty     = decimal.NewFromInt(60)
	moneyUnit = int32(2)
)

// QuoteRequest asks for the price of one session.
// Open-ended requests are billed on ElapsedMinutes at the hourly rate.
type QuoteRequest struct {
	Category        string                   `json:"category" binding:"required"`
	PersonCount     int                      `json:"person_count"`
	Duration        string                   `json:"duration"`
	DurationMinutes int                      `json:"duration_minutes"`
	OpenEnded       bool                     `json:"open_ended"`
	ElapsedMinutes  int                      `json:"elapsed_minutes"`
	ScheduledStart  *time.Time               `json:"scheduled_start"`
	Adjustments     []models.PriceAdjustment `json:"adjustments"`
}

type UpsertRuleRequest struct {
	Kind        string          `json:"kind"`
	Category    string          `json:"category" binding:"required"`
	Duration    string          `json:"duration" binding:"required"`
	PersonCount int             `json:"person_count"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

type UpsertHappyHourRequest struct {
	Category  string `json:"category" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Enabled   *bool  `json:"enabled"`
}

// PricingResolver turns a session description into a PriceQuote.
type PricingResolver interface {
	Quote(ctx context.Context, req QuoteRequest) (*models.PriceQuote, error)
	QuoteTx(ctx context.Context, tx repositories.Tx, req QuoteRequest) (*models.PriceQuote, error)

	ListRules(ctx context.Context, category string, kind models.RuleKind) ([]models.PricingRule, error)
	UpsertRule(ctx context.Context, actor models.Actor, req UpsertRuleRequest) (*models.PricingRule, error)
	DeleteRule(ctx context.Context, actor models.Actor, id string) error
	ListHappyHours(ctx context.Context, category string) ([]models.HappyHourConfig, error)
	UpsertHappyHour(ctx context.Context, actor models.Actor, req UpsertHappyHourRequest) (*models.HappyHourConfig, error)

	// Seed stores the rows of the layout file, replacing prices of existing keys.
	Seed(ctx context.Context, rules []models.PricingRule, happyHours []models.HappyHourConfig) error
}

type pricingResolver struct {
	rt Runtime
}

// NewPricingResolver creates the resolver.
func NewPricingResolver(rt Runtime) PricingResolver {
	return &pricingResolver{rt: rt.withDefaults()}
}

func (p *pricingResolver) Quote(ctx context.Context, req QuoteRequest) (*models.PriceQuote, error) {
	var q *models.PriceQuote
	err := p.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		q, err = p.QuoteTx(ctx, tx, req)
		return err
	})
	return q, err
}

func (p *pricingResolver) QuoteTx(ctx context.Context, tx repositories.Tx, req QuoteRequest) (*models.PriceQuote, error) {
	if _, ok := p.rt.Settings.Category(req.Category); !ok {
		return nil, validationError("unknown category '%s'", req.Category)
	}
	persons := req.PersonCount
	if persons == 0 {
		persons = 1
	}
	if limit := p.rt.Settings.MaxPersonsFor(req.Category); persons < 1 || persons > limit {
		return nil, validationError("person count %d outside 1..%d for %s", persons, limit, req.Category)
	}
	for _, a := range req.Adjustments {
		if err := a.Validate(); err != nil {
			return nil, validationError("%v", err)
		}
	}

	minutes := req.DurationMinutes
	if !req.OpenEnded && req.Duration != "" {
		d, err := models.ParseDurationLabel(req.Duration)
		if err != nil {
			return nil, validationError("%v", err)
		}
		minutes = int(d / time.Minute)
	}
	if !req.OpenEnded && minutes <= 0 {
		return nil, validationError("a duration is required unless the session is open-ended")
	}
	if req.ElapsedMinutes < 0 {
		return nil, validationError("elapsed minutes cannot be negative")
	}

	start := p.rt.now()
	if req.ScheduledStart != nil {
		start = req.ScheduledStart.In(p.rt.Settings.Location)
	}
	happy, err := p.inHappyHour(ctx, tx, req.Category, start)
	if err != nil {
		return nil, err
	}

	q := &models.PriceQuote{
		Category:        req.Category,
		PersonCount:     persons,
		DurationMinutes: minutes,
		OpenEnded:       req.OpenEnded,
	}

	if req.OpenEnded {
		rate, kind, err := p.hourlyRate(ctx, tx, req.Category, persons, happy)
		if err != nil {
			return nil, err
		}
		// bonus minutes are free time on an open-ended session
		_, bonus, _ := applyAdjustments(decimal.Zero, req.Adjustments)
		billed := req.ElapsedMinutes - bonus
		if billed < 0 {
			billed = 0
		}
		q.DurationMinutes = 0
		q.BilledMinutes = billed
		q.HourlyRate = &rate
		q.AppliedRuleKind = kind
		q.BasePrice = rate.Mul(decimal.NewFromInt(int64(billed))).DivRound(sixty, moneyUnit)
	} else {
		rule, err := p.matchRule(ctx, tx, req.Category, minutes, persons, happy)
		if err != nil {
			return nil, err
		}
		q.BasePrice = rule.Price
		q.AppliedRuleKind = rule.Kind
	}

	q.FinalPrice, q.BonusMinutes, q.Breakdown = applyAdjustments(q.BasePrice, req.Adjustments)
	return q, nil
}

func (p *pricingResolver) inHappyHour(ctx context.Context, tx repositories.Tx, category string, at time.Time) (bool, error) {
	windows, err := tx.Pricing().ListHappyHours(ctx, category)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Contains(at) {
			return true, nil
		}
	}
	return false, nil
}

// matchRule requires an exact (duration, persons) bucket. The happy-hour
// table wins when the window is open and it has the bucket.
func (p *pricingResolver) matchRule(ctx context.Context, tx repositories.Tx, category string, minutes, persons int, happy bool) (*models.PricingRule, error) {
	kinds := []models.RuleKind{models.RuleKindRegular}
	if happy {
		kinds = []models.RuleKind{models.RuleKindHappyHour, models.RuleKindRegular}
	}
	for _, kind := range kinds {
		rules, err := tx.Pricing().ListRules(ctx, category, kind)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			if r.DurationMinutes == minutes && r.PersonCount == persons {
				rule := r
				return &rule, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s, %s, %d person(s)", ErrNoPricingRuleFound, category, models.DurationLabel(minutes), persons)
}

// hourlyRate derives a per-hour price from the smallest bucket of the table in force.
func (p *pricingResolver) hourlyRate(ctx context.Context, tx repositories.Tx, category string, persons int, happy bool) (decimal.Decimal, models.RuleKind, error) {
	kinds := []models.RuleKind{models.RuleKindRegular}
	if happy {
		kinds = []models.RuleKind{models.RuleKindHappyHour, models.RuleKindRegular}
	}
	for _, kind := range kinds {
		rules, err := tx.Pricing().ListRules(ctx, category, kind)
		if err != nil {
			return decimal.Zero, "", err
		}
		var smallest *models.PricingRule
		for i := range rules {
			r := &rules[i]
			if r.PersonCount != persons {
				continue
			}
			if smallest == nil || r.DurationMinutes < smallest.DurationMinutes {
				smallest = r
			}
		}
		if smallest != nil {
			rate := smallest.Price.Mul(sixty).DivRound(decimal.NewFromInt(int64(smallest.DurationMinutes)), 4)
			return rate, kind, nil
		}
	}
	return decimal.Zero, "", fmt.Errorf("%w: no hourly base for %s, %d person(s)", ErrNoPricingRuleFound, category, persons)
}

// applyAdjustments resolves promotions and overrides. A manual override
// replaces the price and excludes every promotion; otherwise the largest
// discount applies to price and the largest bonus to duration.
func applyAdjustments(base decimal.Decimal, adjustments []models.PriceAdjustment) (decimal.Decimal, int, models.DiscountBreakdown) {
	bd := models.DiscountBreakdown{Source: models.QuoteSourceNone, DiscountPercent: decimal.Zero, DiscountAmount: decimal.Zero}

	var manual *models.PriceAdjustment
	var discount, bonus *models.PriceAdjustment
	discounts, bonuses, manuals := 0, 0, 0
	for i := range adjustments {
		a := &adjustments[i]
		switch a.Type {
		case models.AdjustmentManual:
			manuals++
			manual = a
		case models.AdjustmentDiscount:
			discounts++
			if discount == nil || a.DiscountPercent.GreaterThan(discount.DiscountPercent) {
				discount = a
			}
		case models.AdjustmentBonus:
			bonuses++
			if bonus == nil || a.BonusMinutes > bonus.BonusMinutes {
				bonus = a
			}
		}
	}

	if manual != nil {
		price := *manual.ManualPrice
		bd.Source = models.QuoteSourceManual
		bd.ManualPrice = &price
		bd.DiscountAmount = base.Sub(price)
		bd.Applied = append(bd.Applied, label(manual, "manual price "+price.StringFixed(2)))
		if manuals > 1 {
			bd.Warnings = append(bd.Warnings, "multiple manual overrides given, the last one applies")
		}
		if discounts+bonuses > 0 {
			bd.Warnings = append(bd.Warnings, "promotional adjustments ignored: manual override takes precedence")
		}
		return price, 0, bd
	}

	final := base
	if discount != nil {
		amount := base.Mul(discount.DiscountPercent).DivRound(hundred, moneyUnit)
		final = base.Sub(amount)
		bd.Source = models.QuoteSourcePromotional
		bd.DiscountPercent = discount.DiscountPercent
		bd.DiscountAmount = amount
		bd.Applied = append(bd.Applied, label(discount, discount.DiscountPercent.String()+"% off"))
		if discounts > 1 {
			bd.Warnings = append(bd.Warnings, "several discounts given, only the highest applies")
		}
	}
	bonusMinutes := 0
	if bonus != nil {
		bonusMinutes = bonus.BonusMinutes
		bd.Source = models.QuoteSourcePromotional
		bd.BonusMinutes = bonusMinutes
		bd.Applied = append(bd.Applied, label(bonus, fmt.Sprintf("+%d bonus minutes", bonusMinutes)))
		if bonuses > 1 {
			bd.Warnings = append(bd.Warnings, "several bonuses given, only the longest applies")
		}
	}
	return final, bonusMinutes, bd
}

func label(a *models.PriceAdjustment, fallback string) string {
	if a.Label != "" {
		return a.Label
	}
	return fallback
}

func (p *pricingResolver) ListRules(ctx context.Context, category string, kind models.RuleKind) ([]models.PricingRule, error) {
	var rules []models.PricingRule
	err := p.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		rules, err = tx.Pricing().ListRules(ctx, category, kind)
		return err
	})
	return rules, err
}

func (p *pricingResolver) validateRule(rule *models.PricingRule) error {
	if _, ok := p.rt.Settings.Category(rule.Category); !ok {
		return validationError("unknown category '%s'", rule.Category)
	}
	if !models.IsValidRuleKind(string(rule.Kind)) {
		return validationError("invalid rule kind '%s'", rule.Kind)
	}
	if rule.DurationMinutes <= 0 {
		return validationError("duration must be positive")
	}
	if limit := p.rt.Settings.MaxPersonsFor(rule.Category); rule.PersonCount < 1 || rule.PersonCount > limit {
		return validationError("person count %d outside 1..%d for %s", rule.PersonCount, limit, rule.Category)
	}
	if rule.Price.IsNegative() {
		return validationError("price cannot be negative")
	}
	return nil
}

func (p *pricingResolver) UpsertRule(ctx context.Context, actor models.Actor, req UpsertRuleRequest) (*models.PricingRule, error) {
	d, err := models.ParseDurationLabel(req.Duration)
	if err != nil {
		return nil, validationError("%v", err)
	}
	rule := &models.PricingRule{
		ID:              uuid.NewString(),
		Kind:            models.RuleKind(req.Kind),
		Category:        req.Category,
		DurationMinutes: int(d / time.Minute),
		PersonCount:     req.PersonCount,
		Price:           req.Price,
		UpdatedAt:       p.rt.now(),
	}
	if rule.Kind == "" {
		rule.Kind = models.RuleKindRegular
	}
	if rule.PersonCount == 0 {
		rule.PersonCount = 1
	}
	if err := p.validateRule(rule); err != nil {
		return nil, err
	}
	if err := p.rt.runTx(ctx, func(tx repositories.Tx) error {
		return tx.Pricing().UpsertRule(ctx, rule)
	}); err != nil {
		return nil, err
	}
	p.rt.audit(ctx, actor, "pricing.rule_saved", "pricing_rule", rule.ID,
		fmt.Sprintf("%s %s %s x%d = %s", rule.Kind, rule.Category, models.DurationLabel(rule.DurationMinutes), rule.PersonCount, rule.Price.StringFixed(2)))
	return rule, nil
}

func (p *pricingResolver) DeleteRule(ctx context.Context, actor models.Actor, id string) error {
	err := p.rt.runTx(ctx, func(tx repositories.Tx) error {
		return tx.Pricing().DeleteRule(ctx, id)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNoPricingRuleFound, id)
	}
	if err != nil {
		return err
	}
	p.rt.audit(ctx, actor, "pricing.rule_deleted", "pricing_rule", id, "")
	return nil
}

func (p *pricingResolver) ListHappyHours(ctx context.Context, category string) ([]models.HappyHourConfig, error) {
	var configs []models.HappyHourConfig
	err := p.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		configs, err = tx.Pricing().ListHappyHours(ctx, category)
		return err
	})
	return configs, err
}

func (p *pricingResolver) UpsertHappyHour(ctx context.Context, actor models.Actor, req UpsertHappyHourRequest) (*models.HappyHourConfig, error) {
	if _, ok := p.rt.Settings.Category(req.Category); !ok {
		return nil, validationError("unknown category '%s'", req.Category)
	}
	cfg := &models.HappyHourConfig{
		ID:        uuid.NewString(),
		Category:  req.Category,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Enabled:   req.Enabled == nil || *req.Enabled,
		UpdatedAt: p.rt.now(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, validationError("%v", err)
	}
	if err := p.rt.runTx(ctx, func(tx repositories.Tx) error {
		return tx.Pricing().UpsertHappyHour(ctx, cfg)
	}); err != nil {
		return nil, err
	}
	p.rt.audit(ctx, actor, "pricing.happy_hour_saved", "happy_hour", cfg.ID,
		fmt.Sprintf("%s %s-%s enabled=%t", cfg.Category, cfg.StartTime, cfg.EndTime, cfg.Enabled))
	return cfg, nil
}

func (p *pricingResolver) Seed(ctx context.Context, rules []models.PricingRule, happyHours []models.HappyHourConfig) error {
	now := p.rt.now()
	return p.rt.runTx(ctx, func(tx repositories.Tx) error {
		for i := range rules {
			rule := rules[i]
			if err := p.validateRule(&rule); err != nil {
				return err
			}
			rule.UpdatedAt = now
			if err := tx.Pricing().UpsertRule(ctx, &rule); err != nil {
				return err
			}
		}
		for i := range happyHours {
			cfg := happyHours[i]
			cfg.UpdatedAt = now
			if err := tx.Pricing().UpsertHappyHour(ctx, &cfg); err != nil {
				return err
			}
		}
		return nil
	})
}
