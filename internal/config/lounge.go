package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"gaming_lounge_backend/internal/models"
)

// ErrInvalidLounge wraps every problem found in the layout file.
var ErrInvalidLounge = errors.New("invalid lounge configuration")

// Lounge is the parsed layout file: the settings record plus the seed rows
// for the pricing tables and happy-hour windows.
type Lounge struct {
	Settings   models.LoungeSettings
	Rules      []models.PricingRule
	HappyHours []models.HappyHourConfig
}

type loungeFile struct {
	Timezone           string         `yaml:"timezone"`
	RequireFullPayment bool           `yaml:"require_full_payment"`
	Categories         []categoryFile `yaml:"categories"`
	Pricing            []ruleFile     `yaml:"pricing"`
	HappyHours         []windowFile   `yaml:"happy_hours"`
}

type categoryFile struct {
	Name       string        `yaml:"name"`
	MaxPersons int           `yaml:"max_persons"`
	SeatCount  int           `yaml:"seat_count"`
	SeatPrefix string        `yaml:"seat_prefix"`
	Seats      []models.Seat `yaml:"seats"`
}

type ruleFile struct {
	Category string `yaml:"category"`
	Kind     string `yaml:"kind"`
	Duration string `yaml:"duration"`
	Persons  int    `yaml:"persons"`
	Price    string `yaml:"price"`
}

type windowFile struct {
	Category string `yaml:"category"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Enabled  *bool  `yaml:"enabled"`
}

// LoadLounge reads and validates the layout file at path.
func LoadLounge(path string) (*Lounge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read lounge file %s: %w", path, err)
	}
	return ParseLounge(data)
}

// ParseLounge validates a layout document.
func ParseLounge(data []byte) (*Lounge, error) {
	var f loungeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLounge, err)
	}

	loc := time.Local
	if f.Timezone != "" {
		l, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidLounge, f.Timezone, err)
		}
		loc = l
	}

	lounge := &Lounge{Settings: models.LoungeSettings{RequireFullPayment: f.RequireFullPayment, Location: loc}}

	for _, c := range f.Categories {
		cat, err := c.toCategory()
		if err != nil {
			return nil, err
		}
		if _, dup := lounge.Settings.Category(cat.Name); dup {
			return nil, fmt.Errorf("%w: category %q declared twice", ErrInvalidLounge, cat.Name)
		}
		lounge.Settings.Categories = append(lounge.Settings.Categories, cat)
	}

	for i, r := range f.Pricing {
		rule, err := r.toRule(lounge.Settings)
		if err != nil {
			return nil, fmt.Errorf("%w: pricing entry %d: %v", ErrInvalidLounge, i+1, err)
		}
		lounge.Rules = append(lounge.Rules, rule)
	}

	for i, w := range f.HappyHours {
		if _, ok := lounge.Settings.Category(w.Category); !ok {
			return nil, fmt.Errorf("%w: happy hour %d: unknown category %q", ErrInvalidLounge, i+1, w.Category)
		}
		cfg := models.HappyHourConfig{
			ID:        uuid.NewString(),
			Category:  w.Category,
			StartTime: w.Start,
			EndTime:   w.End,
			Enabled:   w.Enabled == nil || *w.Enabled,
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: happy hour %d: %v", ErrInvalidLounge, i+1, err)
		}
		lounge.HappyHours = append(lounge.HappyHours, cfg)
	}
	return lounge, nil
}

func (c categoryFile) toCategory() (models.DeviceCategory, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return models.DeviceCategory{}, fmt.Errorf("%w: category without a name", ErrInvalidLounge)
	}
	cat := models.DeviceCategory{Name: name, MaxPersons: c.MaxPersons, Seats: c.Seats}
	if cat.MaxPersons <= 0 {
		cat.MaxPersons = 1
	}
	if len(cat.Seats) == 0 {
		prefix := c.SeatPrefix
		if prefix == "" {
			prefix = name
		}
		for n := 1; n <= c.SeatCount; n++ {
			cat.Seats = append(cat.Seats, models.Seat{Number: n, Name: fmt.Sprintf("%s-%d", prefix, n)})
		}
	}
	if len(cat.Seats) == 0 {
		return models.DeviceCategory{}, fmt.Errorf("%w: category %q has no seats", ErrInvalidLounge, name)
	}
	seen := map[int]bool{}
	for _, s := range cat.Seats {
		if s.Number <= 0 || seen[s.Number] {
			return models.DeviceCategory{}, fmt.Errorf("%w: category %q has an invalid or repeated seat number %d", ErrInvalidLounge, name, s.Number)
		}
		seen[s.Number] = true
	}
	return cat, nil
}

func (r ruleFile) toRule(settings models.LoungeSettings) (models.PricingRule, error) {
	if _, ok := settings.Category(r.Category); !ok {
		return models.PricingRule{}, fmt.Errorf("unknown category %q", r.Category)
	}
	kind := models.RuleKind(r.Kind)
	if r.Kind == "" {
		kind = models.RuleKindRegular
	}
	if !models.IsValidRuleKind(string(kind)) {
		return models.PricingRule{}, fmt.Errorf("unknown kind %q", r.Kind)
	}
	d, err := models.ParseDurationLabel(r.Duration)
	if err != nil {
		return models.PricingRule{}, err
	}
	persons := r.Persons
	if persons == 0 {
		persons = 1
	}
	if persons < 1 || persons > settings.MaxPersonsFor(r.Category) {
		return models.PricingRule{}, fmt.Errorf("person count %d outside 1..%d for %s", persons, settings.MaxPersonsFor(r.Category), r.Category)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil || price.IsNegative() {
		return models.PricingRule{}, fmt.Errorf("invalid price %q", r.Price)
	}
	return models.PricingRule{
		ID:              uuid.NewString(),
		Kind:            kind,
		Category:        r.Category,
		DurationMinutes: int(d / time.Minute),
		PersonCount:     persons,
		Price:           price,
	}, nil
}
