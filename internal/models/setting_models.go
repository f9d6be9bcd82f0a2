package models

import "time"

// Seat is one physical station inside a device category.
type Seat struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
}

// DeviceCategory is a kind of station (PS5, PC, VR...) and its seats.
type DeviceCategory struct {
	Name       string `json:"name" yaml:"name"`
	MaxPersons int    `json:"max_persons" yaml:"max_persons"`
	Seats      []Seat `json:"seats" yaml:"seats"`
}

// LoungeSettings is the single configuration record injected at startup.
type LoungeSettings struct {
	Categories         []DeviceCategory `json:"categories"`
	RequireFullPayment bool             `json:"require_full_payment"`
	Location           *time.Location   `json:"-"`
}

// Category looks up a device category by name.
func (s LoungeSettings) Category(name string) (DeviceCategory, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return DeviceCategory{}, false
}

// Seat looks up a seat by number in a category.
func (s LoungeSettings) Seat(category string, number int) (Seat, bool) {
	c, ok := s.Category(category)
	if !ok {
		return Seat{}, false
	}
	for _, seat := range c.Seats {
		if seat.Number == number {
			return seat, true
		}
	}
	return Seat{}, false
}

// MaxPersonsFor returns the person cap of a category; unknown or unset means 1.
func (s LoungeSettings) MaxPersonsFor(category string) int {
	c, ok := s.Category(category)
	if !ok || c.MaxPersons < 1 {
		return 1
	}
	return c.MaxPersons
}

// AdminSettings is the single "global" row guarding destructive operations.
type AdminSettings struct {
	ID                 string     `json:"id" db:"id"`
	AdminDeletePinHash *string    `json:"-" db:"admin_delete_pin_hash"`
	FailedAttempts     int        `json:"failed_attempts" db:"failed_attempts"`
	LockUntil          *time.Time `json:"lock_until,omitempty" db:"lock_until"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// AdminSettingsID is the fixed key of the AdminSettings row.
const AdminSettingsID = "global"
