package models

import "time"

// SessionGroup links bookings rented together under one code. It does not own
// its members; MemberIDs are plain back-references.
type SessionGroup struct {
	ID          string      `json:"id" db:"id"`
	GroupCode   string      `json:"group_code" db:"group_code"`
	GroupName   string      `json:"group_name" db:"group_name"`
	Category    string      `json:"category" db:"category"`
	BookingType BookingType `json:"booking_type" db:"booking_type"`
	MemberIDs   []string    `json:"member_ids" db:"member_ids"`
	DissolvedAt *time.Time  `json:"dissolved_at,omitempty" db:"dissolved_at"`
	Version     int64       `json:"version" db:"version"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// HasMember reports whether bookingID already belongs to the group.
func (g *SessionGroup) HasMember(bookingID string) bool {
	for _, id := range g.MemberIDs {
		if id == bookingID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (g SessionGroup) Clone() SessionGroup {
	c := g
	c.MemberIDs = append([]string(nil), g.MemberIDs...)
	c.DissolvedAt = cloneTime(g.DissolvedAt)
	return c
}
