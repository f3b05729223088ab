package model

import (
	"fmt"
	"strings"
	"time"
)

// UserType is the coarse permission class of an account.  It decides who may
// create events or propose bookings; it is distinct from RoleCategory, which
// names the concrete skill a person is booked for.
type UserType string

const (
	UserTypeManager          UserType = "manager"
	UserTypeMusicalDirector  UserType = "musical_director"
	UserTypeHeadOfSound      UserType = "head_of_sound"
	UserTypeMusician         UserType = "musician"
	UserTypeSoundEngineer    UserType = "sound_engineer"
	UserTypeLightingEngineer UserType = "lighting_engineer"
)

// BookingCoordinators may propose bookings and read booking needs.
var BookingCoordinators = []UserType{UserTypeMusicalDirector, UserTypeHeadOfSound}

// EventCoordinators may create, update and delete events.
var EventCoordinators = []UserType{UserTypeManager}

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeManager, UserTypeMusicalDirector, UserTypeHeadOfSound,
		UserTypeMusician, UserTypeSoundEngineer, UserTypeLightingEngineer:
		return true
	}
	return false
}

// Categories returns the role categories a person of this type may register
// with.  Coordinators have none.
func (t UserType) Categories() []RoleCategory {
	switch t {
	case UserTypeMusician:
		return []RoleCategory{RoleDrums, RoleGuitar, RoleBass, RoleKeys, RoleHorn, RoleVocal, RoleOther}
	case UserTypeSoundEngineer:
		return []RoleCategory{RoleFOHEngineer, RoleMonitorEngineer, RoleSystemTech}
	case UserTypeLightingEngineer:
		return []RoleCategory{RoleLightingTech, RoleLightingDesigner}
	}
	return nil
}

// Allows reports whether a person of type t may hold category r.  The empty
// category is only allowed for types without categories.
func (t UserType) Allows(r RoleCategory) bool {
	cats := t.Categories()
	if r == RoleNone {
		return len(cats) == 0
	}
	for _, c := range cats {
		if c == r {
			return true
		}
	}
	return false
}

// RoleCategory is a person's single concrete skill tag.  Bookings match it by
// exact equality against the requested position.
type RoleCategory string

const (
	RoleNone             RoleCategory = ""
	RoleDrums            RoleCategory = "Drums"
	RoleGuitar           RoleCategory = "Guitar"
	RoleBass             RoleCategory = "Bass"
	RoleKeys             RoleCategory = "Keys"
	RoleHorn             RoleCategory = "Horn"
	RoleVocal            RoleCategory = "Vocal"
	RoleOther            RoleCategory = "Other"
	RoleFOHEngineer      RoleCategory = "FOH Engineer"
	RoleMonitorEngineer  RoleCategory = "Monitor Engineer"
	RoleSystemTech       RoleCategory = "System Tech"
	RoleLightingTech     RoleCategory = "Lighting Tech"
	RoleLightingDesigner RoleCategory = "Lighting Designer"
)

var roleCategories = map[RoleCategory]struct{}{
	RoleDrums: {}, RoleGuitar: {}, RoleBass: {}, RoleKeys: {}, RoleHorn: {}, RoleVocal: {}, RoleOther: {},
	RoleFOHEngineer: {}, RoleMonitorEngineer: {}, RoleSystemTech: {},
	RoleLightingTech: {}, RoleLightingDesigner: {},
}

// Valid reports whether r is a known, non-empty category.
func (r RoleCategory) Valid() bool {
	_, ok := roleCategories[r]
	return ok
}

// ParseRoleCategory trims s and checks it against the closed set.  Matching is
// case-sensitive: "guitar" is a typo, not a synonym.
func ParseRoleCategory(s string) (RoleCategory, error) {
	r := RoleCategory(strings.TrimSpace(s))
	if !r.Valid() {
		return RoleNone, fmt.Errorf("unknown role category %q", s)
	}
	return r, nil
}

// Label is used in human-readable messages where a missing category must
// still read naturally.
func (r RoleCategory) Label() string {
	if r == RoleNone {
		return "no role category"
	}
	return string(r)
}

// Person mirrors a row of the users table.  PasswordHash never leaves the
// process.
type Person struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"`
	UserType         UserType     `json:"user_type"`
	RoleCategory     RoleCategory `json:"role_category,omitempty"`
	Contact          string       `json:"contact"`
	EmergencyContact *string      `json:"emergency_contact,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// PersonSummary holds the display fields joined onto availability, booking
// and candidate listings.
type PersonSummary struct {
	Name             string       `json:"name"`
	Email            string       `json:"email,omitempty"`
	RoleCategory     RoleCategory `json:"role_category,omitempty"`
	Contact          string       `json:"contact"`
	EmergencyContact *string      `json:"emergency_contact,omitempty"`
}

// Summary returns p's display fields.
func (p *Person) Summary() PersonSummary {
	return PersonSummary{
		Name:             p.Name,
		Email:            p.Email,
		RoleCategory:     p.RoleCategory,
		Contact:          p.Contact,
		EmergencyContact: p.EmergencyContact,
	}
}
