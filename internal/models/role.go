package models

import "fmt"

// RoleUndefined is assigned to identifiers nobody has classified yet.
const RoleUndefined = "undefined"

// RoleAssignment maps a participant identifier to a role.
type RoleAssignment struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Role       string `json:"role" yaml:"role"`
}

// WageRate maps a role to its hourly rate.
type WageRate struct {
	Role       string  `json:"role" yaml:"role"`
	HourlyRate float64 `json:"hourly_rate" yaml:"hourly_rate"`
}

// ValidateHourlyRate rejects rates below zero.
func ValidateHourlyRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeRate, rate)
	}
	return nil
}
