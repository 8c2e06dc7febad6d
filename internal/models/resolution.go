package models

// ResolutionStatus tells whether an identifier was already classified.
type ResolutionStatus string

const (
	// Known means the identifier was present in the role table.
	Known ResolutionStatus = "known"

	// AutoRegistered means the lookup just inserted the identifier
	// with RoleUndefined.
	AutoRegistered ResolutionStatus = "auto_registered"
)

// Resolution is the outcome of resolving one participant identifier.
type Resolution struct {
	// Identifier is the canonical (lowercase) participant identifier.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Role is the mapped role, RoleUndefined for new identifiers.
	Role string `json:"role" yaml:"role"`

	// HourlyRate is the wage for Role, 0 when the role has none.
	HourlyRate float64 `json:"hourly_rate" yaml:"hourly_rate"`

	Status ResolutionStatus `json:"status" yaml:"status"`

	// RateDefined is false when Role had no entry in the wage table.
	RateDefined bool `json:"rate_defined" yaml:"rate_defined"`
}
