package domain

import "time"

// SystemSettings is the single tenant-wide settings document.
type SystemSettings struct {
	Values    map[string]any
	UpdatedBy *string
	UpdatedAt time.Time
}
