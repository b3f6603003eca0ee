package models

import "time"

// GuestSession holds conversational state for one guest on one channel.
type GuestSession struct {
	UserID       string         `json:"userId"`
	TenantID     string         `json:"tenantId,omitempty"`
	Canal        string         `json:"canal"` // chat channel the guest arrived on
	State        string         `json:"state"` // conversation state machine position
	Context      map[string]any `json:"context,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActivity time.Time      `json:"lastActivity"`
}

// Valid reports whether the record carries every required field. Records that
// fail this check are corrupt and must be purged, never served.
func (s *GuestSession) Valid() bool {
	return s.UserID != "" && s.Canal != "" && s.State != ""
}
