package models

// LateCheckoutQuote answers "can this reservation check out late, and at what cost".
type LateCheckoutQuote struct {
	Available        bool    `json:"available"`
	Fee              float64 `json:"fee"`
	DailyRate        float64 `json:"dailyRate"`
	RequestedTime    string  `json:"requestedTime"`
	StandardCheckout string  `json:"standardCheckout"`
	NextBookingID    string  `json:"nextBookingId,omitempty"`
	Message          string  `json:"message,omitempty"`
	PotentiallyStale bool    `json:"potentiallyStale,omitempty"`
}

// LateCheckoutResult reports the outcome of a late-checkout confirmation.
type LateCheckoutResult struct {
	Success       bool    `json:"success"`
	ReservationID string  `json:"reservationId"`
	NewCheckout   string  `json:"newCheckout,omitempty"`
	Fee           float64 `json:"fee,omitempty"`
	Message       string  `json:"message,omitempty"`
}
