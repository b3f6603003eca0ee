package models

import "time"

// ReservationRequest carries everything the PMS needs to create a booking.
type ReservationRequest struct {
	RoomID    string    `json:"roomId"`
	RoomType  string    `json:"roomType,omitempty"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	Guests    int       `json:"guests"`
	GuestName string    `json:"guestName"`
	SessionID string    `json:"sessionId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
}

// Confirmation is the PMS acknowledgement of a created booking.
type Confirmation struct {
	ConfirmationID string    `json:"confirmationId"`
	RoomID         string    `json:"roomId"`
	CheckIn        time.Time `json:"checkIn"`
	CheckOut       time.Time `json:"checkOut"`
	TotalPrice     float64   `json:"totalPrice"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Booking is the PMS view of an existing reservation.
type Booking struct {
	BookingID string    `json:"bookingId"`
	RoomID    string    `json:"roomId"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	GuestName string    `json:"guestName"`
	Status    string    `json:"status"`
}
