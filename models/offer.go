package models

import "time"

// AvailabilityQuery describes a room-availability lookup against the PMS.
// CheckIn/CheckOut form a half-open interval: the checkout day is exclusive.
type AvailabilityQuery struct {
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
	Guests   int       `json:"guests"`
	RoomType string    `json:"roomType,omitempty"` // empty means "any"
}

// RoomOffer is a single bookable room option returned by the PMS.
type RoomOffer struct {
	RoomID           string   `json:"roomId"`
	RoomType         string   `json:"roomType"`
	PricePerNight    float64  `json:"pricePerNight"`
	AvailableCount   int      `json:"availableCount"`
	MaxOccupancy     int      `json:"maxOccupancy"`
	Amenities        []string `json:"amenities,omitempty"`
	Images           []string `json:"images,omitempty"`
	PotentiallyStale bool     `json:"potentiallyStale,omitempty"`
}
