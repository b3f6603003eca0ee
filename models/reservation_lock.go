package models

import "time"

// ReservationLock represents an in-flight reservation attempt for a room over a
// half-open date interval [CheckIn, CheckOut).
type ReservationLock struct {
	LockKey  string    `json:"lockKey"`
	RoomID   string    `json:"roomId"`
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
	// Unix forms of the interval bounds, duplicated so the store can compare
	// intervals without date parsing.
	CheckInUnix    int64     `json:"checkInUnix"`
	CheckOutUnix   int64     `json:"checkOutUnix"`
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId"`
	TTLSeconds     int       `json:"ttlSeconds"`
	ExtensionCount int       `json:"extensionCount"`
	AcquiredAt     time.Time `json:"acquiredAt"`
}

// Lock audit event types.
const (
	LockEventAcquired = "acquired"
	LockEventConflict = "conflict"
	LockEventExtended = "extended"
	LockEventReleased = "released"
)

// LockAuditEntry is a durable record of a lock lifecycle transition.
type LockAuditEntry struct {
	ID        string    `json:"id" bson:"id"`
	EventType string    `json:"eventType" bson:"eventType"`
	LockKey   string    `json:"lockKey" bson:"lockKey"`
	Details   string    `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
