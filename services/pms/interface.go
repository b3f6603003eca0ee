package pms

import (
	"context"
	"time"

	"innkeeper/models"
	"innkeeper/services/cache"
	"innkeeper/services/resilience"

	"go.uber.org/zap"
)

// Adapter is the resilient PMS surface exposed to the conversation
// orchestrator. It layers cache-aside reads, circuit breaking and stale
// fallback on top of the raw Client.
type Adapter interface {
	CheckAvailability(ctx context.Context, q models.AvailabilityQuery) ([]models.RoomOffer, error)
	CreateReservation(ctx context.Context, req models.ReservationRequest) (*models.Confirmation, error)
	CancelReservation(ctx context.Context, bookingID, reason string) (bool, error)
	CheckLateCheckoutAvailability(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutQuote, error)
	ConfirmLateCheckout(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutResult, error)
}

// DefaultAdapter implements Adapter.
type DefaultAdapter struct {
	Client          Client
	Cache           cache.Store
	Breaker         *resilience.Breaker
	AvailabilityTTL time.Duration
	LateCheckoutTTL time.Duration
	SnapshotTTL     time.Duration
	Logger          *zap.Logger
}
