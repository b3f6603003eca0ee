package pms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"innkeeper/models"
	"innkeeper/utils"

	"go.uber.org/zap"
)

const (
	availabilityPrefix = "availability:"
	lateCheckoutPrefix = "latecheckout:"
	snapshotSuffix     = ":snapshot"
	staleSuffix        = ":stale"
)

// availabilityKey builds the cache key for one availability query.
func availabilityKey(q models.AvailabilityQuery) string {
	roomType := q.RoomType
	if roomType == "" {
		roomType = "any"
	}
	return fmt.Sprintf("%s%s:%s:%d:%s",
		availabilityPrefix,
		q.CheckIn.Format(dateLayout),
		q.CheckOut.Format(dateLayout),
		q.Guests,
		roomType,
	)
}

func lateCheckoutKey(reservationID, requestedTime string) string {
	return fmt.Sprintf("%s%s:%s", lateCheckoutPrefix, reservationID, requestedTime)
}

// CheckAvailability serves room offers cache-aside. A fresh hit never touches
// the breaker or the PMS. On PMS failure (except auth), the last successfully
// fetched value for the same key is served marked potentially stale; with no
// fallback value the caller gets an empty result instead of an error.
func (a *DefaultAdapter) CheckAvailability(ctx context.Context, q models.AvailabilityQuery) ([]models.RoomOffer, error) {
	key := availabilityKey(q)

	if raw, err := a.Cache.Get(ctx, key); err == nil {
		var offers []models.RoomOffer
		if jerr := json.Unmarshal([]byte(raw), &offers); jerr == nil {
			utils.CacheLookups.WithLabelValues("availability", "hit").Inc()
			return offers, nil
		}
		// Unparseable entry: drop it and refetch.
		if derr := a.Cache.Delete(ctx, key); derr != nil {
			a.Logger.Warn("failed to purge corrupt availability entry", zap.String("key", key), zap.Error(derr))
		}
	}
	utils.CacheLookups.WithLabelValues("availability", "miss").Inc()

	var offers []models.RoomOffer
	err := a.Breaker.Do(ctx, func(ctx context.Context) error {
		fetched, ferr := a.Client.CheckAvailability(ctx, q)
		if ferr != nil {
			return ferr
		}
		if verr := validateOffers(fetched); verr != nil {
			return verr
		}
		offers = fetched
		return nil
	})
	if err == nil {
		a.storeFresh(ctx, key, offers, a.AvailabilityTTL)
		return offers, nil
	}

	// Authoritative rejections bypass every fallback.
	if IsAuthError(err) || errors.Is(err, ErrInvalidResponseFormat) {
		return nil, err
	}

	if raw, gerr := a.Cache.Get(ctx, key+snapshotSuffix); gerr == nil {
		var stale []models.RoomOffer
		if jerr := json.Unmarshal([]byte(raw), &stale); jerr == nil {
			for i := range stale {
				stale[i].PotentiallyStale = true
			}
			if serr := a.Cache.Set(ctx, key+staleSuffix, "1", a.SnapshotTTL); serr != nil {
				a.Logger.Warn("failed to set stale marker", zap.String("key", key), zap.Error(serr))
			}
			utils.CacheLookups.WithLabelValues("availability", "stale").Inc()
			a.Logger.Warn("serving stale availability after PMS failure",
				zap.String("key", key), zap.Error(err))
			return stale, nil
		}
	}

	a.Logger.Warn("PMS unavailable and no cached availability to fall back on",
		zap.String("key", key), zap.Error(err))
	return []models.RoomOffer{}, nil
}

// CreateReservation books through the PMS and, on success, invalidates every
// cached availability and late-checkout entry: a new booking can affect any
// date range for the room type, not just the requested one.
func (a *DefaultAdapter) CreateReservation(ctx context.Context, req models.ReservationRequest) (*models.Confirmation, error) {
	var conf *models.Confirmation
	err := a.Breaker.Do(ctx, func(ctx context.Context) error {
		created, cerr := a.Client.CreateBooking(ctx, req)
		if cerr != nil {
			return cerr
		}
		if created == nil || created.ConfirmationID == "" {
			return fmt.Errorf("%w: confirmation missing id", ErrInvalidResponseFormat)
		}
		conf = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.invalidateCaches(ctx)
	return conf, nil
}

// CancelReservation cancels through the PMS and invalidates all cached
// availability on success.
func (a *DefaultAdapter) CancelReservation(ctx context.Context, bookingID, reason string) (bool, error) {
	err := a.Breaker.Do(ctx, func(ctx context.Context) error {
		return a.Client.CancelBooking(ctx, bookingID, reason)
	})
	if err != nil {
		return false, err
	}

	a.invalidateCaches(ctx)
	return true, nil
}

// CheckLateCheckoutAvailability follows the same cache-then-fetch pattern as
// CheckAvailability, in its own key namespace with its own TTL.
func (a *DefaultAdapter) CheckLateCheckoutAvailability(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutQuote, error) {
	key := lateCheckoutKey(reservationID, requestedTime)

	if raw, err := a.Cache.Get(ctx, key); err == nil {
		var quote models.LateCheckoutQuote
		if jerr := json.Unmarshal([]byte(raw), &quote); jerr == nil {
			utils.CacheLookups.WithLabelValues("latecheckout", "hit").Inc()
			return &quote, nil
		}
		if derr := a.Cache.Delete(ctx, key); derr != nil {
			a.Logger.Warn("failed to purge corrupt late-checkout entry", zap.String("key", key), zap.Error(derr))
		}
	}
	utils.CacheLookups.WithLabelValues("latecheckout", "miss").Inc()

	var quote *models.LateCheckoutQuote
	err := a.Breaker.Do(ctx, func(ctx context.Context) error {
		fetched, ferr := a.Client.CheckLateCheckout(ctx, reservationID, requestedTime)
		if ferr != nil {
			return ferr
		}
		if fetched == nil || fetched.RequestedTime == "" {
			return fmt.Errorf("%w: late-checkout quote missing requested time", ErrInvalidResponseFormat)
		}
		quote = fetched
		return nil
	})
	if err == nil {
		if data, jerr := json.Marshal(quote); jerr == nil {
			a.writeThrough(ctx, key, string(data), a.LateCheckoutTTL)
		}
		return quote, nil
	}

	if IsAuthError(err) || errors.Is(err, ErrInvalidResponseFormat) {
		return nil, err
	}

	if raw, gerr := a.Cache.Get(ctx, key+snapshotSuffix); gerr == nil {
		var stale models.LateCheckoutQuote
		if jerr := json.Unmarshal([]byte(raw), &stale); jerr == nil {
			stale.PotentiallyStale = true
			if serr := a.Cache.Set(ctx, key+staleSuffix, "1", a.SnapshotTTL); serr != nil {
				a.Logger.Warn("failed to set stale marker", zap.String("key", key), zap.Error(serr))
			}
			utils.CacheLookups.WithLabelValues("latecheckout", "stale").Inc()
			return &stale, nil
		}
	}

	return nil, err
}

// ConfirmLateCheckout re-checks availability first and returns a structured
// failure instead of attempting a confirmation that is known to fail.
func (a *DefaultAdapter) ConfirmLateCheckout(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutResult, error) {
	quote, err := a.CheckLateCheckoutAvailability(ctx, reservationID, requestedTime)
	if err != nil {
		return nil, err
	}
	if !quote.Available {
		msg := quote.Message
		if msg == "" {
			msg = "late checkout is not available for the requested time"
		}
		return &models.LateCheckoutResult{
			Success:       false,
			ReservationID: reservationID,
			Message:       msg,
		}, nil
	}

	var result *models.LateCheckoutResult
	err = a.Breaker.Do(ctx, func(ctx context.Context) error {
		confirmed, cerr := a.Client.ConfirmLateCheckout(ctx, reservationID, requestedTime)
		if cerr != nil {
			return cerr
		}
		result = confirmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The confirmed checkout changes this reservation's quotes.
	if _, derr := a.Cache.DeletePattern(ctx, lateCheckoutPrefix+reservationID+":*"); derr != nil {
		a.Logger.Warn("failed to invalidate late-checkout cache", zap.String("reservation", reservationID), zap.Error(derr))
	}
	return result, nil
}

// storeFresh writes the validated offers under the freshness key, refreshes
// the long-lived snapshot used for stale fallback, and clears the stale
// marker. The write and the marker clear belong together: nobody should see a
// fresh value while a marker still claims degradation.
func (a *DefaultAdapter) storeFresh(ctx context.Context, key string, offers []models.RoomOffer, ttl time.Duration) {
	data, err := json.Marshal(offers)
	if err != nil {
		a.Logger.Error("failed to marshal offers for caching", zap.String("key", key), zap.Error(err))
		return
	}
	a.writeThrough(ctx, key, string(data), ttl)
}

func (a *DefaultAdapter) writeThrough(ctx context.Context, key, data string, ttl time.Duration) {
	if err := a.Cache.Set(ctx, key, data, ttl); err != nil {
		a.Logger.Warn("failed to cache PMS response", zap.String("key", key), zap.Error(err))
		return
	}
	if err := a.Cache.Set(ctx, key+snapshotSuffix, data, a.SnapshotTTL); err != nil {
		a.Logger.Warn("failed to refresh fallback snapshot", zap.String("key", key), zap.Error(err))
	}
	if err := a.Cache.Delete(ctx, key+staleSuffix); err != nil {
		a.Logger.Warn("failed to clear stale marker", zap.String("key", key), zap.Error(err))
	}
}

// invalidateCaches drops every cached availability and late-checkout key,
// walking all scan pages. Failures are logged but never fail the booking that
// triggered the invalidation.
func (a *DefaultAdapter) invalidateCaches(ctx context.Context) {
	for _, pattern := range []string{availabilityPrefix + "*", lateCheckoutPrefix + "*"} {
		deleted, err := a.Cache.DeletePattern(ctx, pattern)
		if err != nil {
			a.Logger.Error("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		a.Logger.Debug("invalidated cached PMS entries",
			zap.String("pattern", pattern), zap.Int("deleted", deleted))
	}
}

// validateOffers enforces the minimum shape of a PMS availability response.
func validateOffers(offers []models.RoomOffer) error {
	for i, o := range offers {
		if o.RoomID == "" || o.RoomType == "" {
			return fmt.Errorf("%w: offer %d missing room identity", ErrInvalidResponseFormat, i)
		}
		if o.PricePerNight <= 0 {
			return fmt.Errorf("%w: offer %d has invalid nightly price", ErrInvalidResponseFormat, i)
		}
	}
	return nil
}
