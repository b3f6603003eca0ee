package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"innkeeper/models"

	"golang.org/x/time/rate"
)

const dateLayout = "2006-01-02"

// Client is the consumed PMS surface. Implementations must return an
// *AuthError for credential rejections so callers can distinguish them from
// transport failures.
type Client interface {
	CheckAvailability(ctx context.Context, q models.AvailabilityQuery) ([]models.RoomOffer, error)
	CreateBooking(ctx context.Context, req models.ReservationRequest) (*models.Confirmation, error)
	CancelBooking(ctx context.Context, bookingID, reason string) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	CheckLateCheckout(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutQuote, error)
	ConfirmLateCheckout(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutResult, error)
}

// HTTPClient talks to the PMS REST API. Outbound calls are rate limited
// because the PMS meters API usage per tenant.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// NewHTTPClient builds a PMS client with the given base URL and credentials.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, perSecond float64, burst int) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (c *HTTPClient) CheckAvailability(ctx context.Context, q models.AvailabilityQuery) ([]models.RoomOffer, error) {
	params := url.Values{}
	params.Set("check_in", q.CheckIn.Format(dateLayout))
	params.Set("check_out", q.CheckOut.Format(dateLayout))
	params.Set("guests", fmt.Sprintf("%d", q.Guests))
	if q.RoomType != "" {
		params.Set("room_type", q.RoomType)
	}

	var offers []models.RoomOffer
	if err := c.do(ctx, http.MethodGet, "/availability?"+params.Encode(), nil, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (c *HTTPClient) CreateBooking(ctx context.Context, req models.ReservationRequest) (*models.Confirmation, error) {
	var conf models.Confirmation
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *HTTPClient) CancelBooking(ctx context.Context, bookingID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, "/bookings/"+bookingID+"/cancel", body, nil)
}

func (c *HTTPClient) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings/"+bookingID, nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *HTTPClient) CheckLateCheckout(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutQuote, error) {
	params := url.Values{}
	params.Set("requested_time", requestedTime)

	var quote models.LateCheckoutQuote
	if err := c.do(ctx, http.MethodGet, "/bookings/"+reservationID+"/late-checkout?"+params.Encode(), nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (c *HTTPClient) ConfirmLateCheckout(ctx context.Context, reservationID, requestedTime string) (*models.LateCheckoutResult, error) {
	body := map[string]string{"requested_time": requestedTime}

	var result models.LateCheckoutResult
	if err := c.do(ctx, http.MethodPost, "/bookings/"+reservationID+"/late-checkout", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs one rate-limited request and maps the response onto the error
// taxonomy: 401/403 become AuthError, 4xx become ValidationError, transport
// problems and 5xx become NetworkError.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		raw, _ := io.ReadAll(resp.Body)
		return &AuthError{Status: resp.StatusCode, Message: string(raw)}
	case resp.StatusCode >= 500:
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(resp.Body)
		return &ValidationError{Field: "request", Message: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}
	return nil
}
