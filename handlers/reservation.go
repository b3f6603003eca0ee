package handlers

import (
	"net/http"
	"time"

	"innkeeper/config"
	"innkeeper/models"
	"innkeeper/services/pms"
	"innkeeper/services/reslock"
	"innkeeper/services/session"
	"innkeeper/utils"

	"github.com/gin-gonic/gin"
)

// ReservationHandler exposes the resilience layer to the conversation
// orchestrator over a thin internal API.
type ReservationHandler struct {
	Adapter  pms.Adapter
	Locks    reslock.Service
	Sessions session.Service
}

func NewReservationHandler(adapter pms.Adapter, locks reslock.Service, sessions session.Service) *ReservationHandler {
	return &ReservationHandler{Adapter: adapter, Locks: locks, Sessions: sessions}
}

type availabilityRequest struct {
	CheckIn  string `form:"checkIn" binding:"required"`
	CheckOut string `form:"checkOut" binding:"required"`
	Guests   int    `form:"guests" binding:"required"`
	RoomType string `form:"roomType"`
}

func (h *ReservationHandler) CheckAvailabilityHandler(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid availability query", err.Error())
		return
	}
	checkIn, err := time.Parse("2006-01-02", req.CheckIn)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid checkIn date", err.Error())
		return
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOut)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid checkOut date", err.Error())
		return
	}

	offers, err := h.Adapter.CheckAvailability(c.Request.Context(), models.AvailabilityQuery{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   req.Guests,
		RoomType: req.RoomType,
	})
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Availability lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

func (h *ReservationHandler) CreateReservationHandler(c *gin.Context) {
	var req models.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid reservation payload", err.Error())
		return
	}

	// Hold the room before committing to the PMS.
	ttl := time.Duration(config.AppConfig.LockTTLSeconds) * time.Second
	lockKey, err := h.Locks.Acquire(c.Request.Context(),
		req.RoomID, req.CheckIn, req.CheckOut, req.SessionID, req.UserID, ttl)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Reservation lock failed", err.Error())
		return
	}
	if lockKey == "" {
		c.JSON(http.StatusConflict, gin.H{"message": "Room is being booked by another guest right now."})
		return
	}
	defer func() {
		if _, rerr := h.Locks.Release(c.Request.Context(), lockKey); rerr != nil {
			utils.GetLogger().Sugar().Warnf("failed to release lock %s: %v", lockKey, rerr)
		}
	}()

	conf, err := h.Adapter.CreateReservation(c.Request.Context(), req)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Reservation failed", err.Error())
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (h *ReservationHandler) CancelReservationHandler(c *gin.Context) {
	id := c.Param("id")
	reason := c.Query("reason")

	ok, err := h.Adapter.CancelReservation(c.Request.Context(), id, reason)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Cancellation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": ok})
}

func (h *ReservationHandler) CheckLateCheckoutHandler(c *gin.Context) {
	id := c.Param("id")
	requested := c.Query("requestedTime")
	if requested == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing requestedTime", "query parameter requestedTime is required")
		return
	}

	quote, err := h.Adapter.CheckLateCheckoutAvailability(c.Request.Context(), id, requested)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Late checkout lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *ReservationHandler) ConfirmLateCheckoutHandler(c *gin.Context) {
	id := c.Param("id")
	requested := c.Query("requestedTime")
	if requested == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing requestedTime", "query parameter requestedTime is required")
		return
	}

	result, err := h.Adapter.ConfirmLateCheckout(c.Request.Context(), id, requested)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Late checkout confirmation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

type sessionRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Canal    string `json:"canal" binding:"required"`
	TenantID string `json:"tenantId"`
}

func (h *ReservationHandler) GetOrCreateSessionHandler(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid session request", err.Error())
		return
	}

	record, err := h.Sessions.GetOrCreate(c.Request.Context(), req.UserID, req.Canal, req.TenantID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Session lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *ReservationHandler) UpdateSessionHandler(c *gin.Context) {
	userID := c.Param("userId")
	tenantID := c.Query("tenantId")

	var record models.GuestSession
	if err := c.ShouldBindJSON(&record); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid session record", err.Error())
		return
	}

	if err := h.Sessions.Update(c.Request.Context(), userID, &record, tenantID); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Session update failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}
