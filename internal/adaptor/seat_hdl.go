package adaptor

import (
	"net/http"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SeatHandler struct {
	service usecase.SeatService
	log     *zap.Logger
}

func NewSeatHandler(service usecase.SeatService, log *zap.Logger) *SeatHandler {
	return &SeatHandler{
		service: service,
		log:     log.With(zap.String("handler", "seat")),
	}
}

// HoldSeats handles POST /api/trips/{id}/holds
func (h *SeatHandler) HoldSeats(w http.ResponseWriter, r *http.Request) {
	var req request.HoldSeatsRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	tripID := chi.URLParam(r, "id")
	result, err := h.service.HoldSeats(r.Context(), tripID, req.SeatIDs, req.UserID, entity.Channel(req.Channel))
	if err != nil {
		handleServiceError(h.log, w, err, "hold seats")
		return
	}

	if !result.Success {
		utils.ResponseConflict(w, "Seats unavailable", response.HoldResponse{
			Success:       false,
			ConflictSeats: result.ConflictSeats,
		})
		return
	}

	remaining := h.service.GetLockCountdown(r.Context(), result.LockID)
	utils.ResponseCreated(w, "success", response.HoldResponse{
		Success:          true,
		LockID:           result.LockID.String(),
		ExpiresAt:        result.ExpiresAt,
		RemainingSeconds: int64(remaining / time.Second),
	})
}

// GetHold handles GET /api/holds/{lockID}
func (h *SeatHandler) GetHold(w http.ResponseWriter, r *http.Request) {
	lockID, ok := parseUUIDParam(w, chi.URLParam(r, "lockID"), "lock ID")
	if !ok {
		return
	}

	lock, err := h.service.GetLock(r.Context(), lockID)
	if err != nil {
		handleServiceError(h.log, w, err, "get hold")
		return
	}

	utils.ResponseSuccess(w, "success", response.LockToResponse(lock, h.service.GetLockCountdown(r.Context(), lockID)))
}

// ExtendHold handles POST /api/holds/{lockID}/extend
func (h *SeatHandler) ExtendHold(w http.ResponseWriter, r *http.Request) {
	lockID, ok := parseUUIDParam(w, chi.URLParam(r, "lockID"), "lock ID")
	if !ok {
		return
	}

	var req request.ExtendHoldRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	if !h.service.ExtendLock(r.Context(), lockID, time.Duration(req.ExtraSeconds)*time.Second) {
		h.log.Info("Extend rejected, hold not active", zap.String("lock_id", lockID.String()))
		utils.ResponseConflict(w, "Hold is no longer active", nil)
		return
	}

	lock, err := h.service.GetLock(r.Context(), lockID)
	if err != nil {
		handleServiceError(h.log, w, err, "extend hold")
		return
	}

	utils.ResponseSuccess(w, "success", response.LockToResponse(lock, h.service.GetLockCountdown(r.Context(), lockID)))
}

// GetUserHold handles GET /api/users/{userID}/hold
func (h *SeatHandler) GetUserHold(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	lock, err := h.service.GetUserActiveLock(r.Context(), userID)
	if err != nil {
		handleServiceError(h.log, w, err, "get user hold")
		return
	}
	if lock == nil {
		utils.ResponseNotFound(w, "No active hold")
		return
	}

	utils.ResponseSuccess(w, "success", response.LockToResponse(lock, h.service.GetLockCountdown(r.Context(), lock.ID)))
}

// ReleaseUserHold handles DELETE /api/users/{userID}/hold
func (h *SeatHandler) ReleaseUserHold(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReleaseUserLocks(r.Context(), chi.URLParam(r, "userID")); err != nil {
		handleServiceError(h.log, w, err, "release user hold")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
