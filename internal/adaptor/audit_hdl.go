package adaptor

import (
	"net/http"
	"strings"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

type AuditHandler struct {
	service usecase.AuditService
	log     *zap.Logger
}

func NewAuditHandler(service usecase.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		log:     log.With(zap.String("handler", "audit")),
	}
}

// GetAuditLog handles GET /api/audit?booking_id=&pnr=&event=&actor_id=
func (h *AuditHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := request.AuditQueryRequest{
		BookingID: query.Get("booking_id"),
		PNR:       query.Get("pnr"),
		Event:     strings.ToUpper(query.Get("event")),
		ActorID:   query.Get("actor_id"),
	}

	entries, err := h.service.Query(r.Context(), entity.AuditFilter{
		BookingID: req.BookingID,
		PNR:       req.PNR,
		Event:     entity.AuditEvent(req.Event),
		ActorID:   req.ActorID,
	})
	if err != nil {
		handleServiceError(h.log, w, err, "query audit log")
		return
	}

	utils.ResponseSuccess(w, "success", response.AuditEntriesToResponse(entries))
}

// VerifyChain handles GET /api/audit/verify
func (h *AuditHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Verify(r.Context())
	if err != nil {
		handleServiceError(h.log, w, err, "verify audit chain")
		return
	}

	if !report.Valid {
		h.log.Error("Audit chain broken",
			zap.Uint64("broken_seq", report.BrokenSeq),
			zap.String("reason", report.Reason))
		utils.ResponseJSON(w, http.StatusConflict, false, "Audit chain broken", report, nil)
		return
	}

	utils.ResponseSuccess(w, "success", report)
}
