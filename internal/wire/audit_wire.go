package wire

import (
	"transit-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAudit(r chi.Router, auditHandler *adaptor.AuditHandler, log *zap.Logger) {
	r.Route("/api/audit", func(r chi.Router) {
		// GET /api/audit - Query entries, newest first
		r.Get("/", auditHandler.GetAuditLog)

		// GET /api/audit/verify - Recompute the hash chain
		r.Get("/verify", auditHandler.VerifyChain)
	})
}
