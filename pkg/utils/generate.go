package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== PNR ====================

const (
	pnrTimeModulus = 1_000_000
	pnrSeqModulus  = 10_000
)

// FormatPNR builds a booking reference: prefix, the last six digits of the
// unix millisecond clock, then a four-digit sequence.
// Example: LTR4821931000.
func FormatPNR(prefix string, now time.Time, seq int) string {
	ms := now.UnixMilli() % pnrTimeModulus
	return fmt.Sprintf("%s%06d%04d", strings.ToUpper(prefix), ms, seq%pnrSeqModulus)
}

// ==================== TICKET ====================

// GenerateTicketNumber formats TKT-YYYYMMDD-PNR-NN for the n-th seat
// (1-based) of a booking.
func GenerateTicketNumber(pnr string, issuedAt time.Time, n int) string {
	return fmt.Sprintf("TKT-%s-%s-%02d", issuedAt.Format("20060102"), pnr, n)
}

// GenerateGatewayReference returns an opaque reference the payment gateway
// echoes back in settlement callbacks.
func GenerateGatewayReference(method string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return fmt.Sprintf("%s-%s", method, uuid.NewString()[:8])
	}
	return fmt.Sprintf("%s-%09d", method, n.Int64())
}
