package usecase

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/codec"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// AuditRecord is what a component asks to be recorded. The audit service
// fills in identity, ordering and the hash chain.
type AuditRecord struct {
	Event     entity.AuditEvent
	BookingID string
	PNR       string
	Actor     entity.Actor
	Details   map[string]any
}

// ChainReport is the outcome of re-walking the hash chain.
type ChainReport struct {
	Entries   int    `json:"entries"`
	Valid     bool   `json:"valid"`
	BrokenSeq uint64 `json:"broken_seq,omitempty"`
	Reason    string `json:"reason,omitempty"`
	HeadHash  string `json:"head_hash,omitempty"`
}

type AuditService interface {
	// Record appends an entry. A non-nil error means nothing was written
	// and the caller must abandon its mutation.
	Record(ctx context.Context, rec AuditRecord) (*entity.AuditLogEntry, error)
	// Query returns matching entries, newest first.
	Query(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error)
	Verify(ctx context.Context) (*ChainReport, error)
}

type auditService struct {
	mu     sync.Mutex
	repo   repository.AuditRepository
	clock  clock.Clock
	loaded bool
	seq    uint64
	head   string
	log    *zap.Logger
}

func NewAuditService(repo repository.AuditRepository, clk clock.Clock, log *zap.Logger) AuditService {
	return &auditService{
		repo:  repo,
		clock: clk,
		log:   log.With(zap.String("service", "audit")),
	}
}

// auditPayload is the canonical, hashed form of an entry.
type auditPayload struct {
	Seq       uint64         `cbor:"seq"`
	ID        string         `cbor:"id"`
	Timestamp int64          `cbor:"ts"`
	Event     string         `cbor:"event"`
	BookingID string         `cbor:"booking_id"`
	PNR       string         `cbor:"pnr"`
	ActorID   string         `cbor:"actor_id"`
	ActorType string         `cbor:"actor_type"`
	Details   map[string]any `cbor:"details"`
}

func chainHash(prevHash string, payload []byte) (string, error) {
	prev, err := hex.DecodeString(prevHash)
	if err != nil {
		return "", fmt.Errorf("decode previous hash: %w", err)
	}
	h := blake3.New()
	h.Write(prev)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *auditService) loadHead(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	last, err := s.repo.Last(ctx)
	if err != nil {
		return err
	}
	if last != nil {
		s.seq = last.Seq
		s.head = last.Hash
	}
	s.loaded = true
	return nil
}

func (s *auditService) Record(ctx context.Context, rec AuditRecord) (*entity.AuditLogEntry, error) {
	if rec.Event == "" {
		return nil, fmt.Errorf("%w: event is required", ErrAudit)
	}
	if rec.Actor.ID == "" {
		rec.Actor = entity.SystemActor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadHead(ctx); err != nil {
		s.log.Error("Failed to load audit head", zap.Error(err))
		return nil, fmt.Errorf("%w: load head: %w", ErrAudit, err)
	}

	entry := &entity.AuditLogEntry{
		ID:        uuid.New(),
		Seq:       s.seq + 1,
		Timestamp: s.clock.Now().UTC(),
		Event:     rec.Event,
		BookingID: rec.BookingID,
		PNR:       rec.PNR,
		ActorID:   rec.Actor.ID,
		ActorType: rec.Actor.Type,
		Details:   rec.Details,
		Immutable: true,
		PrevHash:  s.head,
	}

	payload, err := codec.Marshal(auditPayload{
		Seq:       entry.Seq,
		ID:        entry.ID.String(),
		Timestamp: entry.Timestamp.UnixNano(),
		Event:     string(entry.Event),
		BookingID: entry.BookingID,
		PNR:       entry.PNR,
		ActorID:   entry.ActorID,
		ActorType: string(entry.ActorType),
		Details:   entry.Details,
	})
	if err != nil {
		s.log.Error("Failed to encode audit payload", zap.Error(err), zap.String("event", string(rec.Event)))
		return nil, fmt.Errorf("%w: encode %s: %w", ErrAudit, rec.Event, err)
	}
	entry.Payload = payload

	entry.Hash, err = chainHash(entry.PrevHash, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: hash %s: %w", ErrAudit, rec.Event, err)
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.log.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("event", string(rec.Event)),
			zap.String("pnr", rec.PNR),
		)
		return nil, fmt.Errorf("%w: append %s: %w", ErrAudit, rec.Event, err)
	}

	s.seq = entry.Seq
	s.head = entry.Hash

	s.log.Debug("Audit entry recorded",
		zap.Uint64("seq", entry.Seq),
		zap.String("event", string(entry.Event)),
		zap.String("pnr", entry.PNR),
	)
	return entry, nil
}

func (s *auditService) Query(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	entries, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *auditService) Verify(ctx context.Context) (*ChainReport, error) {
	entries, err := s.repo.Find(ctx, entity.AuditFilter{})
	if err != nil {
		return nil, fmt.Errorf("load audit chain: %w", err)
	}

	report := &ChainReport{Entries: len(entries), Valid: true}
	broken := func(seq uint64, reason string) *ChainReport {
		report.Valid = false
		report.BrokenSeq = seq
		report.Reason = reason
		s.log.Warn("Audit chain broken", zap.Uint64("seq", seq), zap.String("reason", reason))
		return report
	}

	prev := ""
	for i, e := range entries {
		want := uint64(i) + 1
		if e.Seq != want {
			return broken(want, fmt.Sprintf("sequence %d found where %d expected", e.Seq, want)), nil
		}
		if e.PrevHash != prev {
			return broken(e.Seq, "previous hash mismatch"), nil
		}

		hash, err := chainHash(e.PrevHash, e.Payload)
		if err != nil || hash != e.Hash {
			return broken(e.Seq, "hash mismatch"), nil
		}

		var p auditPayload
		if err := codec.Unmarshal(e.Payload, &p); err != nil {
			return broken(e.Seq, "payload unreadable"), nil
		}
		if p.Seq != e.Seq || p.Event != string(e.Event) || p.PNR != e.PNR || p.ID != e.ID.String() {
			return broken(e.Seq, "payload does not match entry"), nil
		}

		prev = e.Hash
	}

	report.HeadHash = prev
	return report, nil
}
