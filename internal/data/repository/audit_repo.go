package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AuditRepository is append-only. Entries arrive with contiguous sequence
// numbers starting at 1; a store must reject anything else.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditLogEntry) error
	Last(ctx context.Context) (*entity.AuditLogEntry, error)
	Find(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error)
}

// ==================== MEMORY ====================

type auditRepository struct {
	mu      sync.RWMutex
	entries []*entity.AuditLogEntry
	log     *zap.Logger
}

func NewAuditRepository(log *zap.Logger) AuditRepository {
	return &auditRepository{
		log: log.With(zap.String("repository", "audit")),
	}
}

func (r *auditRepository) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := uint64(len(r.entries)) + 1
	if entry.Seq != want {
		r.log.Error("Audit sequence gap",
			zap.Uint64("want", want),
			zap.Uint64("got", entry.Seq),
		)
		return fmt.Errorf("append audit entry %d (want %d): %w", entry.Seq, want, ErrSequenceGap)
	}

	r.entries = append(r.entries, cloneAuditEntry(entry))
	return nil
}

func (r *auditRepository) Last(ctx context.Context) (*entity.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, nil
	}
	return cloneAuditEntry(r.entries[len(r.entries)-1]), nil
}

// Find returns matching entries in sequence order.
func (r *auditRepository) Find(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*entity.AuditLogEntry
	for _, e := range r.entries {
		if filter.Match(e) {
			entries = append(entries, cloneAuditEntry(e))
		}
	}
	return entries, nil
}

func cloneAuditEntry(e *entity.AuditLogEntry) *entity.AuditLogEntry {
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// ==================== POSTGRES ====================

const auditSchema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		seq         BIGINT PRIMARY KEY,
		id          UUID NOT NULL UNIQUE,
		logged_at   TIMESTAMPTZ NOT NULL,
		event       TEXT NOT NULL,
		booking_id  TEXT NOT NULL DEFAULT '',
		pnr         TEXT NOT NULL DEFAULT '',
		actor_id    TEXT NOT NULL,
		actor_type  TEXT NOT NULL,
		details     JSONB NOT NULL DEFAULT '{}',
		payload     BYTEA NOT NULL,
		prev_hash   TEXT NOT NULL,
		hash        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_pnr ON audit_logs (pnr);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_booking ON audit_logs (booking_id);
`

const auditColumns = `seq, id, logged_at, event, booking_id, pnr, actor_id, actor_type, details, payload, prev_hash, hash`

type postgresAuditRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

// NewPostgresAuditRepository archives the audit trail in the audit_logs
// table. Call EnsureAuditSchema once before first use.
func NewPostgresAuditRepository(db database.PgxIface, log *zap.Logger) AuditRepository {
	return &postgresAuditRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit_pg")),
	}
}

func EnsureAuditSchema(ctx context.Context, db database.PgxIface) error {
	if _, err := db.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (r *postgresAuditRepository) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append audit entry %d: begin: %w", entry.Seq, err)
	}
	defer tx.Rollback(ctx)

	var last int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM audit_logs`).Scan(&last); err != nil {
		return fmt.Errorf("append audit entry %d: read head: %w", entry.Seq, err)
	}
	if uint64(last)+1 != entry.Seq {
		r.log.Error("Audit sequence gap",
			zap.Int64("head", last),
			zap.Uint64("got", entry.Seq),
		)
		return fmt.Errorf("append audit entry %d (head %d): %w", entry.Seq, last, ErrSequenceGap)
	}

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}

	query := `INSERT INTO audit_logs (` + auditColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.Exec(ctx, query,
		int64(entry.Seq),
		entry.ID,
		entry.Timestamp,
		string(entry.Event),
		entry.BookingID,
		entry.PNR,
		entry.ActorID,
		string(entry.ActorType),
		details,
		entry.Payload,
		entry.PrevHash,
		entry.Hash,
	)
	if err != nil {
		r.log.Error("Failed to append audit entry",
			zap.Error(err),
			zap.Uint64("seq", entry.Seq),
			zap.String("event", string(entry.Event)),
		)
		return fmt.Errorf("append audit entry %d: %w", entry.Seq, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append audit entry %d: commit: %w", entry.Seq, err)
	}
	return nil
}

func (r *postgresAuditRepository) Last(ctx context.Context) (*entity.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs ORDER BY seq DESC LIMIT 1`

	entry, err := scanAuditEntry(r.db.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to read audit head", zap.Error(err))
		return nil, fmt.Errorf("read audit head: %w", err)
	}
	return entry, nil
}

func (r *postgresAuditRepository) Find(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	query, args := buildAuditQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query audit logs", zap.Error(err))
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return entries, nil
}

func buildAuditQuery(filter entity.AuditFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("booking_id", filter.BookingID)
	add("pnr", filter.PNR)
	add("event", string(filter.Event))
	add("actor_id", filter.ActorID)

	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC`
	return query, args
}

func scanAuditEntry(row pgx.Row) (*entity.AuditLogEntry, error) {
	var (
		seq       int64
		id        uuid.UUID
		loggedAt  time.Time
		event     string
		actorType string
		entry     entity.AuditLogEntry
	)

	err := row.Scan(
		&seq,
		&id,
		&loggedAt,
		&event,
		&entry.BookingID,
		&entry.PNR,
		&entry.ActorID,
		&actorType,
		&entry.Details,
		&entry.Payload,
		&entry.PrevHash,
		&entry.Hash,
	)
	if err != nil {
		return nil, err
	}

	entry.Seq = uint64(seq)
	entry.ID = id
	entry.Timestamp = loggedAt
	entry.Event = entity.AuditEvent(event)
	entry.ActorType = entity.ActorType(actorType)
	entry.Immutable = true
	return &entry, nil
}
