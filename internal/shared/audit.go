package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit action tags written by privileged operations.
const (
	AuditUserSuspended   = "user.suspended"
	AuditUserBanned      = "user.banned"
	AuditUserReactivated = "user.reactivated"
	AuditUserRoleChanged = "user.role_changed"
	AuditSellerApproved  = "seller.approved"
	AuditSellerRejected  = "seller.rejected"
	AuditDataExported    = "data.exported"
	AuditAccountDeleted  = "user.deleted"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID    string
	ActorRole  string
	Action     string
	TargetType string
	TargetID   string
	Meta       map[string]any
	At         time.Time
}

// AuditSink is the append-only destination for audit records.
type AuditSink interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry. It returns only after the insert is durable.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (id, actor_id, actor_role, action, target_type, target_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		uuid.NewString(), log.ActorID, log.ActorRole, log.Action, log.TargetType, log.TargetID, metaJSON, at)
	return err
}

func (log AuditLog) validate() error {
	if log.ActorID == "" || log.Action == "" || log.TargetType == "" || log.TargetID == "" {
		return errors.New("audit log requires actor/action/target_type/target_id")
	}
	return nil
}

var _ AuditSink = (*AuditLogger)(nil)
