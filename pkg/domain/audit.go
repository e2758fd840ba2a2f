package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies an authentication event.
type AuditAction string

const (
	AuditLoginSuccess AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed  AuditAction = "LOGIN_FAILED"
)

// AuditEvent is an append-only authentication log record.
type AuditEvent struct {
	UserID    uuid.UUID
	Action    AuditAction
	Timestamp time.Time
	IPAddress string
	UserAgent string
}
