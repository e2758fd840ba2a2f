package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/lib/pq"
)

// ErrUnknownAuditTable is returned when an append targets a table that was
// not registered with the repository.
var ErrUnknownAuditTable = errors.New("unknown audit table")

// AuditRepository appends authentication events to audit tables.
// The target table is chosen per call, so it is restricted to a fixed set.
type AuditRepository struct {
	db     Querier
	tables map[string]struct{}
}

// NewAuditRepository creates an audit repository that may write to tables.
func NewAuditRepository(db Querier, tables ...string) *AuditRepository {
	allowed := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		allowed[t] = struct{}{}
	}
	return &AuditRepository{db: db, tables: allowed}
}

// Append inserts an audit event into table.
func (r *AuditRepository) Append(ctx context.Context, table string, event *domain.AuditEvent) error {
	if _, ok := r.tables[table]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAuditTable, table)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, action, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, pq.QuoteIdentifier(table))

	_, err := r.db.ExecContext(ctx, query,
		event.UserID, string(event.Action),
		nullString(event.IPAddress), nullString(event.UserAgent),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}
