package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perimeterhq/tenantd/internal/domain"
)

const selectAudit = `SELECT a.id, a.event_type_id, et.name, a.tenant_id, a.actor_id, a.actor_type,
       a.timestamp, a.details, a.ip_address, a.user_agent
  FROM audit_log a
  JOIN audit_event_type et ON et.id = a.event_type_id`

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Insert persists one audit record. The timestamp is assigned here by the
// database clock; a caller-supplied value is never trusted.
func (r *AuditRepo) Insert(ctx context.Context, l *domain.AuditLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO audit_log (id, event_type_id, tenant_id, actor_id, actor_type, timestamp, details, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, now(), $6, $7, $8)
		 RETURNING timestamp`,
		l.ID, l.EventTypeID, l.TenantID, l.ActorID, l.ActorType, l.Details,
		textOrNil(l.IPAddress), textOrNil(l.UserAgent),
	).Scan(&l.Timestamp)
	if err != nil {
		return fmt.Errorf("auditRepo.Insert: %w", err)
	}

	return nil
}

func (r *AuditRepo) GetEventTypeByName(ctx context.Context, name string) (*domain.AuditEventType, error) {
	var et domain.AuditEventType
	var description *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM audit_event_type WHERE name = $1`,
		name,
	).Scan(&et.ID, &et.Name, &description, &et.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("auditRepo.GetEventTypeByName: %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.GetEventTypeByName: %w", err)
	}

	if description != nil {
		et.Description = *description
	}

	return &et, nil
}

func (r *AuditRepo) ListEventTypes(ctx context.Context) ([]*domain.AuditEventType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM audit_event_type ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListEventTypes: %w", err)
	}
	defer rows.Close()

	var types []*domain.AuditEventType
	for rows.Next() {
		var et domain.AuditEventType
		var description *string

		if err := rows.Scan(&et.ID, &et.Name, &description, &et.CreatedAt); err != nil {
			return nil, fmt.Errorf("auditRepo.ListEventTypes: scan: %w", err)
		}
		if description != nil {
			et.Description = *description
		}

		types = append(types, &et)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auditRepo.ListEventTypes: rows: %w", err)
	}

	return types, nil
}

func (r *AuditRepo) ListByTenant(ctx context.Context, tenantID string) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		selectAudit+` WHERE a.tenant_id = $1 ORDER BY a.timestamp DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows, "auditRepo.ListByTenant")
}

func (r *AuditRepo) ListByEventType(ctx context.Context, name string) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		selectAudit+` WHERE et.name = $1 ORDER BY a.timestamp DESC`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByEventType: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows, "auditRepo.ListByEventType")
}

func (r *AuditRepo) ListByActor(ctx context.Context, actorID string) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		selectAudit+` WHERE a.actor_id = $1 ORDER BY a.timestamp DESC`,
		actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByActor: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows, "auditRepo.ListByActor")
}

// ListByTenantPaginated lists a tenant's audit trail, newest first, with an
// optional [from, to) window applied only when both bounds are present.
func (r *AuditRepo) ListByTenantPaginated(ctx context.Context, tenantID string, from, to *time.Time, page, size int) ([]*domain.AuditLog, error) {
	q := selectAudit + ` WHERE a.tenant_id = $1`
	args := []any{tenantID}

	if from != nil && to != nil {
		q += ` AND a.timestamp >= $2 AND a.timestamp < $3`
		args = append(args, *from, *to)
	}

	q += fmt.Sprintf(` ORDER BY a.timestamp DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, size, page*size)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByTenantPaginated: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows, "auditRepo.ListByTenantPaginated")
}

func (r *AuditRepo) ListByActorPaginated(ctx context.Context, actorID string, page, size int) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		selectAudit+` WHERE a.actor_id = $1 ORDER BY a.timestamp DESC LIMIT $2 OFFSET $3`,
		actorID, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByActorPaginated: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows, "auditRepo.ListByActorPaginated")
}

func (r *AuditRepo) ListByEventTypePaginated(ctx context.Context, name string, page, size int) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		selectAudit+` WHERE et.name = $1 ORDER BY a.timestamp DESC LIMIT $2 OFFSET $3`,
		name, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByEventTypePaginated: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows, "auditRepo.ListByEventTypePaginated")
}

// DeleteBefore bulk-deletes audit rows with timestamp < cutoff in a single
// statement and returns the number deleted.
func (r *AuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_log WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auditRepo.DeleteBefore: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanAuditLogs(rows pgx.Rows, caller string) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		var ip, ua *string

		err := rows.Scan(
			&l.ID, &l.EventTypeID, &l.EventType, &l.TenantID, &l.ActorID, &l.ActorType,
			&l.Timestamp, &l.Details, &ip, &ua,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}

		if ip != nil {
			l.IPAddress = *ip
		}
		if ua != nil {
			l.UserAgent = *ua
		}

		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return logs, nil
}

func textOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
