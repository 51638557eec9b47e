package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perimeterhq/tenantd/internal/domain"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

type TenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenant (id, realm_id, name, admin_email, status, config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.RealmID, t.Name, t.AdminEmail, t.Status, t.Config, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("tenantRepo.Create: realm %q: %w", t.RealmID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tenantRepo.Create: %w", err)
	}

	return nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.get(ctx, "tenantRepo.GetByID", `WHERE id = $1`, id)
}

func (r *TenantRepo) GetByRealmID(ctx context.Context, realmID string) (*domain.Tenant, error) {
	return r.get(ctx, "tenantRepo.GetByRealmID", `WHERE realm_id = $1`, realmID)
}

func (r *TenantRepo) get(ctx context.Context, caller, where string, arg any) (*domain.Tenant, error) {
	var t domain.Tenant

	err := r.pool.QueryRow(ctx,
		`SELECT id, realm_id, name, admin_email, status, config, created_at, updated_at
		 FROM tenant `+where,
		arg,
	).Scan(&t.ID, &t.RealmID, &t.Name, &t.AdminEmail, &t.Status, &t.Config, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	return &t, nil
}

func (r *TenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	t.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(ctx,
		`UPDATE tenant SET realm_id = $1, name = $2, admin_email = $3, status = $4, config = $5, updated_at = $6
		 WHERE id = $7`,
		t.RealmID, t.Name, t.AdminEmail, t.Status, t.Config, t.UpdatedAt, t.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("tenantRepo.Update: realm %q: %w", t.RealmID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tenantRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenantRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// SoftDelete flips the tenant to TenantDeleted. A second call on an already
// deleted tenant is a no-op, not an error.
func (r *TenantRepo) SoftDelete(ctx context.Context, id string) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("tenantRepo.SoftDelete: %w", err)
	}

	if t.Status == domain.TenantDeleted {
		return nil
	}

	t.Status = domain.TenantDeleted
	if err := r.Update(ctx, t); err != nil {
		return fmt.Errorf("tenantRepo.SoftDelete: %w", err)
	}

	return nil
}

func (r *TenantRepo) ListByStatus(ctx context.Context, status domain.TenantStatus) ([]*domain.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, realm_id, name, admin_email, status, config, created_at, updated_at
		 FROM tenant WHERE status = $1`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.ListByStatus: %w", err)
	}
	defer rows.Close()

	return scanTenants(rows, "tenantRepo.ListByStatus")
}

func (r *TenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, realm_id, name, admin_email, status, config, created_at, updated_at
		 FROM tenant`,
	)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: %w", err)
	}
	defer rows.Close()

	return scanTenants(rows, "tenantRepo.List")
}

func scanTenants(rows pgx.Rows, caller string) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant

		err := rows.Scan(&t.ID, &t.RealmID, &t.Name, &t.AdminEmail, &t.Status, &t.Config, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}

		tenants = append(tenants, &t)
	}
	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tenants, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
