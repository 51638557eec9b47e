package v1

import (
	"context"
	"encoding/json"
	"time"

	"github.com/perimeterhq/tenantd/internal/domain"
	"github.com/perimeterhq/tenantd/internal/tenancy"
)

// TenantProvisioner abstracts the provisioning orchestrator for handler
// testing. *tenancy.Provisioner satisfies this interface.
type TenantProvisioner interface {
	CreateTenant(ctx context.Context, id, name, adminEmail, actorID string, config json.RawMessage) (*domain.Tenant, error)
	UpdateTenant(ctx context.Context, id, actorID string, update tenancy.TenantUpdate) (*domain.Tenant, error)
	DeleteTenant(ctx context.Context, id, actorID string) error
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
	ListTenants(ctx context.Context, status *domain.TenantStatus) ([]*domain.Tenant, error)
}

// AuditReader abstracts the audit service's read and retention paths for
// handler testing. *audit.Service satisfies this interface.
type AuditReader interface {
	ListByTenantPaginated(ctx context.Context, tenantID string, from, to *time.Time, page, size int) ([]*domain.AuditLog, error)
	ListByActorPaginated(ctx context.Context, actorID string, page, size int) ([]*domain.AuditLog, error)
	ListByEventTypePaginated(ctx context.Context, name string, page, size int) ([]*domain.AuditLog, error)
	ListEventTypes(ctx context.Context) ([]*domain.AuditEventType, error)
	ExecuteRetentionPolicy(ctx context.Context, retentionDays int) (int64, error)
}

// Authorizer answers capability checks for the handlers. *auth.Service
// satisfies this interface.
type Authorizer interface {
	IsAuthorized(role, action string) bool
}
