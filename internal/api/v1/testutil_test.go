package v1_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/perimeterhq/tenantd/internal/domain"
	"github.com/perimeterhq/tenantd/internal/server/middleware"
	"github.com/perimeterhq/tenantd/internal/tenancy"
)

// ---------------------------------------------------------------------------
// Context helpers — inject actor/role into context for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(actorID, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyActorID, actorID)
	ctx = context.WithValue(ctx, middleware.ContextKeyActorRole, role)
	return ctx
}

func adminCtx() context.Context {
	return actorCtx("admin-tester", "admin")
}

// ---------------------------------------------------------------------------
// Mock TenantProvisioner
// ---------------------------------------------------------------------------

type mockProvisioner struct {
	createFunc func(ctx context.Context, id, name, adminEmail, actorID string, config json.RawMessage) (*domain.Tenant, error)
	updateFunc func(ctx context.Context, id, actorID string, update tenancy.TenantUpdate) (*domain.Tenant, error)
	deleteFunc func(ctx context.Context, id, actorID string) error
	getFunc    func(ctx context.Context, id string) (*domain.Tenant, error)
	listFunc   func(ctx context.Context, status *domain.TenantStatus) ([]*domain.Tenant, error)
}

func (m *mockProvisioner) CreateTenant(ctx context.Context, id, name, adminEmail, actorID string, config json.RawMessage) (*domain.Tenant, error) {
	return m.createFunc(ctx, id, name, adminEmail, actorID, config)
}

func (m *mockProvisioner) UpdateTenant(ctx context.Context, id, actorID string, update tenancy.TenantUpdate) (*domain.Tenant, error) {
	return m.updateFunc(ctx, id, actorID, update)
}

func (m *mockProvisioner) DeleteTenant(ctx context.Context, id, actorID string) error {
	return m.deleteFunc(ctx, id, actorID)
}

func (m *mockProvisioner) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	return m.getFunc(ctx, id)
}

func (m *mockProvisioner) ListTenants(ctx context.Context, status *domain.TenantStatus) ([]*domain.Tenant, error) {
	return m.listFunc(ctx, status)
}

// ---------------------------------------------------------------------------
// Mock AuditReader
// ---------------------------------------------------------------------------

type mockAuditReader struct {
	listByTenantFunc    func(ctx context.Context, tenantID string, from, to *time.Time, page, size int) ([]*domain.AuditLog, error)
	listByActorFunc     func(ctx context.Context, actorID string, page, size int) ([]*domain.AuditLog, error)
	listByEventTypeFunc func(ctx context.Context, name string, page, size int) ([]*domain.AuditLog, error)
	listEventTypesFunc  func(ctx context.Context) ([]*domain.AuditEventType, error)
	retentionFunc       func(ctx context.Context, retentionDays int) (int64, error)
}

func (m *mockAuditReader) ListByTenantPaginated(ctx context.Context, tenantID string, from, to *time.Time, page, size int) ([]*domain.AuditLog, error) {
	return m.listByTenantFunc(ctx, tenantID, from, to, page, size)
}

func (m *mockAuditReader) ListByActorPaginated(ctx context.Context, actorID string, page, size int) ([]*domain.AuditLog, error) {
	return m.listByActorFunc(ctx, actorID, page, size)
}

func (m *mockAuditReader) ListByEventTypePaginated(ctx context.Context, name string, page, size int) ([]*domain.AuditLog, error) {
	return m.listByEventTypeFunc(ctx, name, page, size)
}

func (m *mockAuditReader) ListEventTypes(ctx context.Context) ([]*domain.AuditEventType, error) {
	return m.listEventTypesFunc(ctx)
}

func (m *mockAuditReader) ExecuteRetentionPolicy(ctx context.Context, retentionDays int) (int64, error) {
	return m.retentionFunc(ctx, retentionDays)
}

// ---------------------------------------------------------------------------
// Mock Authorizer
// ---------------------------------------------------------------------------

type mockAuthorizer struct {
	isAuthorizedFunc func(role, action string) bool
}

func (m *mockAuthorizer) IsAuthorized(role, action string) bool {
	return m.isAuthorizedFunc(role, action)
}

func adminOnly() *mockAuthorizer {
	return &mockAuthorizer{
		isAuthorizedFunc: func(role, _ string) bool { return role == "admin" },
	}
}
