package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/perimeterhq/tenantd/internal/domain"
	"github.com/perimeterhq/tenantd/internal/identity"
	"github.com/perimeterhq/tenantd/internal/metrics"
)

// adminRoleName is the realm role granted to the provisioned tenant admin.
const adminRoleName = "tenant-admin"

// Auditor is the slice of the audit service the orchestrator depends on.
type Auditor interface {
	LogTenantEvent(ctx context.Context, eventTypeName string, tenant *domain.Tenant, actorID string, details any) (*domain.AuditLog, error)
}

// Provisioner drives the tenant lifecycle: realm-level side effects on the
// identity platform, the tenant record, and the audit trail of every
// transition.
type Provisioner struct {
	tenants  domain.TenantRepository
	platform identity.Platform
	auditor  Auditor
	logger   zerolog.Logger
}

func NewProvisioner(tenants domain.TenantRepository, platform identity.Platform, auditor Auditor, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		tenants:  tenants,
		platform: platform,
		auditor:  auditor,
		logger:   logger,
	}
}

// CreateTenant provisions a realm for the tenant, applies the fixed realm
// policy, sets up the tenant admin identity, persists the tenant record and
// emits a TENANT_CREATED audit event.
//
// Platform side effects strictly precede the tenant row write: a tenant row
// must never exist for a realm that failed to provision. If the row write
// fails after the realm exists, the realm is left orphaned and the failure
// surfaces as *domain.PartialProvisioningError.
func (p *Provisioner) CreateTenant(ctx context.Context, id, name, adminEmail, actorID string, config json.RawMessage) (*domain.Tenant, error) {
	if err := p.platform.CreateRealm(ctx, id, name); err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("platform").Inc()
		return nil, fmt.Errorf("tenancy.CreateTenant: create realm: %w", err)
	}

	if err := p.platform.ApplyRealmDefaults(ctx, id, identity.DefaultRealmPolicy()); err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("platform").Inc()
		return nil, fmt.Errorf("tenancy.CreateTenant: apply realm defaults: %w", err)
	}

	if err := p.provisionAdmin(ctx, id, adminEmail); err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("platform").Inc()
		return nil, fmt.Errorf("tenancy.CreateTenant: %w", err)
	}

	tenant := &domain.Tenant{
		ID:         id,
		RealmID:    id,
		Name:       name,
		AdminEmail: adminEmail,
		Status:     domain.TenantActive,
		Config:     config,
	}

	if err := p.tenants.Create(ctx, tenant); err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("store").Inc()
		if errors.Is(err, domain.ErrConflict) {
			// Concurrent creation of the same realm id: exactly one wins at
			// the uniqueness constraint, the loser observes the conflict.
			return nil, fmt.Errorf("tenancy.CreateTenant: %w", err)
		}
		return nil, &domain.PartialProvisioningError{RealmID: id, Err: err}
	}

	details := map[string]any{
		"realmId":    tenant.RealmID,
		"name":       tenant.Name,
		"adminEmail": tenant.AdminEmail,
	}
	if _, err := p.auditor.LogTenantEvent(ctx, domain.EventTenantCreated, tenant, actorID, details); err != nil {
		// The tenant mutation stands; the missing trail entry must still be
		// visible to the caller.
		metrics.ProvisioningFailuresTotal.WithLabelValues("audit").Inc()
		p.logger.Error().Err(err).Str("tenant", tenant.ID).Msg("audit write failed after tenant creation")
		return tenant, fmt.Errorf("tenancy.CreateTenant: %w", err)
	}

	metrics.TenantsProvisionedTotal.Inc()
	p.logger.Info().Str("tenant", tenant.ID).Str("realm", tenant.RealmID).Msg("tenant provisioned")

	return tenant, nil
}

// provisionAdmin creates the realm admin role and user, binds them and sets
// the initial temporary credential.
func (p *Provisioner) provisionAdmin(ctx context.Context, realmID, adminEmail string) error {
	if err := p.platform.CreateRole(ctx, realmID, adminRoleName); err != nil {
		return fmt.Errorf("create admin role: %w", err)
	}

	userID, err := p.platform.CreateUser(ctx, realmID, adminEmail, adminEmail)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	if err := p.platform.AssignRole(ctx, realmID, userID, adminRoleName); err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}

	password, err := identity.GenerateTemporaryPassword()
	if err != nil {
		return err
	}

	if err := p.platform.SetCredential(ctx, realmID, userID, password, true); err != nil {
		return fmt.Errorf("set admin credential: %w", err)
	}

	return nil
}

// TenantUpdate holds the mutable fields of an administrative update. Nil
// fields are left unchanged.
type TenantUpdate struct {
	Name   *string
	Status *domain.TenantStatus
	Config json.RawMessage
}

// UpdateTenant applies an administrative update and emits a TENANT_UPDATED
// audit event carrying before/after field values.
func (p *Provisioner) UpdateTenant(ctx context.Context, id, actorID string, update TenantUpdate) (*domain.Tenant, error) {
	tenant, err := p.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tenancy.UpdateTenant: %w", err)
	}

	before := map[string]any{"name": tenant.Name, "status": tenant.Status}

	if update.Name != nil {
		tenant.Name = *update.Name
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, fmt.Errorf("tenancy.UpdateTenant: invalid status %q", *update.Status)
		}
		tenant.Status = *update.Status
	}
	if update.Config != nil {
		tenant.Config = update.Config
	}

	if err := p.tenants.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("tenancy.UpdateTenant: %w", err)
	}

	details := map[string]any{
		"before": before,
		"after":  map[string]any{"name": tenant.Name, "status": tenant.Status},
	}
	if _, err := p.auditor.LogTenantEvent(ctx, domain.EventTenantUpdated, tenant, actorID, details); err != nil {
		p.logger.Error().Err(err).Str("tenant", tenant.ID).Msg("audit write failed after tenant update")
		return tenant, fmt.Errorf("tenancy.UpdateTenant: %w", err)
	}

	return tenant, nil
}

// DeleteTenant soft-deletes the tenant record and emits a TENANT_DELETED
// audit event. The realm and the tenant's audit history are untouched.
func (p *Provisioner) DeleteTenant(ctx context.Context, id, actorID string) error {
	tenant, err := p.tenants.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("tenancy.DeleteTenant: %w", err)
	}

	if err := p.tenants.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("tenancy.DeleteTenant: %w", err)
	}
	tenant.Status = domain.TenantDeleted

	if _, err := p.auditor.LogTenantEvent(ctx, domain.EventTenantDeleted, tenant, actorID, nil); err != nil {
		p.logger.Error().Err(err).Str("tenant", tenant.ID).Msg("audit write failed after tenant delete")
		return fmt.Errorf("tenancy.DeleteTenant: %w", err)
	}

	return nil
}

func (p *Provisioner) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := p.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tenancy.GetTenant: %w", err)
	}
	return tenant, nil
}

// ListTenants lists all tenants, optionally filtered by status.
func (p *Provisioner) ListTenants(ctx context.Context, status *domain.TenantStatus) ([]*domain.Tenant, error) {
	if status != nil {
		tenants, err := p.tenants.ListByStatus(ctx, *status)
		if err != nil {
			return nil, fmt.Errorf("tenancy.ListTenants: %w", err)
		}
		return tenants, nil
	}

	tenants, err := p.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("tenancy.ListTenants: %w", err)
	}
	return tenants, nil
}
