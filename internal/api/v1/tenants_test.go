package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/perimeterhq/tenantd/internal/api/v1"
	"github.com/perimeterhq/tenantd/internal/domain"
	"github.com/perimeterhq/tenantd/internal/tenancy"
)

// ---------------------------------------------------------------------------
// POST /tenants
// ---------------------------------------------------------------------------

func TestCreateTenant(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_admin", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			createFunc: func(_ context.Context, id, name, adminEmail, actorID string, config json.RawMessage) (*domain.Tenant, error) {
				assert.Equal(t, "acme-corp", id)
				assert.Equal(t, "Acme Corp", name)
				assert.Equal(t, "admin@acme.example", adminEmail)
				assert.Equal(t, "admin-tester", actorID)
				assert.JSONEq(t, `{"plan":"enterprise"}`, string(config))
				return &domain.Tenant{
					ID:         id,
					RealmID:    id,
					Name:       name,
					AdminEmail: adminEmail,
					Status:     domain.TenantActive,
					Config:     config,
				}, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PostCtx(adminCtx(), "/tenants", map[string]any{
			"id":         "acme-corp",
			"name":       "Acme Corp",
			"adminEmail": "admin@acme.example",
			"config":     map[string]any{"plan": "enterprise"},
		})

		require.Equal(t, http.StatusCreated, resp.Code)

		var body domain.Tenant
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "acme-corp", body.ID)
		assert.Equal(t, "acme-corp", body.RealmID)
		assert.Equal(t, domain.TenantActive, body.Status)
	})

	t.Run("non_admin_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			createFunc: func(_ context.Context, _, _, _, _ string, _ json.RawMessage) (*domain.Tenant, error) {
				t.Fatal("provisioner must not be reached")
				return nil, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PostCtx(actorCtx("bob", "member"), "/tenants", map[string]any{
			"id":         "evil-corp",
			"name":       "Evil Corp",
			"adminEmail": "admin@evil.example",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)

		var errBody map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.EqualValues(t, http.StatusForbidden, errBody["status"])
	})

	t.Run("missing_role_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PostCtx(context.Background(), "/tenants", map[string]any{
			"id":         "no-role",
			"name":       "No Role Inc",
			"adminEmail": "admin@norole.example",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("duplicate_realm_conflict", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			createFunc: func(_ context.Context, _, _, _, _ string, _ json.RawMessage) (*domain.Tenant, error) {
				return nil, domain.ErrConflict
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PostCtx(adminCtx(), "/tenants", map[string]any{
			"id":         "taken",
			"name":       "Taken",
			"adminEmail": "admin@taken.example",
		})

		assert.Equal(t, http.StatusConflict, resp.Code)

		var errBody map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.EqualValues(t, http.StatusConflict, errBody["status"])
	})

	t.Run("partial_provisioning_surfaces", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			createFunc: func(_ context.Context, id, _, _, _ string, _ json.RawMessage) (*domain.Tenant, error) {
				return nil, &domain.PartialProvisioningError{RealmID: id, Err: errors.New("pg: connection refused")}
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PostCtx(adminCtx(), "/tenants", map[string]any{
			"id":         "orphan",
			"name":       "Orphan",
			"adminEmail": "admin@orphan.example",
		})

		assert.Equal(t, http.StatusInternalServerError, resp.Code)

		var errBody map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.Contains(t, errBody["detail"], "manual reconciliation")
	})

	t.Run("invalid_realm_id_rejected", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			createFunc: func(_ context.Context, _, _, _, _ string, _ json.RawMessage) (*domain.Tenant, error) {
				t.Fatal("provisioner must not be reached")
				return nil, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PostCtx(adminCtx(), "/tenants", map[string]any{
			"id":         "Not Valid!",
			"name":       "Bad Id",
			"adminEmail": "admin@bad.example",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /tenants, GET /tenants/{tenantId}
// ---------------------------------------------------------------------------

func TestListTenants(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			listFunc: func(_ context.Context, status *domain.TenantStatus) ([]*domain.Tenant, error) {
				assert.Nil(t, status)
				return []*domain.Tenant{
					{ID: "alpha", RealmID: "alpha", Name: "Alpha", Status: domain.TenantActive},
					{ID: "beta", RealmID: "beta", Name: "Beta", Status: domain.TenantSuspended},
				}, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.GetCtx(adminCtx(), "/tenants")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []*domain.Tenant
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 2)
		assert.Equal(t, "Alpha", body[0].Name)
		assert.Equal(t, "Beta", body[1].Name)
	})

	t.Run("status_filter_forwarded", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			listFunc: func(_ context.Context, status *domain.TenantStatus) ([]*domain.Tenant, error) {
				require.NotNil(t, status)
				assert.Equal(t, domain.TenantSuspended, *status)
				return []*domain.Tenant{}, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.GetCtx(adminCtx(), "/tenants?status=SUSPENDED")
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestGetTenant(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			getFunc: func(_ context.Context, id string) (*domain.Tenant, error) {
				assert.Equal(t, "acme-corp", id)
				return &domain.Tenant{ID: id, RealmID: id, Name: "Acme Corp", Status: domain.TenantActive}, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.GetCtx(adminCtx(), "/tenants/acme-corp")
		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Tenant
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "acme-corp", body.ID)
	})

	t.Run("unknown_tenant_404", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			getFunc: func(_ context.Context, _ string) (*domain.Tenant, error) {
				return nil, domain.ErrNotFound
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.GetCtx(adminCtx(), "/tenants/ghost")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// PUT /tenants/{tenantId}
// ---------------------------------------------------------------------------

func TestUpdateTenant(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			updateFunc: func(_ context.Context, id, actorID string, update tenancy.TenantUpdate) (*domain.Tenant, error) {
				assert.Equal(t, "acme-corp", id)
				assert.Equal(t, "admin-tester", actorID)
				require.NotNil(t, update.Name)
				assert.Equal(t, "Acme Renamed", *update.Name)
				require.NotNil(t, update.Status)
				assert.Equal(t, domain.TenantSuspended, *update.Status)
				return &domain.Tenant{ID: id, RealmID: id, Name: *update.Name, Status: *update.Status}, nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PutCtx(adminCtx(), "/tenants/acme-corp", map[string]any{
			"name":   "Acme Renamed",
			"status": "SUSPENDED",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Tenant
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Acme Renamed", body.Name)
		assert.Equal(t, domain.TenantSuspended, body.Status)
	})

	t.Run("unknown_tenant_404", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			updateFunc: func(_ context.Context, _, _ string, _ tenancy.TenantUpdate) (*domain.Tenant, error) {
				return nil, domain.ErrNotFound
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PutCtx(adminCtx(), "/tenants/ghost", map[string]any{"name": "Ghost"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("audit_failure_is_500", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			updateFunc: func(_ context.Context, id, _ string, _ tenancy.TenantUpdate) (*domain.Tenant, error) {
				return &domain.Tenant{ID: id}, domain.ErrAuditWrite
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.PutCtx(adminCtx(), "/tenants/acme-corp", map[string]any{"name": "Acme"})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)

		var errBody map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.Contains(t, errBody["detail"], "audit write failed")
	})
}

// ---------------------------------------------------------------------------
// DELETE /tenants/{tenantId}
// ---------------------------------------------------------------------------

func TestDeleteTenant(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_204", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		deleted := false
		provisioner := &mockProvisioner{
			deleteFunc: func(_ context.Context, id, actorID string) error {
				assert.Equal(t, "acme-corp", id)
				assert.Equal(t, "admin-tester", actorID)
				deleted = true
				return nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.DeleteCtx(adminCtx(), "/tenants/acme-corp")
		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.True(t, deleted)
	})

	t.Run("unknown_tenant_404", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			deleteFunc: func(_ context.Context, _, _ string) error {
				return domain.ErrNotFound
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.DeleteCtx(adminCtx(), "/tenants/ghost")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("non_admin_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		provisioner := &mockProvisioner{
			deleteFunc: func(_ context.Context, _, _ string) error {
				t.Fatal("provisioner must not be reached")
				return nil
			},
		}

		v1.RegisterTenantRoutes(api, provisioner, adminOnly())

		resp := api.DeleteCtx(actorCtx("bob", "member"), "/tenants/acme-corp")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
