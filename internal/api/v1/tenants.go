package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/perimeterhq/tenantd/internal/auth"
	"github.com/perimeterhq/tenantd/internal/domain"
	"github.com/perimeterhq/tenantd/internal/server/middleware"
	"github.com/perimeterhq/tenantd/internal/tenancy"
)

type CreateTenantInput struct {
	Body struct {
		ID         string          `json:"id" minLength:"1" maxLength:"63" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"Tenant id, also used as the realm id"`
		Name       string          `json:"name" minLength:"1" maxLength:"255" doc:"Tenant display name"`
		AdminEmail string          `json:"adminEmail" format:"email" doc:"Initial tenant admin contact"`
		Config     json.RawMessage `json:"config,omitempty" doc:"Opaque tenant configuration payload"`
	}
}

type CreateTenantOutput struct {
	Body *domain.Tenant
}

type GetTenantInput struct {
	TenantID string `path:"tenantId"`
}

type GetTenantOutput struct {
	Body *domain.Tenant
}

type ListTenantsInput struct {
	Status string `query:"status" enum:"ACTIVE,INACTIVE,SUSPENDED,DELETED" required:"false" doc:"Filter by tenant status"`
}

type ListTenantsOutput struct {
	Body []*domain.Tenant
}

type UpdateTenantInput struct {
	TenantID string `path:"tenantId"`
	Body     struct {
		Name   *string         `json:"name,omitempty" maxLength:"255"`
		Status *string         `json:"status,omitempty" enum:"ACTIVE,INACTIVE,SUSPENDED,DELETED"`
		Config json.RawMessage `json:"config,omitempty"`
	}
}

type UpdateTenantOutput struct {
	Body *domain.Tenant
}

type DeleteTenantInput struct {
	TenantID string `path:"tenantId"`
}

type DeleteTenantOutput struct {
	Status int
}

func RegisterTenantRoutes(api huma.API, provisioner TenantProvisioner, authz Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant",
		Method:        http.MethodPost,
		Path:          "/tenants",
		Summary:       "Provision a new tenant realm",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		actorID, err := requireAction(ctx, authz, auth.ActionTenantWrite)
		if err != nil {
			return nil, err
		}

		tenant, err := provisioner.CreateTenant(ctx, input.Body.ID, input.Body.Name, input.Body.AdminEmail, actorID, input.Body.Config)
		if err != nil {
			return nil, mapTenantError(err)
		}

		return &CreateTenantOutput{Body: tenant}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionTenantRead); err != nil {
			return nil, err
		}

		var status *domain.TenantStatus
		if input.Status != "" {
			s := domain.TenantStatus(input.Status)
			status = &s
		}

		tenants, err := provisioner.ListTenants(ctx, status)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tenants", err)
		}

		return &ListTenantsOutput{Body: tenants}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantId}",
		Summary:     "Fetch one tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionTenantRead); err != nil {
			return nil, err
		}

		tenant, err := provisioner.GetTenant(ctx, input.TenantID)
		if err != nil {
			return nil, mapTenantError(err)
		}

		return &GetTenantOutput{Body: tenant}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant",
		Method:      http.MethodPut,
		Path:        "/tenants/{tenantId}",
		Summary:     "Update a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *UpdateTenantInput) (*UpdateTenantOutput, error) {
		actorID, err := requireAction(ctx, authz, auth.ActionTenantWrite)
		if err != nil {
			return nil, err
		}

		update := tenancy.TenantUpdate{
			Name:   input.Body.Name,
			Config: input.Body.Config,
		}
		if input.Body.Status != nil {
			s := domain.TenantStatus(*input.Body.Status)
			update.Status = &s
		}

		tenant, err := provisioner.UpdateTenant(ctx, input.TenantID, actorID, update)
		if err != nil {
			return nil, mapTenantError(err)
		}

		return &UpdateTenantOutput{Body: tenant}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tenant",
		Method:        http.MethodDelete,
		Path:          "/tenants/{tenantId}",
		Summary:       "Soft-delete a tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteTenantInput) (*DeleteTenantOutput, error) {
		actorID, err := requireAction(ctx, authz, auth.ActionTenantWrite)
		if err != nil {
			return nil, err
		}

		if err := provisioner.DeleteTenant(ctx, input.TenantID, actorID); err != nil {
			return nil, mapTenantError(err)
		}

		return &DeleteTenantOutput{Status: http.StatusNoContent}, nil
	})
}

// requireAction checks the caller's capability and returns the acting
// principal's id.
func requireAction(ctx context.Context, authz Authorizer, action string) (string, error) {
	role, ok := middleware.RoleFromContext(ctx)
	if !ok || !authz.IsAuthorized(role, action) {
		return "", huma.Error403Forbidden("admin role required")
	}

	actorID, ok := middleware.ActorIDFromContext(ctx)
	if !ok || actorID == "" {
		return "", huma.Error403Forbidden("unidentified actor")
	}

	return actorID, nil
}

// mapTenantError translates domain errors into transport responses without
// leaking internal payloads.
func mapTenantError(err error) error {
	var partial *domain.PartialProvisioningError

	switch {
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("realm id already in use")
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("tenant not found")
	case errors.As(err, &partial):
		return huma.Error500InternalServerError("realm created but tenant record not persisted; manual reconciliation required", err)
	case errors.Is(err, domain.ErrAuditWrite):
		return huma.Error500InternalServerError("tenant mutation committed but audit write failed", err)
	default:
		return huma.Error500InternalServerError("tenant operation failed", err)
	}
}
