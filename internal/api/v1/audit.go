package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/perimeterhq/tenantd/internal/auth"
	"github.com/perimeterhq/tenantd/internal/domain"
)

type AuditByTenantInput struct {
	TenantID string    `path:"tenantId"`
	From     time.Time `query:"from" required:"false" doc:"Inclusive lower bound (RFC 3339)"`
	To       time.Time `query:"to" required:"false" doc:"Exclusive upper bound (RFC 3339)"`
	Page     int       `query:"page" minimum:"0" default:"0" doc:"Zero-based page"`
	Size     int       `query:"size" minimum:"1" maximum:"200" default:"20" doc:"Page size"`
}

type AuditListOutput struct {
	Body []*domain.AuditLog
}

type AuditByActorInput struct {
	ActorID string `path:"actorId"`
	Page    int    `query:"page" minimum:"0" default:"0"`
	Size    int    `query:"size" minimum:"1" maximum:"200" default:"20"`
}

type AuditByEventTypeInput struct {
	EventType string `path:"eventType"`
	Page      int    `query:"page" minimum:"0" default:"0"`
	Size      int    `query:"size" minimum:"1" maximum:"200" default:"20"`
}

type ListEventTypesOutput struct {
	Body []*domain.AuditEventType
}

type RetentionInput struct {
	RetentionDays int `query:"retentionDays" minimum:"0" default:"365" doc:"Rows older than this many days are deleted"`
}

type RetentionOutput struct {
	Body struct {
		DeletedCount int64 `json:"deletedCount"`
	}
}

func RegisterAuditRoutes(api huma.API, reader AuditReader, authz Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit-by-tenant",
		Method:      http.MethodGet,
		Path:        "/audit/tenant/{tenantId}",
		Summary:     "List a tenant's audit trail, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *AuditByTenantInput) (*AuditListOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionAuditRead); err != nil {
			return nil, err
		}

		// The window applies only when both bounds are supplied.
		var from, to *time.Time
		if !input.From.IsZero() && !input.To.IsZero() {
			from, to = &input.From, &input.To
		}

		logs, err := reader.ListByTenantPaginated(ctx, input.TenantID, from, to, input.Page, input.Size)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit logs", err)
		}

		return &AuditListOutput{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audit-by-actor",
		Method:      http.MethodGet,
		Path:        "/audit/actor/{actorId}",
		Summary:     "List an actor's audit trail, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *AuditByActorInput) (*AuditListOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionAuditRead); err != nil {
			return nil, err
		}

		logs, err := reader.ListByActorPaginated(ctx, input.ActorID, input.Page, input.Size)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit logs", err)
		}

		return &AuditListOutput{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audit-by-event-type",
		Method:      http.MethodGet,
		Path:        "/audit/event-type/{eventType}",
		Summary:     "List audit entries of one event type, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *AuditByEventTypeInput) (*AuditListOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionAuditRead); err != nil {
			return nil, err
		}

		logs, err := reader.ListByEventTypePaginated(ctx, input.EventType, input.Page, input.Size)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit logs", err)
		}

		return &AuditListOutput{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audit-event-types",
		Method:      http.MethodGet,
		Path:        "/audit/event-types",
		Summary:     "List the administered audit event vocabulary",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, _ *struct{}) (*ListEventTypesOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionAuditRead); err != nil {
			return nil, err
		}

		types, err := reader.ListEventTypes(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list event types", err)
		}

		return &ListEventTypesOutput{Body: types}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "execute-retention-policy",
		Method:      http.MethodDelete,
		Path:        "/audit/retention/execute",
		Summary:     "Run the audit retention sweep now",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *RetentionInput) (*RetentionOutput, error) {
		if _, err := requireAction(ctx, authz, auth.ActionAuditPurge); err != nil {
			return nil, err
		}

		deleted, err := reader.ExecuteRetentionPolicy(ctx, input.RetentionDays)
		if err != nil {
			return nil, huma.Error500InternalServerError("retention sweep failed", err)
		}

		out := &RetentionOutput{}
		out.Body.DeletedCount = deleted
		return out, nil
	})
}
