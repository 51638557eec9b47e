package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActorType classifies the principal attributed to an audited action.
type ActorType string

const (
	ActorSystem ActorType = "SYSTEM"
	ActorAdmin  ActorType = "ADMIN"
	ActorUser   ActorType = "USER"
)

// ClassifyActor maps an actor id to its type by lexical prefix. The rule is
// ordered: "system-" wins over "admin-"; anything else is a plain user. It
// never consults the authorization layer.
func ClassifyActor(actorID string) ActorType {
	switch {
	case strings.HasPrefix(actorID, "system-"):
		return ActorSystem
	case strings.HasPrefix(actorID, "admin-"):
		return ActorAdmin
	default:
		return ActorUser
	}
}

// Event type names seeded by migration.
const (
	EventTenantCreated   = "TENANT_CREATED"
	EventTenantUpdated   = "TENANT_UPDATED"
	EventTenantDeleted   = "TENANT_DELETED"
	EventTenantSuspended = "TENANT_SUSPENDED"
)

// AuditEventType is one entry of the closed, administered event vocabulary.
// Entries are maintained by migration; there is no runtime mutation path.
type AuditEventType struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuditLog is one immutable audit record. Timestamp is assigned by the store
// at insert time; rows are destroyed only by the retention sweep.
type AuditLog struct {
	ID          uuid.UUID       `json:"id"`
	EventTypeID uuid.UUID       `json:"-"`
	EventType   string          `json:"eventType"`
	TenantID    string          `json:"tenantId"`
	ActorID     string          `json:"actorId"`
	ActorType   ActorType       `json:"actorType"`
	Timestamp   time.Time       `json:"timestamp"`
	Details     json.RawMessage `json:"details,omitempty"`
	IPAddress   string          `json:"ipAddress,omitempty"`
	UserAgent   string          `json:"userAgent,omitempty"`
}

// AuditRepository owns audit_log and audit_event_type rows. Every listing is
// ordered by timestamp descending; from/to bound the window as [from, to).
// Page is zero-based with offset = page*size; a page beyond the result set
// yields an empty slice, not an error.
type AuditRepository interface {
	Insert(ctx context.Context, l *AuditLog) error

	GetEventTypeByName(ctx context.Context, name string) (*AuditEventType, error)
	ListEventTypes(ctx context.Context) ([]*AuditEventType, error)

	ListByTenant(ctx context.Context, tenantID string) ([]*AuditLog, error)
	ListByEventType(ctx context.Context, name string) ([]*AuditLog, error)
	ListByActor(ctx context.Context, actorID string) ([]*AuditLog, error)

	ListByTenantPaginated(ctx context.Context, tenantID string, from, to *time.Time, page, size int) ([]*AuditLog, error)
	ListByActorPaginated(ctx context.Context, actorID string, page, size int) ([]*AuditLog, error)
	ListByEventTypePaginated(ctx context.Context, name string, page, size int) ([]*AuditLog, error)

	// DeleteBefore is the only physical delete in the subsystem.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
