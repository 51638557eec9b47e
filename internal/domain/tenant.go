package domain

import (
	"context"
	"encoding/json"
	"time"
)

// TenantStatus enumerates the lifecycle states of a tenant record.
type TenantStatus string

const (
	TenantActive    TenantStatus = "ACTIVE"
	TenantInactive  TenantStatus = "INACTIVE"
	TenantSuspended TenantStatus = "SUSPENDED"
	TenantDeleted   TenantStatus = "DELETED"
)

// Valid reports whether s is one of the defined statuses.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantInactive, TenantSuspended, TenantDeleted:
		return true
	}
	return false
}

// Tenant represents one customer organization and its 1:1 identity realm.
// Config is an opaque serialized payload owned by the caller; this layer
// never parses it.
type Tenant struct {
	ID         string          `json:"id"`
	RealmID    string          `json:"realmId"`
	Name       string          `json:"name"`
	AdminEmail string          `json:"adminEmail"`
	Status     TenantStatus    `json:"status"`
	Config     json.RawMessage `json:"config,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// TenantRepository owns tenant rows. Deletion is soft: rows transition to
// TenantDeleted and are never physically removed here. RealmID is unique
// across all rows regardless of status.
type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByRealmID(ctx context.Context, realmID string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	SoftDelete(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, status TenantStatus) ([]*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
}
