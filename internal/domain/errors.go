package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound         = errors.New("domain: not found")
	ErrConflict         = errors.New("domain: conflict")
	ErrInvalidEventType = errors.New("domain: invalid audit event type")
	ErrSerialization    = errors.New("domain: details serialization failed")
	ErrAuditWrite       = errors.New("domain: audit write failed")
	ErrUnauthorized     = errors.New("domain: unauthorized")
	ErrForbidden        = errors.New("domain: forbidden")
)

// PartialProvisioningError reports a realm that was created on the identity
// platform while the tenant record failed to persist. No compensating realm
// deletion is attempted; the orphaned realm is left for manual reconciliation.
type PartialProvisioningError struct {
	RealmID string
	Err     error
}

func (e *PartialProvisioningError) Error() string {
	return fmt.Sprintf("partial provisioning: realm %q created but tenant record not persisted: %v", e.RealmID, e.Err)
}

func (e *PartialProvisioningError) Unwrap() error { return e.Err }
