package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Platform is the narrow slice of the identity platform the provisioning
// orchestrator depends on. The production implementation talks to the
// Keycloak admin REST API; tests substitute fakes.
type Platform interface {
	CreateRealm(ctx context.Context, realmID, displayName string) error
	ApplyRealmDefaults(ctx context.Context, realmID string, defaults RealmDefaults) error
	CreateRole(ctx context.Context, realmID, roleName string) error
	// CreateUser returns the platform-assigned user id.
	CreateUser(ctx context.Context, realmID, username, email string) (string, error)
	AssignRole(ctx context.Context, realmID, userID, roleName string) error
	SetCredential(ctx context.Context, realmID, userID, password string, temporary bool) error
}

// RealmDefaults are the fixed tenant policies applied to every new realm.
type RealmDefaults struct {
	SSLRequired         string
	RegistrationAllowed bool
	RememberMe          bool

	AccessTokenLifespan   time.Duration
	SSOSessionMaxLifespan time.Duration
	SSOSessionIdleTimeout time.Duration

	BrowserFlow     string
	DirectGrantFlow string

	LoginTheme   string
	AccountTheme string
	AdminTheme   string
	EmailTheme   string
}

// DefaultRealmPolicy returns the realm policy applied to every provisioned
// tenant. These are configuration constants of the service, never caller
// supplied.
func DefaultRealmPolicy() RealmDefaults {
	return RealmDefaults{
		SSLRequired:         "external",
		RegistrationAllowed: false,
		RememberMe:          true,

		AccessTokenLifespan:   5 * time.Minute,
		SSOSessionMaxLifespan: 10 * time.Hour,
		SSOSessionIdleTimeout: 30 * time.Minute,

		BrowserFlow:     "browser",
		DirectGrantFlow: "direct grant",

		LoginTheme:   "keycloak",
		AccountTheme: "keycloak",
		AdminTheme:   "keycloak",
		EmailTheme:   "keycloak",
	}
}

// GenerateTemporaryPassword produces the initial credential for a tenant
// admin. The platform marks it temporary so the admin must rotate it on
// first login.
func GenerateTemporaryPassword() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("identity.GenerateTemporaryPassword: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
