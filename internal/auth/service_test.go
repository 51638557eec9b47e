package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/tenantd/internal/auth"
)

const testSecret = "test-secret-key-very-long-and-secure"

func TestToken_IssueAndValidateRoundTrip(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(testSecret, 5*time.Minute, "")

	token, err := svc.IssueToken("admin-root", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims)

	assert.Equal(t, "admin-root", claims.ActorID)
	assert.Equal(t, "admin-root", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestToken_ExpiredRejected(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(testSecret, -1*time.Second, "")

	token, err := svc.IssueToken("admin-root", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestToken_WrongSecretRejected(t *testing.T) {
	t.Parallel()

	issuer := auth.NewService(testSecret, 5*time.Minute, "")
	validator := auth.NewService("a-completely-different-signing-key", 5*time.Minute, "")

	token, err := issuer.IssueToken("admin-root", "admin")
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestToken_MalformedRejected(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(testSecret, 5*time.Minute, "")

	claims, err := svc.ValidateToken("not.a.valid.jwt.token")
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIsAuthorized(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(testSecret, 5*time.Minute, "")

	tests := []struct {
		name   string
		role   string
		action string
		want   bool
	}{
		{"admin tenant write", "admin", auth.ActionTenantWrite, true},
		{"admin tenant read", "admin", auth.ActionTenantRead, true},
		{"admin audit read", "admin", auth.ActionAuditRead, true},
		{"admin audit purge", "admin", auth.ActionAuditPurge, true},
		{"member tenant write", "member", auth.ActionTenantWrite, false},
		{"member audit read", "member", auth.ActionAuditRead, false},
		{"empty role", "", auth.ActionTenantRead, false},
		{"unknown action", "admin", "tenant:explode", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, svc.IsAuthorized(tt.role, tt.action))
		})
	}
}

func TestBootstrapKey(t *testing.T) {
	t.Parallel()

	t.Run("hash_and_verify_round_trip", func(t *testing.T) {
		t.Parallel()

		digest, err := auth.HashBootstrapKey("super-secret-bootstrap-key")
		require.NoError(t, err)
		require.NotEmpty(t, digest)

		svc := auth.NewService(testSecret, 5*time.Minute, digest)
		require.NoError(t, svc.VerifyBootstrapKey("super-secret-bootstrap-key"))
	})

	t.Run("wrong_key_rejected", func(t *testing.T) {
		t.Parallel()

		digest, err := auth.HashBootstrapKey("super-secret-bootstrap-key")
		require.NoError(t, err)

		svc := auth.NewService(testSecret, 5*time.Minute, digest)
		err = svc.VerifyBootstrapKey("wrong-key")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidBootstrapKey)
	})

	t.Run("disabled_when_unconfigured", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewService(testSecret, 5*time.Minute, "")
		err := svc.VerifyBootstrapKey("anything")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidBootstrapKey)
	})

	t.Run("malformed_digest_rejected", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewService(testSecret, 5*time.Minute, "not-a-valid-digest")
		err := svc.VerifyBootstrapKey("anything")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidBootstrapKey)
	})

	t.Run("salts_differ_between_hashes", func(t *testing.T) {
		t.Parallel()

		a, err := auth.HashBootstrapKey("same-key")
		require.NoError(t, err)
		b, err := auth.HashBootstrapKey("same-key")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}
