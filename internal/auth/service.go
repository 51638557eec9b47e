package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidToken        = errors.New("auth: invalid token")
	ErrInvalidBootstrapKey = errors.New("auth: invalid bootstrap key")
)

// argon2id parameters for the bootstrap key digest.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Actions checked through IsAuthorized. The role string itself stays inside
// this package so handlers depend on capabilities, not role names.
const (
	ActionTenantWrite = "tenant:write"
	ActionTenantRead  = "tenant:read"
	ActionAuditRead   = "audit:read"
	ActionAuditPurge  = "audit:purge"
)

const roleAdmin = "admin"

// BootstrapActorID is the actor attributed to requests authenticated with
// the bootstrap API key.
const BootstrapActorID = "system-bootstrap"

// Claims are the JWT claims carried by admin bearer tokens.
type Claims struct {
	jwt.RegisteredClaims
	ActorID string `json:"act"`
	Role    string `json:"role"`
}

// Service validates and issues admin credentials and answers authorization
// questions for the API layer.
type Service struct {
	secret           string
	accessTTL        time.Duration
	bootstrapKeyHash string // hex(salt) + "$" + hex(argon2id digest); empty disables the key
}

func NewService(secret string, accessTTL time.Duration, bootstrapKeyHash string) *Service {
	return &Service{
		secret:           secret,
		accessTTL:        accessTTL,
		bootstrapKeyHash: bootstrapKeyHash,
	}
}

// IssueToken mints an HS256 bearer token for an admin principal.
func (s *Service) IssueToken(actorID, role string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		ActorID: actorID,
		Role:    role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueToken: %w", err)
	}

	return token, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(s.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// IsAuthorized reports whether a role may perform an action. All
// administrative actions currently require the admin role; the capability
// indirection keeps role names out of the handlers.
func (s *Service) IsAuthorized(role, action string) bool {
	switch action {
	case ActionTenantWrite, ActionTenantRead, ActionAuditRead, ActionAuditPurge:
		return role == roleAdmin
	default:
		return false
	}
}

// VerifyBootstrapKey compares a presented key against the configured
// argon2id digest in constant time.
func (s *Service) VerifyBootstrapKey(key string) error {
	if s.bootstrapKeyHash == "" {
		return fmt.Errorf("auth.VerifyBootstrapKey: %w", ErrInvalidBootstrapKey)
	}

	saltHex, wantHex, ok := strings.Cut(s.bootstrapKeyHash, "$")
	if !ok {
		return fmt.Errorf("auth.VerifyBootstrapKey: malformed digest: %w", ErrInvalidBootstrapKey)
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return fmt.Errorf("auth.VerifyBootstrapKey: malformed salt: %w", ErrInvalidBootstrapKey)
	}

	want, err := hex.DecodeString(wantHex)
	if err != nil {
		return fmt.Errorf("auth.VerifyBootstrapKey: malformed digest: %w", ErrInvalidBootstrapKey)
	}

	got := argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return fmt.Errorf("auth.VerifyBootstrapKey: %w", ErrInvalidBootstrapKey)
	}

	return nil
}

// HashBootstrapKey derives the storable digest for a raw bootstrap key.
// Operators run this once to produce the config value.
func HashBootstrapKey(key string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth.HashBootstrapKey: %w", err)
	}

	digest := argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(digest), nil
}
