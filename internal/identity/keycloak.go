package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/perimeterhq/tenantd/internal/domain"
)

// KeycloakClient implements Platform against the Keycloak admin REST API.
// Requests are authenticated with a client-credentials token source that
// refreshes the admin token transparently.
type KeycloakClient struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewKeycloakClient builds a client for the admin API rooted at baseURL
// (e.g. "https://sso.example.com"). tokenURL is the OIDC token endpoint of
// the service account used for administration.
func NewKeycloakClient(ctx context.Context, baseURL, tokenURL, clientID, clientSecret string, logger zerolog.Logger) *KeycloakClient {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	httpClient := cc.Client(ctx)
	httpClient.Timeout = 30 * time.Second

	return &KeycloakClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type realmRepresentation struct {
	Realm       string `json:"realm"`
	DisplayName string `json:"displayName,omitempty"`
	Enabled     bool   `json:"enabled"`

	SSLRequired         string `json:"sslRequired,omitempty"`
	RegistrationAllowed *bool  `json:"registrationAllowed,omitempty"`
	RememberMe          *bool  `json:"rememberMe,omitempty"`

	AccessTokenLifespan   int `json:"accessTokenLifespan,omitempty"`
	SSOSessionMaxLifespan int `json:"ssoSessionMaxLifespan,omitempty"`
	SSOSessionIdleTimeout int `json:"ssoSessionIdleTimeout,omitempty"`

	BrowserFlow     string `json:"browserFlow,omitempty"`
	DirectGrantFlow string `json:"directGrantFlow,omitempty"`

	LoginTheme   string `json:"loginTheme,omitempty"`
	AccountTheme string `json:"accountTheme,omitempty"`
	AdminTheme   string `json:"adminTheme,omitempty"`
	EmailTheme   string `json:"emailTheme,omitempty"`
}

func (c *KeycloakClient) CreateRealm(ctx context.Context, realmID, displayName string) error {
	rep := realmRepresentation{
		Realm:       realmID,
		DisplayName: displayName,
		Enabled:     true,
	}

	_, err := c.do(ctx, http.MethodPost, "/admin/realms", rep, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("keycloak.CreateRealm: %w", err)
	}

	return nil
}

func (c *KeycloakClient) ApplyRealmDefaults(ctx context.Context, realmID string, defaults RealmDefaults) error {
	registration := defaults.RegistrationAllowed
	rememberMe := defaults.RememberMe

	rep := realmRepresentation{
		Realm:   realmID,
		Enabled: true,

		SSLRequired:         defaults.SSLRequired,
		RegistrationAllowed: &registration,
		RememberMe:          &rememberMe,

		AccessTokenLifespan:   int(defaults.AccessTokenLifespan.Seconds()),
		SSOSessionMaxLifespan: int(defaults.SSOSessionMaxLifespan.Seconds()),
		SSOSessionIdleTimeout: int(defaults.SSOSessionIdleTimeout.Seconds()),

		BrowserFlow:     defaults.BrowserFlow,
		DirectGrantFlow: defaults.DirectGrantFlow,

		LoginTheme:   defaults.LoginTheme,
		AccountTheme: defaults.AccountTheme,
		AdminTheme:   defaults.AdminTheme,
		EmailTheme:   defaults.EmailTheme,
	}

	_, err := c.do(ctx, http.MethodPut, "/admin/realms/"+realmID, rep, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("keycloak.ApplyRealmDefaults: %w", err)
	}

	return nil
}

func (c *KeycloakClient) CreateRole(ctx context.Context, realmID, roleName string) error {
	body := map[string]string{"name": roleName}

	_, err := c.do(ctx, http.MethodPost, "/admin/realms/"+realmID+"/roles", body, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("keycloak.CreateRole: %w", err)
	}

	return nil
}

func (c *KeycloakClient) CreateUser(ctx context.Context, realmID, username, email string) (string, error) {
	body := map[string]any{
		"username": username,
		"email":    email,
		"enabled":  true,
	}

	resp, err := c.do(ctx, http.MethodPost, "/admin/realms/"+realmID+"/users", body, http.StatusCreated)
	if err != nil {
		return "", fmt.Errorf("keycloak.CreateUser: %w", err)
	}

	// Keycloak returns the new user id only in the Location header.
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("keycloak.CreateUser: missing Location header")
	}

	return path.Base(location), nil
}

func (c *KeycloakClient) AssignRole(ctx context.Context, realmID, userID, roleName string) error {
	body := []map[string]string{{"name": roleName}}

	_, err := c.do(ctx, http.MethodPost, "/admin/realms/"+realmID+"/users/"+userID+"/role-mappings/realm", body, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("keycloak.AssignRole: %w", err)
	}

	return nil
}

func (c *KeycloakClient) SetCredential(ctx context.Context, realmID, userID, password string, temporary bool) error {
	body := map[string]any{
		"type":      "password",
		"value":     password,
		"temporary": temporary,
	}

	_, err := c.do(ctx, http.MethodPut, "/admin/realms/"+realmID+"/users/"+userID+"/reset-password", body, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("keycloak.SetCredential: %w", err)
	}

	return nil
}

// do executes one admin API call and checks the response status. A 409 from
// the platform maps to domain.ErrConflict so callers can distinguish
// duplicate realms/roles/users from transport failures.
func (c *KeycloakClient) do(ctx context.Context, method, apiPath string, body any, wantStatus int) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, apiPath, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("%s %s: %w", method, apiPath, domain.ErrConflict)
	}
	if resp.StatusCode != wantStatus {
		c.logger.Warn().Str("method", method).Str("path", apiPath).Int("status", resp.StatusCode).Msg("unexpected platform response")
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, apiPath, resp.StatusCode)
	}

	return resp, nil
}
