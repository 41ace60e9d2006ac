package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/ctxutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/envutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// Client wraps the Keycloak admin REST API used for account lifecycle
// simulation. All operations are idempotent from the caller's point of view
// and propagate failures unwrapped for caller-specific handling.
type Client interface {
	AdminToken(ctx context.Context) (string, error)
	CreateUser(ctx context.Context, data SignupData) (string, error)
	DeleteUser(ctx context.Context, email, userID string) error
}

type Config struct {
	BaseURL       string
	Realm         string
	AdminClientID string
	AdminUsername string
	AdminPassword string
	Timeout       time.Duration
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("KEYCLOAK_TIMEOUT_SECONDS", 15)
	return Config{
		BaseURL:       strings.TrimSpace(os.Getenv("KEYCLOAK_BASE_URL")),
		Realm:         envutil.Str("KEYCLOAK_REALM", "rita"),
		AdminClientID: envutil.Str("KEYCLOAK_ADMIN_CLIENT_ID", "admin-cli"),
		AdminUsername: strings.TrimSpace(os.Getenv("KEYCLOAK_ADMIN_USERNAME")),
		AdminPassword: strings.TrimSpace(os.Getenv("KEYCLOAK_ADMIN_PASSWORD")),
		Timeout:       time.Duration(timeoutSec) * time.Second,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing KEYCLOAK_BASE_URL")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &client{
		log:        log.With("client", "KeycloakClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// tokenLeeway is how close to expiry a cached admin token may get before a
// refresh is forced.
const tokenLeeway = 30 * time.Second

type adminToken struct {
	value     string
	expiresAt time.Time
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client

	mu    sync.Mutex
	token adminToken
	now   func() time.Time
}

// SignupData carries the profile for a new external user. HashedPassword is
// the pre-hashed, encoded password produced upstream; it is imported as a
// credential, never sent as cleartext.
type SignupData struct {
	Email             string
	FirstName         string
	LastName          string
	HashedPassword    string
	Company           string
	PendingUserID     string
	VerificationToken string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type credential struct {
	Type           string `json:"type"`
	SecretData     string `json:"secretData"`
	CredentialData string `json:"credentialData"`
	Temporary      bool   `json:"temporary"`
}

type userRepresentation struct {
	ID            string              `json:"id,omitempty"`
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Credentials   []credential        `json:"credentials,omitempty"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "keycloak: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("keycloak http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// AdminToken returns the cached admin bearer token when it is still valid
// for at least tokenLeeway, otherwise performs a password-grant request and
// caches the result.
func (c *client) AdminToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	if c.token.value != "" && c.token.expiresAt.After(now.Add(tokenLeeway)) {
		return c.token.value, nil
	}

	defer ctxutil.StartTimer(ctx, c.log, "keycloak.admin_token")()

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.cfg.AdminClientID)
	form.Set("username", c.cfg.AdminUsername)
	form.Set("password", c.cfg.AdminPassword)

	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.cfg.BaseURL, c.cfg.Realm)
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, raw, err := c.send(req)
	if err != nil {
		c.log.Error("admin token request failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"error", err,
		)
		return "", fmt.Errorf("admin token: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("admin token decode: %w", err)
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return "", fmt.Errorf("admin token: empty access_token")
	}

	c.token = adminToken{
		value:     tr.AccessToken,
		expiresAt: now.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	c.log.Debug("admin token refreshed", "expires_in", tr.ExpiresIn)
	return c.token.value, nil
}

func (c *client) CreateUser(ctx context.Context, data SignupData) (string, error) {
	defer ctxutil.StartTimer(ctx, c.log, "keycloak.create_user")()

	token, err := c.AdminToken(ctx)
	if err != nil {
		return "", err
	}

	secretData, _ := json.Marshal(map[string]string{"value": data.HashedPassword})
	credentialData, _ := json.Marshal(map[string]any{
		"algorithm":      "pbkdf2-sha256",
		"hashIterations": 27500,
	})

	attrs := map[string][]string{}
	if data.Company != "" {
		attrs["company"] = []string{data.Company}
	}
	if data.PendingUserID != "" {
		attrs["pending_user_id"] = []string{data.PendingUserID}
	}
	if data.VerificationToken != "" {
		attrs["verification_token"] = []string{data.VerificationToken}
	}

	rep := userRepresentation{
		Username:      data.Email,
		Email:         data.Email,
		FirstName:     data.FirstName,
		LastName:      data.LastName,
		Enabled:       true,
		EmailVerified: false,
		Credentials: []credential{{
			Type:           "password",
			SecretData:     string(secretData),
			CredentialData: string(credentialData),
			Temporary:      false,
		}},
		Attributes: attrs,
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/admin/realms/%s/users", c.cfg.BaseURL, c.cfg.Realm)
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, _, err := c.send(req)
	if err != nil {
		c.log.Error("create user failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"email", data.Email,
			"error", err,
		)
		return "", fmt.Errorf("create user: %w", err)
	}

	// Keycloak returns the new user id only via the Location header.
	loc := resp.Header.Get("Location")
	id := loc[strings.LastIndex(loc, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("create user: missing Location header")
	}
	c.log.Info("external user created",
		"request_id", ctxutil.CorrelationID(ctx),
		"external_user_id", id,
	)
	return id, nil
}

func (c *client) DeleteUser(ctx context.Context, email, userID string) error {
	defer ctxutil.StartTimer(ctx, c.log, "keycloak.delete_user")()

	token, err := c.AdminToken(ctx)
	if err != nil {
		return err
	}

	if strings.TrimSpace(userID) == "" {
		userID, err = c.findUserByEmail(ctx, token, email)
		if err != nil {
			return err
		}
	}

	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s", c.cfg.BaseURL, c.cfg.Realm, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if _, _, err := c.send(req); err != nil {
		c.log.Error("delete user failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"email", email,
			"external_user_id", userID,
			"error", err,
		)
		return fmt.Errorf("delete user: %w", err)
	}
	c.log.Info("external user deleted",
		"request_id", ctxutil.CorrelationID(ctx),
		"external_user_id", userID,
	)
	return nil
}

func (c *client) findUserByEmail(ctx context.Context, token, email string) (string, error) {
	endpoint := fmt.Sprintf("%s/admin/realms/%s/users?email=%s&exact=true", c.cfg.BaseURL, c.cfg.Realm, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	_, raw, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	var users []userRepresentation
	if err := json.Unmarshal(raw, &users); err != nil {
		return "", fmt.Errorf("lookup user decode: %w", err)
	}
	if len(users) == 0 {
		return "", fmt.Errorf("lookup user: no user with matching email")
	}
	return users[0].ID, nil
}

func (c *client) send(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
