package adminsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client calls the unauthenticated endpoints and creates Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSession wraps an existing access token.
func (c *Client) NewSession(accessToken string) *Session {
	return &Session{client: c, token: accessToken}
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the store and the cache are reachable.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetCaptcha issues a new login captcha.
func (c *Client) GetCaptcha(ctx context.Context) (*CaptchaResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/captcha", "", nil)
	if err != nil {
		return nil, err
	}

	var captcha CaptchaResponse
	if err := decodeJSON(resp, &captcha, http.StatusOK); err != nil {
		return nil, err
	}
	return &captcha, nil
}

// Login performs the password step. When the account has TOTP enabled the
// returned session is temporary and must be completed with LoginWith2FA.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", "", req)
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}
	return &Session{client: c, token: login.AccessToken, temporary: login.IsTemporary}, nil
}
