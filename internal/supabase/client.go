package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx response from GoTrue or PostgREST, with the
// provider's message preserved verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %d %s", e.Status, e.Message)
}

// Client is a thin HTTP client for a Supabase project: GoTrue under
// /auth/v1 and PostgREST under /rest/v1. Calls are stateless; session
// bookkeeping lives in SessionManager.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthUser is the GoTrue user object.
type AuthUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// Name returns the display name from provider metadata, if any.
func (u *AuthUser) Name() string {
	if v, ok := u.UserMetadata["name"].(string); ok {
		return v
	}
	return ""
}

// Session is a GoTrue token grant.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"` // unix seconds
	User         AuthUser `json:"user"`
}

// Expired reports whether the access token is within 30s of expiry.
func (s *Session) Expired() bool {
	return s.ExpiresAt != 0 && time.Now().Unix() >= s.ExpiresAt-30
}

// signupResponse covers both GoTrue signup shapes: a full session when
// auto-confirm is enabled, or a bare user object when email confirmation
// is pending.
type signupResponse struct {
	Session
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Client) SignUpWithEmail(ctx context.Context, email, password, name string) (*Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if name != "" {
		body["data"] = map[string]interface{}{"name": name}
	}

	var resp signupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", nil, body, &resp); err != nil {
		return nil, err
	}

	sess := resp.Session
	if sess.AccessToken == "" && resp.ID != "" {
		// Confirmation pending: no tokens yet, but the credential exists.
		sess.User = AuthUser{ID: resp.ID, Email: resp.Email}
	}
	sess.fillExpiry()
	return &sess, nil
}

func (c *Client) SignInWithEmail(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	var sess Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", nil, body, &sess); err != nil {
		return nil, err
	}
	sess.fillExpiry()
	return &sess, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]interface{}{"refresh_token": refreshToken}
	var sess Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", nil, body, &sess); err != nil {
		return nil, err
	}
	sess.fillExpiry()
	return &sess, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, map[string]interface{}{}, nil)
}

func (s *Session) fillExpiry() {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Unix() + s.ExpiresIn
	}
}

// do executes a JSON request. An empty bearer falls back to the anon key,
// which is what PostgREST expects for unauthenticated access.
func (c *Client) do(ctx context.Context, method, path, bearer string, headers map[string]string, body, out interface{}) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonBody)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var errResp map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)

	msg := http.StatusText(resp.StatusCode)
	for _, key := range []string{"msg", "error_description", "message", "error"} {
		if m, ok := errResp[key].(string); ok && m != "" {
			msg = m
			break
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
