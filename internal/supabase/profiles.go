package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"respirapt-backend/internal/domain"
)

// TokenSource yields the bearer token for row access; an empty string
// falls back to the anon key (and row-level security decides from there).
type TokenSource func() string

// ProfileStore reads and writes profile rows through PostgREST. It
// implements session.ProfileStore for clients that talk to Supabase
// directly instead of going through the API server.
type ProfileStore struct {
	client *Client
	tokens TokenSource
}

func NewProfileStore(client *Client, tokens TokenSource) *ProfileStore {
	if tokens == nil {
		tokens = func() string { return "" }
	}
	return &ProfileStore{client: client, tokens: tokens}
}

func (p *ProfileStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	path := fmt.Sprintf("/rest/v1/users?id=eq.%s&select=*&limit=1", url.QueryEscape(id))

	var rows []domain.User
	if err := p.client.do(ctx, http.MethodGet, path, p.tokens(), nil, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return &rows[0], nil
}

func (p *ProfileStore) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	headers := map[string]string{"Prefer": "return=representation"}
	body := map[string]interface{}{
		"id":                   user.ID,
		"email":                user.Email,
		"name":                 user.Name,
		"onboarding_completed": user.OnboardingCompleted,
	}

	var rows []domain.User
	err := p.client.do(ctx, http.MethodPost, "/rest/v1/users", p.tokens(), headers, body, &rows)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return nil, domain.ErrProfileExists
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no representation")
	}
	return &rows[0], nil
}

func (p *ProfileStore) Update(ctx context.Context, id string, fields map[string]interface{}) (*domain.User, error) {
	path := fmt.Sprintf("/rest/v1/users?id=eq.%s", url.QueryEscape(id))
	headers := map[string]string{"Prefer": "return=representation"}

	var rows []domain.User
	if err := p.client.do(ctx, http.MethodPatch, path, p.tokens(), headers, fields, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return &rows[0], nil
}
