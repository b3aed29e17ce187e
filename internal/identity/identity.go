// Package identity verifies caller tokens and resolves tenant identities.
// The production implementation fronts the Supabase auth REST API.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/topicradar/topicradar/internal/logger"
)

// ErrInvalidToken is returned for expired, malformed or unknown tokens.
var ErrInvalidToken = errors.New("invalid token")

// TenantInfo identifies a verified caller.
type TenantInfo struct {
	ID   string
	Role string
}

// Admin reports whether the tenant holds the admin role.
func (t TenantInfo) Admin() bool {
	return t.Role == "admin"
}

// Provider verifies a bearer token.
type Provider interface {
	Verify(ctx context.Context, token string) (TenantInfo, error)
}

// Supabase verifies tokens against a Supabase project's auth endpoint and
// resolves roles from its user_roles table.
type Supabase struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

func NewSupabase(baseURL, serviceKey string) *Supabase {
	return &Supabase{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify resolves a token to a tenant. Any non-200 auth response maps to
// ErrInvalidToken; role lookup failures degrade to the default role rather
// than failing the request.
func (s *Supabase) Verify(ctx context.Context, token string) (TenantInfo, error) {
	if token == "" {
		return TenantInfo{}, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return TenantInfo{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.http.Do(req)
	if err != nil {
		return TenantInfo{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return TenantInfo{}, ErrInvalidToken
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil || user.ID == "" {
		return TenantInfo{}, ErrInvalidToken
	}

	return TenantInfo{ID: user.ID, Role: s.role(ctx, user.ID)}, nil
}

// role queries the user_roles table with the service key. Missing rows and
// transport errors both yield the default role.
func (s *Supabase) role(ctx context.Context, userID string) string {
	const defaultRole = "user"

	endpoint := fmt.Sprintf("%s/rest/v1/user_roles?user_id=eq.%s&select=role",
		s.baseURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return defaultRole
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.http.Do(req)
	if err != nil {
		logger.Warn("role lookup failed", "error", err)
		return defaultRole
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return defaultRole
	}

	var rows []struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil || len(rows) == 0 || rows[0].Role == "" {
		return defaultRole
	}
	return rows[0].Role
}

// Static is a fixed-identity provider for single-tenant deployments and
// tests.
type Static struct {
	Info TenantInfo
}

func (s Static) Verify(ctx context.Context, token string) (TenantInfo, error) {
	return s.Info, nil
}
