package health

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/maykaila/memora/internal/identity"
)

// Pinger reaches the backend without credentials and reports the HTTP status.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// BackendChecker reports whether the backend API answers.
type BackendChecker struct {
	pinger Pinger
	url    string
}

func NewBackendChecker(p Pinger, url string) *BackendChecker {
	return &BackendChecker{pinger: p, url: url}
}

func (c *BackendChecker) Name() string { return "backend-api" }

// Check treats any HTTP answer below 500 as reachable; an unauthenticated
// request is expected to be refused.
func (c *BackendChecker) Check(ctx context.Context) *Result {
	status, err := c.pinger.Ping(ctx)
	if err != nil {
		return Unhealthy("backend is unreachable").
			WithDetail("url", c.url).
			WithDetail("error", err.Error()).
			WithSuggestion("Check api.base_url: memora config get api.base_url")
	}
	if status >= http.StatusInternalServerError {
		return Degraded(fmt.Sprintf("backend answered %d", status)).
			WithDetail("url", c.url).
			WithDetail("status", status)
	}
	return Healthy("reachable").
		WithDetail("url", c.url).
		WithDetail("status", status)
}

// PrincipalSource exposes the signed-in principal.
type PrincipalSource interface {
	Current() *identity.Principal
}

// IdentityChecker reports whether the identity provider is configured and
// the cached session can still mint tokens.
type IdentityChecker struct {
	apiKey string
	source PrincipalSource
}

func NewIdentityChecker(apiKey string, source PrincipalSource) *IdentityChecker {
	return &IdentityChecker{apiKey: apiKey, source: source}
}

func (c *IdentityChecker) Name() string { return "identity" }

func (c *IdentityChecker) Check(ctx context.Context) *Result {
	if c.apiKey == "" {
		return Unhealthy("identity.api_key is not set").
			WithSuggestion("memora config set identity.api_key <web-api-key>")
	}
	p := c.source.Current()
	if p == nil {
		return Degraded("not signed in").
			WithSuggestion("memora auth login")
	}
	if _, err := p.BearerToken(ctx, false); err != nil {
		return Unhealthy("session can no longer be refreshed").
			WithDetail("email", p.Email).
			WithDetail("error", err.Error()).
			WithSuggestion("memora auth login")
	}
	return Healthy("signed in as "+p.Email).
		WithDetail("uid", p.UID)
}

// StorageChecker reports whether profile picture uploads are configured.
type StorageChecker struct {
	bucket          string
	credentialsFile string
}

func NewStorageChecker(bucket, credentialsFile string) *StorageChecker {
	return &StorageChecker{bucket: bucket, credentialsFile: credentialsFile}
}

func (c *StorageChecker) Name() string { return "picture-storage" }

func (c *StorageChecker) Check(context.Context) *Result {
	if c.bucket == "" {
		return Degraded("storage.bucket is not set, profile picture uploads are disabled").
			WithSuggestion("memora config set storage.bucket <name>.appspot.com")
	}
	if c.credentialsFile == "" {
		return Healthy("bucket "+c.bucket).
			WithDetail("credentials", "application default")
	}
	if _, err := os.Stat(c.credentialsFile); err != nil {
		return Unhealthy("storage credentials file is unreadable").
			WithDetail("path", c.credentialsFile).
			WithDetail("error", err.Error()).
			WithSuggestion("memora config set storage.credentials_file <path>")
	}
	return Healthy("bucket "+c.bucket).
		WithDetail("credentials", c.credentialsFile)
}
