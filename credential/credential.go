// Package credential fetches database account keys from the Azure management plane.
//
// It is used only when no key is configured directly: a bearer token for the
// management scope is acquired from the ambient identity and exchanged for the
// account's key list.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/goccy/go-json"

	"github.com/jacentio/docbind/logging"
)

const (
	// ManagementHost is the management plane host and token scope.
	ManagementHost = "https://management.azure.com"

	// DefaultListKeysAPIVersion is the api-version used for listKeys.
	DefaultListKeysAPIVersion = "2019-12-12"
)

// TokenSource issues bearer tokens for a scope.
type TokenSource interface {
	Token(ctx context.Context, scope string) (string, error)
}

// Poster issues an authenticated POST with an empty body and returns the response body.
type Poster interface {
	Post(ctx context.Context, url, bearer string) (string, error)
}

// Keys is the key list returned by the listKeys action.
type Keys struct {
	PrimaryMasterKey           string `json:"primaryMasterKey"`
	PrimaryReadonlyMasterKey   string `json:"primaryReadonlyMasterKey"`
	SecondaryMasterKey         string `json:"secondaryMasterKey"`
	SecondaryReadonlyMasterKey string `json:"secondaryReadonlyMasterKey"`
}

// Resolver exchanges a resource id for account keys.
type Resolver struct {
	host       string
	apiVersion string
	poster     Poster
	logger     logging.Logger

	mu     sync.Mutex
	tokens TokenSource
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTokenSource sets the token source. Default: DefaultAzureCredential, created on first use.
func WithTokenSource(ts TokenSource) Option {
	return func(r *Resolver) { r.tokens = ts }
}

// WithPoster sets the HTTP capability. Default: HTTPPoster with azcore defaults.
func WithPoster(p Poster) Option {
	return func(r *Resolver) { r.poster = p }
}

// WithManagementHost overrides ManagementHost.
func WithManagementHost(host string) Option {
	return func(r *Resolver) { r.host = strings.TrimRight(host, "/") }
}

// WithAPIVersion overrides DefaultListKeysAPIVersion.
func WithAPIVersion(v string) Option {
	return func(r *Resolver) { r.apiVersion = v }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		host:       ManagementHost,
		apiVersion: DefaultListKeysAPIVersion,
		poster:     &HTTPPoster{},
		logger:     logging.NewSlog(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// KeysURL builds the listKeys URL for resourceID.
func KeysURL(host, resourceID, apiVersion string) string {
	sep := ""
	if !strings.HasPrefix(resourceID, "/") {
		sep = "/"
	}
	return fmt.Sprintf("%s%s%s/listKeys?api-version=%s", host, sep, resourceID, apiVersion)
}

// FetchPrimaryKey returns the primary master key of the account identified by
// resourceID. A response without the field yields an empty key and no error;
// callers must treat an empty key as unusable.
func (r *Resolver) FetchPrimaryKey(ctx context.Context, resourceID string) (string, error) {
	keys, err := r.FetchKeys(ctx, resourceID)
	if err != nil {
		return "", err
	}
	return keys.PrimaryMasterKey, nil
}

// FetchKeys returns every key in the account's key list.
func (r *Resolver) FetchKeys(ctx context.Context, resourceID string) (*Keys, error) {
	url := KeysURL(r.host, resourceID, r.apiVersion)

	ts, err := r.tokenSource()
	if err != nil {
		r.logger.Exception(err, "failed to create token source")
		return nil, err
	}

	token, err := ts.Token(ctx, r.host)
	if err != nil {
		r.logger.Exception(err, "failed to acquire management token", "scope", r.host)
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	payload, err := r.poster.Post(ctx, url, token)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			r.logger.Exception(err, "list keys request rejected", "resourceId", resourceID,
				"status", respErr.StatusCode, "code", respErr.ErrorCode)
		} else {
			r.logger.Exception(err, "list keys request failed", "resourceId", resourceID)
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	var keys Keys
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &keys); err != nil {
			r.logger.Exception(err, "failed to decode list keys response", "resourceId", resourceID)
			return nil, fmt.Errorf("decode list keys response: %w", err)
		}
	}

	if keys.PrimaryMasterKey == "" {
		r.logger.Warn("list keys response has no primary master key", "resourceId", resourceID)
	}
	return &keys, nil
}

func (r *Resolver) tokenSource() (TokenSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tokens != nil {
		return r.tokens, nil
	}
	ts, err := NewDefaultAzureTokenSource()
	if err != nil {
		return nil, err
	}
	r.tokens = ts
	return ts, nil
}
