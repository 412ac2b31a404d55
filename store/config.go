package store

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the connection settings. At most one credential path is used;
// see CredentialPath for the precedence.
type Config struct {
	// Endpoint is the account endpoint, or a connection string carrying AccountKey=.
	Endpoint string

	// ResourceID is the management-plane resource id used to fetch a key
	// when neither Key nor an embedded key is present.
	ResourceID string

	// Key is the account key.
	Key string
}

// CredentialPath is the way a client is built from a Config.
type CredentialPath int

const (
	PathNone CredentialPath = iota
	PathKey
	PathConnectionString
	PathResourceID
)

func (p CredentialPath) String() string {
	switch p {
	case PathKey:
		return "key"
	case PathConnectionString:
		return "connection-string"
	case PathResourceID:
		return "resource-id"
	}
	return "none"
}

// CredentialPath returns the credential path the config selects: an explicit
// key wins over a key embedded in the endpoint, which wins over a resource id.
func (c Config) CredentialPath() (CredentialPath, error) {
	if c.Endpoint == "" {
		return PathNone, fmt.Errorf("%w: endpoint cannot be empty", ErrConfiguration)
	}
	switch {
	case c.Key != "":
		return PathKey, nil
	case strings.Contains(strings.ToLower(c.Endpoint), "accountkey="):
		return PathConnectionString, nil
	case c.ResourceID != "":
		return PathResourceID, nil
	}
	return PathNone, fmt.Errorf("%w: no usable credential path", ErrConfiguration)
}

// Validate reports whether the config selects a credential path.
func (c Config) Validate() error {
	_, err := c.CredentialPath()
	return err
}

// Environment variables read by LoadConfig.
const (
	EnvEndpoint   = "COSMOS_ENDPOINT"
	EnvResourceID = "COSMOS_RESOURCE_ID"
	EnvKey        = "COSMOS_KEY"
)

// LoadConfig reads the config from the environment and validates it.
func LoadConfig() (Config, error) {
	cfg := Config{
		Endpoint:   os.Getenv(EnvEndpoint),
		ResourceID: os.Getenv(EnvResourceID),
		Key:        os.Getenv(EnvKey),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
