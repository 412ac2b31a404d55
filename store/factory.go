package store

import (
	"context"
	"fmt"

	"github.com/jacentio/docbind/logging"
)

// BuildClient builds a Client from cfg using the precedence described on
// Config.CredentialPath. fetcher is only called on the resource-id path.
func BuildClient(ctx context.Context, cfg Config, driver Driver, fetcher KeyFetcher, logger logging.Logger) (Client, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if driver == nil {
		logger.Error("no driver configured")
		return nil, fmt.Errorf("%w: no driver", ErrConfiguration)
	}

	path, err := cfg.CredentialPath()
	if err != nil {
		logger.Error("cannot create client", "error", err)
		return nil, err
	}

	var client Client
	switch path {
	case PathKey:
		logger.Info("creating client with endpoint and key")
		client, err = driver.NewClientWithKey(cfg.Endpoint, cfg.Key)

	case PathConnectionString:
		logger.Info("creating client with endpoint containing key")
		client, err = driver.NewClientFromConnectionString(cfg.Endpoint)

	case PathResourceID:
		logger.Info("creating client with endpoint and resource id", "resourceId", cfg.ResourceID)
		if fetcher == nil {
			logger.Error("no key fetcher configured for resource id path")
			return nil, fmt.Errorf("%w: no key fetcher", ErrCredential)
		}
		key, ferr := fetcher.FetchPrimaryKey(ctx, cfg.ResourceID)
		if ferr != nil {
			logger.Exception(ferr, "failed to fetch account key", "resourceId", cfg.ResourceID)
			return nil, fmt.Errorf("%w: %w", ErrCredential, ferr)
		}
		if key == "" {
			logger.Error("fetched account key is empty", "resourceId", cfg.ResourceID)
			return nil, fmt.Errorf("%w: empty key for %s", ErrCredential, cfg.ResourceID)
		}
		client, err = driver.NewClientWithKey(cfg.Endpoint, key)
	}

	if err != nil {
		logger.Exception(err, "failed to create client", "path", path.String())
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return client, nil
}
