package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacentio/docbind/logging"
	"github.com/jacentio/docbind/store"
)

var (
	endpoint   string
	accountKey string
	resourceID string
	devLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "docbind",
	Short: "docbind maps typed records onto document database containers",
	Long: `Command line tools for docbind connections.

Connection settings are read from flags, falling back to the
COSMOS_ENDPOINT, COSMOS_KEY and COSMOS_RESOURCE_ID environment variables.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Account endpoint or connection string ($"+store.EnvEndpoint+")")
	rootCmd.PersistentFlags().StringVar(&accountKey, "key", "", "Account key ($"+store.EnvKey+")")
	rootCmd.PersistentFlags().StringVar(&resourceID, "resource-id", "", "Account resource id used to fetch a key ($"+store.EnvResourceID+")")
	rootCmd.PersistentFlags().BoolVar(&devLogging, "dev", false, "Human readable debug logging")
}

// connectionConfig merges flags over the environment.
func connectionConfig() store.Config {
	cfg := store.Config{
		Endpoint:   os.Getenv(store.EnvEndpoint),
		Key:        os.Getenv(store.EnvKey),
		ResourceID: os.Getenv(store.EnvResourceID),
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if accountKey != "" {
		cfg.Key = accountKey
	}
	if resourceID != "" {
		cfg.ResourceID = resourceID
	}
	return cfg
}

func newLogger() (*zap.Logger, logging.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if devLogging {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, logging.NewZap(l), nil
}
