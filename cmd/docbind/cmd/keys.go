package cmd

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jacentio/docbind/credential"
)

var keysReveal bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the account keys for --resource-id",
	Long: `Exchanges the ambient Azure identity for a management token and lists the
account keys of the Cosmos DB account named by --resource-id. Keys are masked
unless --reveal is set.`,
	Args: cobra.NoArgs,
	RunE: runKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.Flags().BoolVar(&keysReveal, "reveal", false, "Print the keys in full")
}

func runKeys(cmd *cobra.Command, _ []string) error {
	cfg := connectionConfig()
	if cfg.ResourceID == "" {
		return fmt.Errorf("--resource-id is required")
	}

	zl, logger, err := newLogger()
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck

	keys, err := credential.NewResolver(credential.WithLogger(logger)).FetchKeys(cmd.Context(), cfg.ResourceID)
	if err != nil {
		return err
	}
	if !keysReveal {
		keys = maskKeys(keys)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(keys)
}

func maskKeys(k *credential.Keys) *credential.Keys {
	return &credential.Keys{
		PrimaryMasterKey:           mask(k.PrimaryMasterKey),
		SecondaryMasterKey:         mask(k.SecondaryMasterKey),
		PrimaryReadonlyMasterKey:   mask(k.PrimaryReadonlyMasterKey),
		SecondaryReadonlyMasterKey: mask(k.SecondaryReadonlyMasterKey),
	}
}

func mask(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[:4] + "..."
}
