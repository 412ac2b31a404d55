package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jacentio/docbind/credential"
	"github.com/jacentio/docbind/driver/cosmos"
	"github.com/jacentio/docbind/models"
	"github.com/jacentio/docbind/store"
)

var (
	demoRetryDelay  time.Duration
	demoShowMetrics bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the customer round trip against a Cosmos DB account",
	Long: `Writes two customers to Customers/Customer with partition key "newCustomers",
finds them by name and by address, lists the container and deletes everything
in it. The database and container must already exist.`,
	Args: cobra.NoArgs,
	RunE: runDemoCmd,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().DurationVar(&demoRetryDelay, "retry-delay", store.DefaultRetryDelay, "Wait before retrying a failed upsert")
	demoCmd.Flags().BoolVar(&demoShowMetrics, "metrics", false, "Print operation counters when done")
}

func runDemoCmd(cmd *cobra.Command, _ []string) error {
	zl, logger, err := newLogger()
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	metrics, err := store.NewMetrics("docbind", reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	ctx := cmd.Context()
	conn, err := store.New(ctx, connectionConfig(), cosmos.NewDriver(),
		store.WithLogger(logger),
		store.WithMetrics(metrics),
		store.WithRetryDelay(demoRetryDelay),
		store.WithKeyFetcher(credential.NewResolver(credential.WithLogger(logger))),
	)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	out := cmd.OutOrStdout()
	if _, err := runDemo(ctx, conn, out); err != nil {
		return err
	}

	if demoShowMetrics {
		return printMetrics(out, reg)
	}
	return nil
}

type demoReport struct {
	Upserted  int
	ByName    int
	ByAddress int
	All       int
	Deleted   int
}

const demoAddress = "1 Main Street"

func runDemo(ctx context.Context, conn *store.Connection, out io.Writer) (demoReport, error) {
	var report demoReport

	for _, name := range []string{"Steve", "Larry"} {
		c := models.NewCustomer(uuid.NewString(), models.NewCustomersPartition, name, demoAddress)
		if _, err := store.UpsertItem(ctx, conn, &c); err != nil {
			return report, fmt.Errorf("failed to upsert %s: %w", name, err)
		}
		report.Upserted++
		fmt.Fprintf(out, "upserted %s (%s)\n", c.Name, c.ID)
	}

	steve, err := models.FindCustomerByName(ctx, conn, "Steve")
	if err != nil {
		return report, err
	}
	if steve == nil {
		return report, errors.New("customer Steve not found by name")
	}
	report.ByName = 1
	fmt.Fprintf(out, "found by name: %s at %s\n", steve.Name, steve.Address1)

	byAddress, err := models.FindCustomerByAddress(ctx, conn, demoAddress)
	if err != nil {
		return report, err
	}
	report.ByAddress = len(byAddress)
	fmt.Fprintf(out, "found %d at %s\n", report.ByAddress, demoAddress)
	if err := expectCount("customers at "+demoAddress, report.ByAddress, report.Upserted); err != nil {
		return report, err
	}

	all, err := store.QueryItems[models.CustomerRecord](ctx, conn, nil)
	if err != nil {
		return report, err
	}
	report.All = len(all)
	fmt.Fprintf(out, "container holds %d customers\n", report.All)
	if err := expectCount("customers in container", report.All, report.Upserted); err != nil {
		return report, err
	}

	report.Deleted, err = store.DeleteAllInContainer[models.CustomerRecord](ctx, conn)
	fmt.Fprintf(out, "deleted %d customers\n", report.Deleted)
	if err != nil {
		return report, fmt.Errorf("failed to delete customers: %w", err)
	}
	if err := expectCount("deleted customers", report.Deleted, report.All); err != nil {
		return report, err
	}
	return report, nil
}

// errDemoMismatch reports a round trip that did not see the expected records.
var errDemoMismatch = errors.New("demo round trip mismatch")

func expectCount(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s: got %d, want %d", errDemoMismatch, what, got, want)
	}
	return nil
}

func printMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			fmt.Fprintf(out, "%s%s %g\n", mf.GetName(), labels, value)
		}
	}
	return nil
}
