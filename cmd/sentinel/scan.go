package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentineldb/sentinel/internal/contracts"
	"github.com/sentineldb/sentinel/internal/extractor"
	pgextractor "github.com/sentineldb/sentinel/internal/extractor/postgres"
	"github.com/sentineldb/sentinel/internal/orchestrator"
	"github.com/sentineldb/sentinel/internal/types"
)

var (
	scanTargetsFile string
	scanTenantID    int
	scanEnvironment string
	scanAll         bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan across targets in the foreground",
	Long: `Run a full or single-tenant scan immediately and print its summary.

This runs the Scanner/Orchestrator in the foreground of the CLI process; it
does not require sentineld to be running, since it opens the same Central
Repository directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		provider, err := orchestrator.LoadTargetProvider(scanTargetsFile)
		if err != nil {
			return fmt.Errorf("load target file %s: %w", scanTargetsFile, err)
		}

		ext := extractor.New(pgextractor.DriverName, pgextractor.Querier{}, 10)
		cfg := orchestrator.DefaultConfig()
		cfg.Scheduler.RunOnStartup = false

		o, err := orchestrator.New(repo, ext, contracts.NoopNotifier{}, passthroughDecryptor{}, provider, nil, nil, cfg)
		if err != nil {
			return fmt.Errorf("create orchestrator: %w", err)
		}

		triggeredBy := "cli"
		var log *types.ScanLog
		if scanTenantID != 0 {
			var env *types.Environment
			if scanEnvironment != "" {
				e := types.Environment(scanEnvironment)
				env = &e
			}
			log, err = o.RunSingleScan(ctx, scanTenantID, env, types.TriggerManual, &triggeredBy, scanAll)
		} else {
			log, err = o.RunFullScan(ctx, types.TriggerManual, &triggeredBy, cfg.Scheduler.MaxParallelTenants, scanAll)
		}
		if err != nil {
			return fmt.Errorf("run scan: %w", err)
		}

		printScanSummary(log)
		return nil
	},
}

func printScanSummary(log *types.ScanLog) {
	statusColor := color.New(color.FgGreen).SprintFunc()
	switch log.Status {
	case types.ScanStatusCompletedWithErrors:
		statusColor = color.New(color.FgYellow).SprintFunc()
	case types.ScanStatusFailed:
		statusColor = color.New(color.FgRed).SprintFunc()
	}
	fmt.Printf("scan #%d: %s\n", log.ID, statusColor(string(log.Status)))
	fmt.Printf("  tenants=%d environments=%d objects=%d changes=%d errors=%d\n",
		log.TotalTenants, log.TotalEnvironments, log.TotalObjectsScanned, log.TotalChangesDetected, log.TotalErrors)
	if log.ErrorSummary != nil {
		fmt.Fprintf(os.Stderr, "errors:\n%s\n", *log.ErrorSummary)
	}
}

// passthroughDecryptor is the CLI's default Decryptor: it treats the
// connection config's EncryptedPassword field as already-plain text. A
// production deployment wires a real Decryptor before the daemon starts;
// the CLI's foreground scan path uses the same contract for symmetry with
// the daemon's RunFullScan/RunSingleScan calls.
type passthroughDecryptor struct{}

func (passthroughDecryptor) Decrypt(ctx context.Context, opaque string) (string, error) {
	return opaque, nil
}

func init() {
	scanCmd.Flags().StringVar(&scanTargetsFile, "targets", "targets.yaml", "path to the YAML target/connection file")
	scanCmd.Flags().IntVar(&scanTenantID, "tenant", 0, "restrict the scan to one tenant ID (0 = all tenants)")
	scanCmd.Flags().StringVar(&scanEnvironment, "environment", "", "restrict the scan to one environment (requires --tenant)")
	scanCmd.Flags().BoolVar(&scanAll, "scan-all", false, "ignore the tracked-object inclusion filter and scan every object")
	rootCmd.AddCommand(scanCmd)
}
