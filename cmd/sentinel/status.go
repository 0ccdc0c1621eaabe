package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show orchestrator instances and recent scans",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Sentinel Status ==="))

		instances, err := repo.GetActiveInstances(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list orchestrator instances: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(yellow("Orchestrator Instances:"))
		if len(instances) == 0 {
			fmt.Printf("  %s\n", gray("none registered"))
		}
		for _, inst := range instances {
			statusColor := green
			icon := "●"
			if time.Since(inst.LastHeartbeat) > 2*time.Minute {
				statusColor = yellow
				icon = "⚠"
			}
			fmt.Printf("  %s %s (pid %d on %s)\n", statusColor(icon), inst.InstanceID, inst.PID, inst.Hostname)
			fmt.Printf("    started %s, last heartbeat %s\n",
				inst.StartedAt.Format(time.RFC3339), inst.LastHeartbeat.Format(time.RFC3339))
		}

		logs, err := repo.ListRecentScanLogs(ctx, 5)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list recent scans: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s\n", yellow("Recent Scans:"))
		if len(logs) == 0 {
			fmt.Printf("  %s\n", gray("no scans yet"))
		}
		for _, log := range logs {
			statusColor := green
			switch log.Status {
			case "CompletedWithErrors":
				statusColor = yellow
			case "Failed":
				statusColor = red
			case "Running":
				statusColor = cyan
			}
			fmt.Printf("  #%d %s  %s  tenants=%d environments=%d changes=%d errors=%d\n",
				log.ID, statusColor(log.Status), log.StartedAt.Format(time.RFC3339),
				log.TotalTenants, log.TotalEnvironments, log.TotalChangesDetected, log.TotalErrors)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
