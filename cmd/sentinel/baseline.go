package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentineldb/sentinel/internal/baseline"
	"github.com/sentineldb/sentinel/internal/comparator"
	"github.com/sentineldb/sentinel/internal/orchestrator"
	"github.com/sentineldb/sentinel/internal/types"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage frozen baselines",
}

var (
	baselineName        string
	baselineDescription string
	baselineTenant      int
	baselineEnvironment string
)

var baselineCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Freeze the latest non-custom snapshots of a target into a new baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := baseline.New(repo)
		meta := types.Baseline{
			Name: baselineName,
			Source: types.Target{
				TenantID:    baselineTenant,
				Environment: types.Environment(baselineEnvironment),
			},
		}
		if baselineDescription != "" {
			meta.Description = &baselineDescription
		}
		created, count, err := mgr.Create(context.Background(), meta)
		if err != nil {
			return fmt.Errorf("create baseline: %w", err)
		}
		fmt.Printf("baseline %q created (id=%d, %d objects frozen)\n", created.Name, created.ID, count)
		return nil
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List baselines",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := baseline.New(repo)
		baselines, err := mgr.List(context.Background())
		if err != nil {
			return err
		}
		for _, b := range baselines {
			fmt.Printf("#%d  %-20s  objects=%-5d  created=%s\n", b.ID, b.Name, b.TotalObjects, b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a baseline by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid baseline id %q", args[0])
		}
		mgr := baseline.New(repo)
		if err := mgr.Delete(context.Background(), id); err != nil {
			return fmt.Errorf("delete baseline: %w", err)
		}
		fmt.Printf("baseline #%d deleted\n", id)
		return nil
	},
}

var (
	baselineCompareTenant      int
	baselineCompareTenantCode  string
	baselineCompareEnvironment string
)

var baselineCompareCmd = &cobra.Command{
	Use:   "compare [id]",
	Short: "Compare a baseline against a target's live latest snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid baseline id %q", args[0])
		}
		live := types.Target{
			TenantID:    baselineCompareTenant,
			TenantCode:  baselineCompareTenantCode,
			Environment: types.Environment(baselineCompareEnvironment),
		}

		o, err := orchestrator.New(repo, nil, nil, nil, noopProvider{}, nil, nil, orchestrator.DefaultConfig())
		if err != nil {
			return err
		}
		entries, err := o.CompareBaseline(context.Background(), id, live, "")
		if err != nil {
			return fmt.Errorf("compare baseline: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		for _, e := range entries {
			switch e.Status {
			case comparator.StatusIdentical:
				fmt.Printf("  %s %s\n", green("="), e.FullName)
			case comparator.StatusDiffers:
				fmt.Printf("  %s %s\n", yellow("~"), e.FullName)
			case comparator.StatusOnlyLeft:
				fmt.Printf("  %s %s (baseline only)\n", red("-"), e.FullName)
			case comparator.StatusOnlyRight:
				fmt.Printf("  %s %s (live only)\n", red("+"), e.FullName)
			}
		}
		return nil
	},
}

func init() {
	baselineCreateCmd.Flags().StringVar(&baselineName, "name", "", "baseline name (required)")
	baselineCreateCmd.Flags().StringVar(&baselineDescription, "description", "", "optional description")
	baselineCreateCmd.Flags().IntVar(&baselineTenant, "tenant", 0, "source tenant ID (required)")
	baselineCreateCmd.Flags().StringVar(&baselineEnvironment, "environment", "Production", "source environment")
	baselineCreateCmd.MarkFlagRequired("name")

	baselineCompareCmd.Flags().IntVar(&baselineCompareTenant, "tenant", 0, "live target's tenant ID")
	baselineCompareCmd.Flags().StringVar(&baselineCompareTenantCode, "tenant-code", "", "live target's tenant code (for custom-object exclusion)")
	baselineCompareCmd.Flags().StringVar(&baselineCompareEnvironment, "environment", "Production", "live target's environment")

	baselineCmd.AddCommand(baselineCreateCmd, baselineListCmd, baselineDeleteCmd, baselineCompareCmd)
	rootCmd.AddCommand(baselineCmd)
}
