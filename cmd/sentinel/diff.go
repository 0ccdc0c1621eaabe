package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentineldb/sentinel/internal/orchestrator"
)

var diffCmd = &cobra.Command{
	Use:   "diff [snapshot-id-a] [snapshot-id-b]",
	Short: "Show a line diff between two stored snapshot definitions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idA, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot id %q", args[0])
		}
		idB, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot id %q", args[1])
		}

		o, err := orchestrator.New(repo, nil, nil, nil, noopProvider{}, nil, nil, orchestrator.DefaultConfig())
		if err != nil {
			return err
		}

		res, err := o.DiffSnapshots(context.Background(), idA, idB)
		if err != nil {
			return fmt.Errorf("diff snapshots: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("%s / %s\n", green(fmt.Sprintf("+%d", res.AddedLines)), red(fmt.Sprintf("-%d", res.RemovedLines)))
		fmt.Print(res.Unified)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
