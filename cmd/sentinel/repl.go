package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive shell for browsing scans and baselines",
	Long: `Start a read-only interactive shell over the Central Repository.

Commands:
  status                 show active orchestrator instances and recent scans
  scans [n]               list the n most recent scan logs (default 10)
  baselines               list baselines
  help                    show this text
  quit / exit             leave the shell`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "sentinel> ",
			AutoComplete:    replCompleter(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("start readline: %w", err)
		}
		defer rl.Close()

		ctx := context.Background()
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err != nil {
				break
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !runReplCommand(ctx, line) {
				break
			}
		}
		return nil
	},
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("status"),
		readline.PcItem("scans"),
		readline.PcItem("baselines"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}

// runReplCommand executes one shell line and reports whether the shell
// should keep reading further lines.
func runReplCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return false
	case "help":
		fmt.Println("status | scans [n] | baselines | quit")
	case "status":
		statusCmd.Run(statusCmd, nil)
	case "scans":
		limit := 10
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				limit = n
			}
		}
		logs, err := repo.ListRecentScanLogs(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		for _, log := range logs {
			fmt.Printf("#%d  %-20s  changes=%d errors=%d\n", log.ID, log.Status, log.TotalChangesDetected, log.TotalErrors)
		}
	case "baselines":
		baselineListCmd.RunE(baselineListCmd, nil)
	default:
		fmt.Printf("unknown command %q; type 'help'\n", fields[0])
	}
	return true
}

func init() {
	rootCmd.AddCommand(replCmd)
}
