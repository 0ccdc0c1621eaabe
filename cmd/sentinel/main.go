// Command sentinel is the operator CLI for the Snapshot & Change Engine: it
// talks to the same Central Repository the sentineld daemon writes to, and
// drives on-demand scans through the Scan Queue.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentineldb/sentinel/internal/config"
	"github.com/sentineldb/sentinel/internal/repository"
)

var (
	configPath string
	repo       repository.Repository
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Operator CLI for the sentinel Snapshot & Change Engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		appCfg, err := config.LoadAppConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		repo, err = repository.New(cmd.Context(), &repository.Config{
			Backend:  appCfg.Repository.Backend,
			Path:     appCfg.Repository.Path,
			Host:     appCfg.Repository.Host,
			Port:     appCfg.Repository.Port,
			Database: appCfg.Repository.Database,
			User:     appCfg.Repository.User,
			Password: appCfg.Repository.Password,
			SSLMode:  appCfg.Repository.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if repo != nil {
			repo.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "sentinel.yaml", "path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
