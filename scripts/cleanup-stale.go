// scripts/cleanup-stale.go - Manual stale orchestrator instance cleanup tool
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sentineldb/sentinel/internal/config"
	"github.com/sentineldb/sentinel/internal/repository"
)

// staleThreshold is how long an instance may miss heartbeats before being
// marked stopped; deletion age and keep floor come from the config file.
const staleThreshold = 5 * time.Minute

func main() {
	ctx := context.Background()

	configPath := "sentinel.yaml"
	if p := os.Getenv("SENTINEL_CONFIG_PATH"); p != "" {
		configPath = p
	}

	appCfg, err := config.LoadAppConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connecting to repository (%s)...\n", appCfg.Repository.Backend)

	repo, err := repository.New(ctx, &repository.Config{
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
		fmt.Fprintf(os.Stderr, "Error opening repository: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	fmt.Printf("Running cleanup (stale threshold: %s)...\n", staleThreshold)

	cleaned, err := repo.CleanupStaleInstances(ctx, staleThreshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during cleanup: %v\n", err)
		os.Exit(1)
	}

	if cleaned > 0 {
		fmt.Printf("marked %d stale orchestrator instance(s) as stopped\n", cleaned)
	} else {
		fmt.Println("no stale instances found")
	}

	age := appCfg.InstanceCleanup.CleanupAge()
	if age <= 0 {
		fmt.Println("old-instance deletion disabled (cleanup age is 0)")
		return
	}

	deleted, err := repo.DeleteOldStoppedInstances(ctx, age, appCfg.InstanceCleanup.CleanupKeep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting old stopped instances: %v\n", err)
		os.Exit(1)
	}

	if deleted > 0 {
		fmt.Printf("deleted %d old stopped instance(s) (older than %s, keeping %d most recent)\n",
			deleted, age, appCfg.InstanceCleanup.CleanupKeep)
	} else {
		fmt.Println("no old stopped instances to delete")
	}
}
