// Command sentineld is the daemon entrypoint: it wires the Central
// Repository, Object Extractor and Scanner/Orchestrator together and runs
// the scheduler and queue worker loops until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentineldb/sentinel/internal/config"
	"github.com/sentineldb/sentinel/internal/contracts"
	"github.com/sentineldb/sentinel/internal/extractor"
	pgextractor "github.com/sentineldb/sentinel/internal/extractor/postgres"
	"github.com/sentineldb/sentinel/internal/orchestrator"
	"github.com/sentineldb/sentinel/internal/repository"
)

type passthroughDecryptor struct{}

func (passthroughDecryptor) Decrypt(ctx context.Context, opaque string) (string, error) {
	return opaque, nil
}

func main() {
	configPath := flag.String("config", "sentinel.yaml", "path to the YAML configuration file")
	targetsPath := flag.String("targets", "targets.yaml", "path to the YAML target/connection file")
	flag.Parse()

	ctx := context.Background()

	appCfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

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
		log.Fatalf("failed to open repository: %v", err)
	}
	defer repo.Close()

	provider, err := orchestrator.LoadTargetProvider(*targetsPath)
	if err != nil {
		log.Fatalf("failed to load target file %s: %v", *targetsPath, err)
	}

	ext := extractor.New(pgextractor.DriverName, pgextractor.Querier{}, 10)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.Scheduler = appCfg.Scheduler
	orchCfg.Queue = appCfg.Queue
	orchCfg.CustomDetection = appCfg.CustomDetection
	orchCfg.InstanceCleanup = appCfg.InstanceCleanup
	orchCfg.Retention = appCfg.Retention

	o, err := orchestrator.New(repo, ext, contracts.NoopNotifier{}, passthroughDecryptor{}, provider, nil, nil, orchCfg)
	if err != nil {
		log.Fatalf("failed to create orchestrator: %v", err)
	}

	fmt.Println("Starting sentinel orchestrator...")
	if err := o.Start(ctx); err != nil {
		log.Fatalf("orchestrator failed to start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	fmt.Println("sentineld running. Press Ctrl+C to stop.")
	<-sigCh
	fmt.Println("\nShutting down sentineld...")

	if err := o.Stop(ctx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	fmt.Println("sentineld stopped.")
}
