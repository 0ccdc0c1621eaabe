package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig is the daemon's root configuration, loaded from a YAML file and
// then overlaid with environment variables (env wins).
type AppConfig struct {
	Scheduler       SchedulerConfig            `yaml:"scheduler"`
	Queue           QueueConfig                `yaml:"queue"`
	CustomDetection CustomDetectionConfig      `yaml:"customDetection"`
	InstanceCleanup InstanceCleanupConfig      `yaml:"instanceCleanup"`
	Retention       ScanHistoryRetentionConfig `yaml:"retention"`

	Repository struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"repository"`
}

// DefaultAppConfig returns the full default configuration.
func DefaultAppConfig() AppConfig {
	cfg := AppConfig{
		Scheduler:       DefaultSchedulerConfig(),
		Queue:           DefaultQueueConfig(),
		CustomDetection: DefaultCustomDetectionConfig(),
		InstanceCleanup: DefaultInstanceCleanupConfig(),
		Retention:       DefaultScanHistoryRetentionConfig(),
	}
	cfg.Repository.Backend = "sqlite"
	cfg.Repository.Path = "sentinel.db"
	return cfg
}

// Validate checks every sub-configuration.
func (c AppConfig) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	if err := c.InstanceCleanup.Validate(); err != nil {
		return err
	}
	if err := c.Retention.Validate(); err != nil {
		return err
	}
	if c.Repository.Backend != "sqlite" && c.Repository.Backend != "postgres" {
		return fmt.Errorf("repository.backend must be \"sqlite\" or \"postgres\" (got %q)", c.Repository.Backend)
	}
	return nil
}

// LoadAppConfig reads path as YAML into the defaults (missing fields keep
// their default), then overlays SENTINEL_* environment variables, then
// validates.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if sched, err := SchedulerConfigFromEnv(); err == nil {
		cfg.Scheduler = mergeScheduler(cfg.Scheduler, sched)
	} else {
		return cfg, err
	}
	if q, err := QueueConfigFromEnv(); err == nil {
		cfg.Queue = mergeQueue(cfg.Queue, q)
	} else {
		return cfg, err
	}
	if cd, err := CustomDetectionConfigFromEnv(); err == nil {
		if cd.ByConvention != DefaultCustomDetectionConfig().ByConvention {
			cfg.CustomDetection = cd
		}
	} else {
		return cfg, err
	}
	if ic, err := InstanceCleanupConfigFromEnv(); err == nil {
		cfg.InstanceCleanup = mergeInstanceCleanup(cfg.InstanceCleanup, ic)
	} else {
		return cfg, err
	}
	if r, err := ScanHistoryRetentionConfigFromEnv(); err == nil {
		cfg.Retention = mergeRetention(cfg.Retention, r)
	} else {
		return cfg, err
	}

	if err := parseEnvString("SENTINEL_REPOSITORY_BACKEND", &cfg.Repository.Backend); err != nil {
		return cfg, err
	}
	if err := parseEnvString("SENTINEL_REPOSITORY_PATH", &cfg.Repository.Path); err != nil {
		return cfg, err
	}
	if err := parseEnvString("SENTINEL_REPOSITORY_HOST", &cfg.Repository.Host); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("SENTINEL_REPOSITORY_PORT", &cfg.Repository.Port); err != nil {
		return cfg, err
	}
	if err := parseEnvString("SENTINEL_REPOSITORY_DATABASE", &cfg.Repository.Database); err != nil {
		return cfg, err
	}
	if err := parseEnvString("SENTINEL_REPOSITORY_USER", &cfg.Repository.User); err != nil {
		return cfg, err
	}
	if err := parseEnvString("SENTINEL_REPOSITORY_PASSWORD", &cfg.Repository.Password); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeScheduler takes fromEnv's fields only where they differ from the
// package defaults, since SchedulerConfigFromEnv itself starts from
// defaults rather than from the YAML-loaded base.
func mergeScheduler(base, fromEnv SchedulerConfig) SchedulerConfig {
	defaults := DefaultSchedulerConfig()
	if fromEnv.IntervalMinutes != defaults.IntervalMinutes {
		base.IntervalMinutes = fromEnv.IntervalMinutes
	}
	if fromEnv.MaxParallelTenants != defaults.MaxParallelTenants {
		base.MaxParallelTenants = fromEnv.MaxParallelTenants
	}
	if fromEnv.ConnectionTimeoutSeconds != defaults.ConnectionTimeoutSeconds {
		base.ConnectionTimeoutSeconds = fromEnv.ConnectionTimeoutSeconds
	}
	if fromEnv.RunOnStartup != defaults.RunOnStartup {
		base.RunOnStartup = fromEnv.RunOnStartup
	}
	return base
}

func mergeQueue(base, fromEnv QueueConfig) QueueConfig {
	if fromEnv.Capacity != DefaultQueueConfig().Capacity {
		base.Capacity = fromEnv.Capacity
	}
	return base
}

func mergeInstanceCleanup(base, fromEnv InstanceCleanupConfig) InstanceCleanupConfig {
	defaults := DefaultInstanceCleanupConfig()
	if fromEnv.CleanupAgeHours != defaults.CleanupAgeHours {
		base.CleanupAgeHours = fromEnv.CleanupAgeHours
	}
	if fromEnv.CleanupKeep != defaults.CleanupKeep {
		base.CleanupKeep = fromEnv.CleanupKeep
	}
	return base
}

func mergeRetention(base, fromEnv ScanHistoryRetentionConfig) ScanHistoryRetentionConfig {
	defaults := DefaultScanHistoryRetentionConfig()
	if fromEnv.RetentionDays != defaults.RetentionDays {
		base.RetentionDays = fromEnv.RetentionDays
	}
	if fromEnv.RetentionCriticalDays != defaults.RetentionCriticalDays {
		base.RetentionCriticalDays = fromEnv.RetentionCriticalDays
	}
	if fromEnv.GlobalLimitScanLogs != defaults.GlobalLimitScanLogs {
		base.GlobalLimitScanLogs = fromEnv.GlobalLimitScanLogs
	}
	if fromEnv.CleanupIntervalHours != defaults.CleanupIntervalHours {
		base.CleanupIntervalHours = fromEnv.CleanupIntervalHours
	}
	if fromEnv.CleanupBatchSize != defaults.CleanupBatchSize {
		base.CleanupBatchSize = fromEnv.CleanupBatchSize
	}
	if fromEnv.CleanupEnabled != defaults.CleanupEnabled {
		base.CleanupEnabled = fromEnv.CleanupEnabled
	}
	if fromEnv.CleanupStrategy != defaults.CleanupStrategy {
		base.CleanupStrategy = fromEnv.CleanupStrategy
	}
	if fromEnv.CleanupVacuum != defaults.CleanupVacuum {
		base.CleanupVacuum = fromEnv.CleanupVacuum
	}
	return base
}
