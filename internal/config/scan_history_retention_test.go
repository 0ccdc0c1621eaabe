package config

import (
	"os"
	"testing"
)

func TestScanHistoryRetentionConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, cfg ScanHistoryRetentionConfig)
	}{
		{
			name:    "no environment variables uses defaults",
			envVars: map[string]string{},
			wantErr: false,
			check: func(t *testing.T, cfg ScanHistoryRetentionConfig) {
				defaults := DefaultScanHistoryRetentionConfig()
				if cfg != defaults {
					t.Errorf("cfg = %+v, want defaults %+v", cfg, defaults)
				}
			},
		},
		{
			name: "valid custom configuration",
			envVars: map[string]string{
				"SENTINEL_RETENTION_DAYS":                   "60",
				"SENTINEL_RETENTION_CRITICAL_DAYS":          "180",
				"SENTINEL_RETENTION_GLOBAL_LIMIT":           "200000",
				"SENTINEL_RETENTION_CLEANUP_INTERVAL_HOURS": "12",
				"SENTINEL_RETENTION_CLEANUP_BATCH_SIZE":     "500",
				"SENTINEL_RETENTION_CLEANUP_ENABLED":        "false",
				"SENTINEL_RETENTION_CLEANUP_STRATEGY":       "oldest_first",
				"SENTINEL_RETENTION_CLEANUP_VACUUM":         "true",
			},
			wantErr: false,
			check: func(t *testing.T, cfg ScanHistoryRetentionConfig) {
				if cfg.RetentionDays != 60 {
					t.Errorf("RetentionDays = %v, want 60", cfg.RetentionDays)
				}
				if cfg.RetentionCriticalDays != 180 {
					t.Errorf("RetentionCriticalDays = %v, want 180", cfg.RetentionCriticalDays)
				}
				if cfg.GlobalLimitScanLogs != 200000 {
					t.Errorf("GlobalLimitScanLogs = %v, want 200000", cfg.GlobalLimitScanLogs)
				}
				if cfg.CleanupIntervalHours != 12 {
					t.Errorf("CleanupIntervalHours = %v, want 12", cfg.CleanupIntervalHours)
				}
				if cfg.CleanupBatchSize != 500 {
					t.Errorf("CleanupBatchSize = %v, want 500", cfg.CleanupBatchSize)
				}
				if cfg.CleanupEnabled != false {
					t.Errorf("CleanupEnabled = %v, want false", cfg.CleanupEnabled)
				}
				if cfg.CleanupStrategy != "oldest_first" {
					t.Errorf("CleanupStrategy = %v, want oldest_first", cfg.CleanupStrategy)
				}
				if cfg.CleanupVacuum != true {
					t.Errorf("CleanupVacuum = %v, want true", cfg.CleanupVacuum)
				}
			},
		},
		{
			name: "invalid int value",
			envVars: map[string]string{
				"SENTINEL_RETENTION_DAYS": "not-a-number",
			},
			wantErr: true,
		},
		{
			name: "invalid bool value",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CLEANUP_ENABLED": "maybe",
			},
			wantErr: true,
		},
		{
			name: "retention days out of range - too low",
			envVars: map[string]string{
				"SENTINEL_RETENTION_DAYS": "0",
			},
			wantErr: true,
		},
		{
			name: "retention days out of range - too high",
			envVars: map[string]string{
				"SENTINEL_RETENTION_DAYS": "400",
			},
			wantErr: true,
		},
		{
			name: "critical retention days out of range - too high",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CRITICAL_DAYS": "800",
			},
			wantErr: true,
		},
		{
			name: "critical retention less than regular retention",
			envVars: map[string]string{
				"SENTINEL_RETENTION_DAYS":          "60",
				"SENTINEL_RETENTION_CRITICAL_DAYS": "30",
			},
			wantErr: true,
		},
		{
			name: "global limit too low",
			envVars: map[string]string{
				"SENTINEL_RETENTION_GLOBAL_LIMIT": "500",
			},
			wantErr: true,
		},
		{
			name: "global limit too high",
			envVars: map[string]string{
				"SENTINEL_RETENTION_GLOBAL_LIMIT": "2000000",
			},
			wantErr: true,
		},
		{
			name: "cleanup interval too low",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CLEANUP_INTERVAL_HOURS": "0",
			},
			wantErr: true,
		},
		{
			name: "cleanup interval too high",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CLEANUP_INTERVAL_HOURS": "200",
			},
			wantErr: true,
		},
		{
			name: "batch size too low",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CLEANUP_BATCH_SIZE": "50",
			},
			wantErr: true,
		},
		{
			name: "batch size too high",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CLEANUP_BATCH_SIZE": "20000",
			},
			wantErr: true,
		},
		{
			name: "invalid cleanup strategy",
			envVars: map[string]string{
				"SENTINEL_RETENTION_CLEANUP_STRATEGY": "newest_first",
			},
			wantErr: true,
		},
		{
			name: "partial configuration keeps remaining defaults",
			envVars: map[string]string{
				"SENTINEL_RETENTION_DAYS":         "45",
				"SENTINEL_RETENTION_GLOBAL_LIMIT": "150000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg ScanHistoryRetentionConfig) {
				if cfg.RetentionDays != 45 {
					t.Errorf("RetentionDays = %v, want 45", cfg.RetentionDays)
				}
				if cfg.GlobalLimitScanLogs != 150000 {
					t.Errorf("GlobalLimitScanLogs = %v, want 150000", cfg.GlobalLimitScanLogs)
				}
				defaults := DefaultScanHistoryRetentionConfig()
				if cfg.RetentionCriticalDays != defaults.RetentionCriticalDays {
					t.Errorf("RetentionCriticalDays = %v, want %v (default)", cfg.RetentionCriticalDays, defaults.RetentionCriticalDays)
				}
				if cfg.CleanupStrategy != defaults.CleanupStrategy {
					t.Errorf("CleanupStrategy = %v, want %v (default)", cfg.CleanupStrategy, defaults.CleanupStrategy)
				}
			},
		},
	}

	clearEnv := []string{
		"SENTINEL_RETENTION_DAYS",
		"SENTINEL_RETENTION_CRITICAL_DAYS",
		"SENTINEL_RETENTION_GLOBAL_LIMIT",
		"SENTINEL_RETENTION_CLEANUP_INTERVAL_HOURS",
		"SENTINEL_RETENTION_CLEANUP_BATCH_SIZE",
		"SENTINEL_RETENTION_CLEANUP_ENABLED",
		"SENTINEL_RETENTION_CLEANUP_STRATEGY",
		"SENTINEL_RETENTION_CLEANUP_VACUUM",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range clearEnv {
				_ = os.Unsetenv(key)
			}
			for key, value := range tt.envVars {
				_ = os.Setenv(key, value)
			}
			defer func() {
				for _, key := range clearEnv {
					_ = os.Unsetenv(key)
				}
			}()

			cfg, err := ScanHistoryRetentionConfigFromEnv()
			if (err != nil) != tt.wantErr {
				t.Errorf("ScanHistoryRetentionConfigFromEnv() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestScanHistoryRetentionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ScanHistoryRetentionConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "default config is valid",
			config:  DefaultScanHistoryRetentionConfig(),
			wantErr: false,
		},
		{
			name: "valid config at minimum bounds",
			config: ScanHistoryRetentionConfig{
				RetentionDays:         1,
				RetentionCriticalDays: 1,
				GlobalLimitScanLogs:   1000,
				CleanupIntervalHours:  1,
				CleanupBatchSize:      100,
				CleanupEnabled:        true,
				CleanupStrategy:       "oldest_first",
				CleanupVacuum:         false,
			},
			wantErr: false,
		},
		{
			name: "valid config at maximum bounds",
			config: ScanHistoryRetentionConfig{
				RetentionDays:         365,
				RetentionCriticalDays: 730,
				GlobalLimitScanLogs:   1000000,
				CleanupIntervalHours:  168,
				CleanupBatchSize:      10000,
				CleanupEnabled:        false,
				CleanupStrategy:       "oldest_non_critical",
				CleanupVacuum:         true,
			},
			wantErr: false,
		},
		{
			name: "retention days too low",
			config: ScanHistoryRetentionConfig{
				RetentionDays: 0, RetentionCriticalDays: 90, GlobalLimitScanLogs: 100000,
				CleanupIntervalHours: 24, CleanupBatchSize: 1000, CleanupEnabled: true,
				CleanupStrategy: "oldest_non_critical",
			},
			wantErr: true,
			errMsg:  "retention_days must be between 1 and 365 (got 0)",
		},
		{
			name: "critical retention less than regular retention",
			config: ScanHistoryRetentionConfig{
				RetentionDays: 60, RetentionCriticalDays: 30, GlobalLimitScanLogs: 100000,
				CleanupIntervalHours: 24, CleanupBatchSize: 1000, CleanupEnabled: true,
				CleanupStrategy: "oldest_non_critical",
			},
			wantErr: true,
			errMsg:  "retention_critical_days (30) must be >= retention_days (60)",
		},
		{
			name: "global limit too low",
			config: ScanHistoryRetentionConfig{
				RetentionDays: 30, RetentionCriticalDays: 90, GlobalLimitScanLogs: 500,
				CleanupIntervalHours: 24, CleanupBatchSize: 1000, CleanupEnabled: true,
				CleanupStrategy: "oldest_non_critical",
			},
			wantErr: true,
			errMsg:  "global_limit_scan_logs must be at least 1000 (got 500)",
		},
		{
			name: "invalid cleanup strategy",
			config: ScanHistoryRetentionConfig{
				RetentionDays: 30, RetentionCriticalDays: 90, GlobalLimitScanLogs: 100000,
				CleanupIntervalHours: 24, CleanupBatchSize: 1000, CleanupEnabled: true,
				CleanupStrategy: "random_order",
			},
			wantErr: true,
			errMsg:  "cleanup_strategy must be 'oldest_first' or 'oldest_non_critical' (got \"random_order\")",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err != nil && err.Error() != tt.errMsg {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestScanHistoryRetentionConfigString(t *testing.T) {
	cfg := DefaultScanHistoryRetentionConfig()
	str := cfg.String()

	expected := []string{
		"ScanHistoryRetentionConfig",
		"RetentionDays: 30",
		"RetentionCriticalDays: 90",
		"GlobalLimit: 100000",
		"CleanupInterval: 24h",
		"BatchSize: 1000",
		"Enabled: true",
		"Strategy: oldest_non_critical",
		"Vacuum: false",
	}
	for _, exp := range expected {
		if !containsSubstring(str, exp) {
			t.Errorf("String() = %q, want to contain %q", str, exp)
		}
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
