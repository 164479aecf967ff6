package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServiceConfig
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", 50051)
	v.SetDefault("service.http_port", 8080)
	v.SetDefault("service.request_timeout", "30s")
	v.SetDefault("service.max_waypoints", 16)
	v.SetDefault("service.max_batch_points", 10000)
	v.SetDefault("service.grid_dir", "./grids")
	v.SetDefault("service.data_dir", "./data")
	v.SetDefault("service.accuracy_policy", "poison")
	v.SetDefault("service.match_limit", 10)

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject credentials in config files
	// Checked before env binding so GK_DATABASE_URL is never flagged
	if err := validateNoCredentialsInConfig(v); err != nil {
		return nil, err
	}

	// Bind environment variables with GK_ prefix
	v.SetEnvPrefix("GK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &ServiceConfig{
		Host:           v.GetString("service.host"),
		Port:           v.GetInt("service.port"),
		HTTPPort:       v.GetInt("service.http_port"),
		RequestTimeout: v.GetDuration("service.request_timeout"),
		MaxWaypoints:   v.GetInt("service.max_waypoints"),
		MaxBatchPoints: v.GetInt("service.max_batch_points"),
		GridDir:        v.GetString("service.grid_dir"),
		DataDir:        v.GetString("service.data_dir"),
		AccuracyPolicy: strings.ToLower(v.GetString("service.accuracy_policy")),
		MatchLimit:     v.GetInt("service.match_limit"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges, positive limits and the accuracy policy name.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535, got %d", cfg.HTTPPort)
	}
	if cfg.HTTPPort != 0 && cfg.HTTPPort == cfg.Port {
		return fmt.Errorf("http_port must differ from port %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxWaypoints < 2 {
		return fmt.Errorf("max_waypoints must be at least 2, got %d", cfg.MaxWaypoints)
	}
	if cfg.MaxBatchPoints <= 0 {
		return fmt.Errorf("max_batch_points must be positive, got %d", cfg.MaxBatchPoints)
	}
	if cfg.MatchLimit < 0 {
		return fmt.Errorf("match_limit must not be negative, got %d", cfg.MatchLimit)
	}
	switch cfg.AccuracyPolicy {
	case "poison", "sum_known":
	default:
		return fmt.Errorf("accuracy_policy must be poison or sum_known, got %q", cfg.AccuracyPolicy)
	}
	return nil
}

// validateNoCredentialsInConfig enforces environment-only credentials (12-factor principle).
func validateNoCredentialsInConfig(v *viper.Viper) error {
	for _, key := range []string{"database_url", "service.database_url"} {
		if v.InConfig(key) && HasCredentials(v.GetString(key)) {
			return fmt.Errorf("database credentials not allowed in config files (use GK_DATABASE_URL environment variable)")
		}
	}
	return nil
}
