// Package config provides configuration management for geokeeper services.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ServiceConfig holds configuration for the transformation service.
type ServiceConfig struct {
	Host           string
	Port           int
	HTTPPort       int
	RequestTimeout time.Duration
	MaxWaypoints   int
	MaxBatchPoints int
	GridDir        string
	DataDir        string
	AccuracyPolicy string
	MatchLimit     int
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:           "0.0.0.0",
		Port:           50051,
		HTTPPort:       8080,
		RequestTimeout: 30 * time.Second,
		MaxWaypoints:   16,
		MaxBatchPoints: 10000,
		GridDir:        "./grids",
		DataDir:        "./data",
		AccuracyPolicy: "poison",
		MatchLimit:     10,
	}
}

// DatabaseURL returns the reference catalog database URL.
// GK_DATABASE_URL wins; otherwise a SQLite file under DataDir.
func (c *ServiceConfig) DatabaseURL() string {
	if val := strings.TrimSpace(os.Getenv("GK_DATABASE_URL")); val != "" {
		return val
	}
	return "sqlite://" + filepath.ToSlash(filepath.Join(c.DataDir, "geokeeper.db"))
}

// HasCredentials reports whether a database URL embeds a password.
func HasCredentials(dbURL string) bool {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return false
	}
	_, ok := u.User.Password()
	return ok
}

// RedactURL hides the password of a database URL for logging.
func RedactURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

// ValidateGridDir checks that the grid directory exists when configured.
func ValidateGridDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("grid_dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("grid_dir %s is not a directory", dir)
	}
	return nil
}
