package domain

import (
	"context"
)

// RiskStratificationEngine maps a validated profile to one target per region.
// Implementations must be pure and safe for concurrent use.
type RiskStratificationEngine interface {
	Evaluate(profile PatientProfile) RegionalTargetSet
}

// ReportCache stores serialized evaluation reports by key
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetCacheConfig() *CacheConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
