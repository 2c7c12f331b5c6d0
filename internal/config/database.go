package config

import "time"

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL          string
	QueryTimeout time.Duration
}

// GetConnectionString returns the PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return c.URL
}
