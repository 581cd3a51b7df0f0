// internal/workers/leads/allocate-providers/config.go
package allocateproviders

import "time"

type Config struct {
	CacheTTL   time.Duration
	Timeout    time.Duration
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		CacheTTL:   5 * time.Minute,
		Timeout:    30 * time.Second,
		MaxResults: 5,
	}
}
