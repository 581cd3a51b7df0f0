// internal/workers/leads/summarize-allocation/config.go
package summarizeallocation

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
