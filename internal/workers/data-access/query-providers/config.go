// internal/workers/data-access/query-providers/config.go
package queryproviders

import "time"

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Index:   "providers",
		Timeout: 30 * time.Second,
	}
}
