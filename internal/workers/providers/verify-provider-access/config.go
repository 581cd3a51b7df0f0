// internal/workers/providers/verify-provider-access/config.go
package verifyprovideraccess

import "time"

type Config struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CacheTTL: 5 * time.Minute,
		Timeout:  10 * time.Second,
	}
}
