// internal/workers/query-routing/execute-operation/config.go
package executeoperation

import (
	"time"

	"query-router/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func NewConfig(r config.RouterConfig) *Config {
	return &Config{Timeout: config.GetDuration(r.ExecuteTimeout)}
}
