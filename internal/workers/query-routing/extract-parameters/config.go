// internal/workers/query-routing/extract-parameters/config.go
package extractparameters

import (
	"time"

	"query-router/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func NewConfig(r config.RouterConfig) *Config {
	return &Config{Timeout: config.GetDuration(r.ExtractTimeout)}
}
