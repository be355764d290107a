// internal/workers/query-routing/classify-intent/config.go
package classifyintent

import (
	"time"

	"query-router/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	HistoryTurns int
}

func NewConfig(r config.RouterConfig) *Config {
	return &Config{
		Timeout:      config.GetDuration(r.ClassifyTimeout),
		HistoryTurns: r.HistoryTurns,
	}
}
