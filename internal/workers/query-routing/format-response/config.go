// internal/workers/query-routing/format-response/config.go
package formatresponse

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
		Timeout:      config.GetDuration(r.FormatTimeout),
		HistoryTurns: r.HistoryTurns,
	}
}
