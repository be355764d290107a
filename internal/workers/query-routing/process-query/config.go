// internal/workers/query-routing/process-query/config.go
package processquery

import (
	"time"

	"query-router/internal/common/config"
)

type Config struct {
	PipelineTimeout time.Duration
	SuggestionLimit int
}

func NewConfig(r config.RouterConfig) *Config {
	return &Config{
		PipelineTimeout: config.GetDuration(r.PipelineTimeout),
		SuggestionLimit: r.SuggestionLimit,
	}
}
