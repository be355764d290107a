// internal/workers/query-routing/match-function/config.go
package matchfunction

import (
	"time"

	"query-router/internal/common/config"
)

type Config struct {
	CertaintyFloor     float64
	CandidateLimit     int
	FallbackConfidence float64

	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	RankTimeout     time.Duration
	FallbackTimeout time.Duration
}

func NewConfig(r config.RouterConfig) *Config {
	return &Config{
		CertaintyFloor:     r.CertaintyFloor,
		CandidateLimit:     r.CandidateLimit,
		FallbackConfidence: r.FallbackConfidence,
		EmbedTimeout:       config.GetDuration(r.EmbedTimeout),
		SearchTimeout:      config.GetDuration(r.SearchTimeout),
		RankTimeout:        config.GetDuration(r.RankTimeout),
		FallbackTimeout:    config.GetDuration(r.FallbackTimeout),
	}
}
