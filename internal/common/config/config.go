package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Camunda       CamundaConfig       `mapstructure:"camunda"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Weaviate      WeaviateConfig      `mapstructure:"weaviate"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Router        RouterConfig        `mapstructure:"router"`
	Indexer       IndexerConfig       `mapstructure:"indexer"`
	Session       SessionConfig       `mapstructure:"session"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// CamundaConfig is optional. An empty broker address disables the workflow
// workers. TaskType names the whole-pipeline job; Workers overrides the
// defaults per task type, including the single-stage ones.
type CamundaConfig struct {
	BrokerAddress string                  `mapstructure:"broker_address"`
	TaskType      string                  `mapstructure:"task_type"`
	MaxJobsActive int                     `mapstructure:"max_jobs_active"`
	Timeout       int                     `mapstructure:"timeout"` // milliseconds
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
}

type WorkerConfig struct {
	Disabled      bool `mapstructure:"disabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// Worker returns the settings for taskType, falling back to the shared
// max_jobs_active and timeout.
func (c CamundaConfig) Worker(taskType string) WorkerConfig {
	w := c.Workers[taskType]
	if w.MaxJobsActive == 0 {
		w.MaxJobsActive = c.MaxJobsActive
	}
	if w.Timeout == 0 {
		w.Timeout = c.Timeout
	}
	return w
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ProductIndex string   `mapstructure:"product_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WeaviateConfig points at the vector index holding phrase patterns.
type WeaviateConfig struct {
	Host         string `mapstructure:"host"`
	Scheme       string `mapstructure:"scheme"`
	APIKey       string `mapstructure:"api_key"`
	PatternClass string `mapstructure:"pattern_class"`
}

// LLMConfig selects the text generation backend. Provider is "openai" or "ollama".
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Dimension int    `mapstructure:"dimension"`
}

// RouterConfig holds the matching thresholds and per-call timeouts (ms).
type RouterConfig struct {
	CertaintyFloor     float64 `mapstructure:"certainty_floor"`
	CandidateLimit     int     `mapstructure:"candidate_limit"`
	FallbackConfidence float64 `mapstructure:"fallback_confidence"`
	HistoryTurns       int     `mapstructure:"history_turns"`
	SuggestionLimit    int     `mapstructure:"suggestion_limit"`

	ClassifyTimeout int `mapstructure:"classify_timeout"`
	EmbedTimeout    int `mapstructure:"embed_timeout"`
	SearchTimeout   int `mapstructure:"search_timeout"`
	RankTimeout     int `mapstructure:"rank_timeout"`
	ExtractTimeout  int `mapstructure:"extract_timeout"`
	FallbackTimeout int `mapstructure:"fallback_timeout"`
	ExecuteTimeout  int `mapstructure:"execute_timeout"`
	FormatTimeout   int `mapstructure:"format_timeout"`
	PipelineTimeout int `mapstructure:"pipeline_timeout"`
}

type IndexerConfig struct {
	ParaphrasesPerExample int     `mapstructure:"paraphrases_per_example"`
	Concurrency           int     `mapstructure:"concurrency"`
	RequestsPerSecond     float64 `mapstructure:"requests_per_second"`
	BatchSize             int     `mapstructure:"batch_size"`
	Recreate              bool    `mapstructure:"recreate"`
}

type SessionConfig struct {
	TTL      int `mapstructure:"ttl"` // seconds
	MaxTurns int `mapstructure:"max_turns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}
