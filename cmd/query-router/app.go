// cmd/query-router/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"query-router/internal/catalog"
	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/common/llm"
	"query-router/internal/common/logger"
	"query-router/internal/common/observability"
	"query-router/internal/common/vectordb"
	"query-router/internal/operations"
	classifyintent "query-router/internal/workers/query-routing/classify-intent"
	executeoperation "query-router/internal/workers/query-routing/execute-operation"
	extractparameters "query-router/internal/workers/query-routing/extract-parameters"
	formatresponse "query-router/internal/workers/query-routing/format-response"
	matchfunction "query-router/internal/workers/query-routing/match-function"
	processquery "query-router/internal/workers/query-routing/process-query"

	"go.uber.org/zap"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	zapLog  *zap.Logger
	log     logger.Logger
	obs     *observability.Observability
	pg      *database.PostgresClient
	es      *database.ElasticsearchClient
	catalog *catalog.Catalog

	generator *llm.LangChainGenerator
	embedder  *llm.LangChainEmbedder
	index     *vectordb.WeaviateIndex

	stages stages
	router *processquery.Handler
}

// stages are the pipeline steps. The router composes them in process, and
// each one can also be driven as its own Zeebe task.
type stages struct {
	classifier *classifyintent.Handler
	matcher    *matchfunction.Handler
	extractor  *extractparameters.Handler
	executor   *executeoperation.Handler
	formatter  *formatresponse.Handler
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// newApp connects to every backing service and builds the pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service":     cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	a := &app{cfg: cfg, zapLog: zapLog, log: log}

	a.obs, err = observability.New(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	err = retryWithBackoff(func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		a.pg = pg
		return nil
	}, 5, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	log.Info("PostgreSQL connected successfully", nil)

	store := operations.NewStore(a.pg.DB, nil, cfg.Database.Elasticsearch.ProductIndex)
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			err = es.Ping(ctx)
		}
		if err != nil {
			log.Warn("elasticsearch unavailable, product search disabled", map[string]interface{}{"error": err.Error()})
		} else {
			a.es = es
			store = operations.NewStore(a.pg.DB, es.Client, cfg.Database.Elasticsearch.ProductIndex)
		}
	}

	a.catalog, err = catalog.New(store.Definitions()...)
	if err != nil {
		log.Error("operation catalog is invalid", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if a.generator, err = llm.NewGenerator(cfg.LLM); err != nil {
		return nil, err
	}
	if a.embedder, err = llm.NewEmbedder(cfg.Embedding); err != nil {
		return nil, err
	}
	if a.index, err = vectordb.NewWeaviateIndex(cfg.Weaviate); err != nil {
		return nil, err
	}

	a.router = a.buildRouter()
	log.Info("router ready", map[string]interface{}{
		"operations": a.catalog.Len(),
		"categories": a.catalog.Categories(),
		"llm":        cfg.LLM.Provider + "/" + cfg.LLM.Model,
	})
	return a, nil
}

func (a *app) buildRouter() *processquery.Handler {
	r := a.cfg.Router
	extractor := extractparameters.NewHandler(extractparameters.NewConfig(r), a.catalog, a.generator, a.log)
	a.stages = stages{
		classifier: classifyintent.NewHandler(classifyintent.NewConfig(r), a.generator, a.log),
		matcher:    matchfunction.NewHandler(matchfunction.NewConfig(r), a.catalog, a.embedder, a.index, a.generator, extractor, a.log),
		extractor:  extractor,
		executor:   executeoperation.NewHandler(executeoperation.NewConfig(r), a.catalog, a.log),
		formatter:  formatresponse.NewHandler(formatresponse.NewConfig(r), a.catalog, a.generator, a.log),
	}

	return processquery.NewHandler(processquery.NewConfig(r), processquery.Dependencies{
		Catalog:       a.catalog,
		Classifier:    a.stages.classifier,
		Matcher:       a.stages.matcher,
		Executor:      a.stages.executor,
		Formatter:     a.stages.formatter,
		Observability: a.obs,
	}, a.log)
}

func (a *app) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.obs.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("observability shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	_ = a.zapLog.Sync()
}
