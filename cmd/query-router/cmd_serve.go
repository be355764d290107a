// cmd/query-router/cmd_serve.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"query-router/internal/api"
	"query-router/internal/common/camunda"
	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/session"
	classifyintent "query-router/internal/workers/query-routing/classify-intent"
	executeoperation "query-router/internal/workers/query-routing/execute-operation"
	extractparameters "query-router/internal/workers/query-routing/extract-parameters"
	formatresponse "query-router/internal/workers/query-routing/format-response"
	matchfunction "query-router/internal/workers/query-routing/match-function"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/spf13/cobra"
)

var serveWithWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve POST /api/query, GET /api/suggestions, GET /api/categories,
/health, /ready and /metrics.

With --worker the process also subscribes to Zeebe jobs: the task type
configured under camunda.task_type answers {query, history} with the whole
pipeline, and classify-intent, match-function, extract-parameters,
execute-operation and format-response run one stage each. Any of them can
be switched off under camunda.workers.<task type>.disabled.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWorker, "worker", false, "also run the Zeebe job worker")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	checks := map[string]api.Check{
		"postgres": a.pg.Ping,
		"weaviate": a.index.Ready,
	}
	if a.es != nil {
		checks["elasticsearch"] = a.es.Ping
	}

	var sessions api.SessionStore
	if a.cfg.Database.Redis.Address != "" {
		rdb := database.NewRedis(a.cfg.Database.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			a.log.Warn("redis unavailable, session history disabled", map[string]interface{}{"error": err.Error()})
		} else {
			sessions = session.NewRedisStore(rdb.Client, a.cfg.Session)
			checks["redis"] = rdb.Ping
		}
	}

	if serveWithWorker {
		stopWorker, err := startZeebeWorker(ctx, a)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	server := api.NewServer(api.Options{
		ServiceName:     a.cfg.Observability.ServiceName,
		Port:            a.cfg.Server.Port,
		ShutdownTimeout: config.GetDuration(a.cfg.Server.ShutdownTimeout),
		Checks:          checks,
	}, a.router, sessions, a.log)

	return server.Run(ctx)
}

func startZeebeWorker(ctx context.Context, a *app) (func(), error) {
	if a.cfg.Camunda.BrokerAddress == "" {
		a.log.Warn("camunda.broker_address is empty, worker not started", nil)
		return func() {}, nil
	}

	client, err := camunda.NewClient(ctx, a.cfg.Camunda.BrokerAddress)
	if err != nil {
		return nil, err
	}

	var workers []*camunda.Worker
	for _, b := range a.jobBindings() {
		wcfg := a.cfg.Camunda.Worker(b.taskType)
		if wcfg.Disabled {
			a.log.Info("worker disabled", map[string]interface{}{"taskType": b.taskType})
			continue
		}
		workers = append(workers, camunda.StartWorker(client.Zeebe(), camunda.WorkerConfig{
			TaskType:      b.taskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, b.handler, a.log))
	}

	return func() {
		for _, w := range workers {
			w.Stop()
		}
		_ = client.Close()
	}, nil
}

type jobBinding struct {
	taskType string
	handler  worker.JobHandler
}

// jobBindings lists every task type the worker answers.
func (a *app) jobBindings() []jobBinding {
	return []jobBinding{
		{a.cfg.Camunda.TaskType, a.router.Handle},
		{classifyintent.TaskType, a.stages.classifier.Handle},
		{matchfunction.TaskType, a.stages.matcher.Handle},
		{extractparameters.TaskType, a.stages.extractor.Handle},
		{executeoperation.TaskType, a.stages.executor.Handle},
		{formatresponse.TaskType, a.stages.formatter.Handle},
	}
}
