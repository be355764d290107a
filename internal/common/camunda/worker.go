package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// WorkerConfig controls one job subscription.
type WorkerConfig struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type Worker struct {
	worker   worker.JobWorker
	logger   Logger
	taskType string
}

// StartWorker opens a job worker for cfg.TaskType.
func StartWorker(client zbc.Client, cfg WorkerConfig, handler worker.JobHandler, logger Logger) *Worker {
	jobWorker := client.NewJobWorker().
		JobType(cfg.TaskType).
		Handler(handler).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(cfg.Timeout).
		Open()

	logger.Info("worker started", map[string]interface{}{
		"taskType":      cfg.TaskType,
		"maxJobsActive": cfg.MaxJobsActive,
		"timeout":       cfg.Timeout.String(),
	})
	return &Worker{worker: jobWorker, logger: logger, taskType: cfg.TaskType}
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}

// DecodeVariables unmarshals job variables into v.
func DecodeVariables(job entities.Job, v interface{}) error {
	if err := json.Unmarshal([]byte(job.Variables), v); err != nil {
		return fmt.Errorf("parse job variables: %w", err)
	}
	return nil
}

// CompleteJob completes the job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete command: %w", err)
	}
	return nil
}
