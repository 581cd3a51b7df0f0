// internal/workers/leads/summarize-allocation/handler.go
package summarizeallocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadalloc-workers/internal/allocation"
	commonerrors "leadalloc-workers/internal/common/errors"
	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/internal/common/metrics"
	"leadalloc-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "summarize-allocation"
)

var (
	ErrResultInvalid = errors.New("SUMMARY_FAILED")
)

type Handler struct {
	config   *Config
	activity *registry.Activity
	logger   logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithActivity attaches the registry entry whose input schema gates job
// payloads before execution.
func (h *Handler) WithActivity(a *registry.Activity) *Handler {
	h.activity = a
	return h
}

func (h *Handler) validateInput(variables string) error {
	if h.activity == nil {
		return nil
	}
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &vars); err != nil {
		return err
	}
	return h.activity.ValidateInput(vars)
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "PARSE_ERROR").Inc()
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	if err := h.validateInput(job.Variables); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "VALIDATION_FAILED").Inc()
		h.failJob(client, job, "VALIDATION_FAILED", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "SUMMARY_FAILED").Inc()
		h.failJob(client, job, "SUMMARY_FAILED", err.Error())
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	for _, r := range input.Results {
		if r.ProviderID == "" {
			return nil, fmt.Errorf("%w: result without provider id", ErrResultInvalid)
		}
		if r.Score < 0 || r.Score > 100 {
			return nil, fmt.Errorf("%w: score out of range for %s: %d", ErrResultInvalid, r.ProviderID, r.Score)
		}
	}

	summary := allocation.Summarize(input.Results)

	h.logger.Info("summary built", map[string]interface{}{
		"allocationId": input.AllocationID,
		"total":        summary.Total,
		"averageScore": summary.AverageScore,
	})

	return &Output{
		AllocationID: input.AllocationID,
		LeadID:       input.LeadID,
		Summary:      summary,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	if commonerrors.ShouldRetry(errorCode, job.Retries) {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(job.Retries - 1).
			ErrorMessage(errorMessage).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
