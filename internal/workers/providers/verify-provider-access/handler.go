// internal/workers/providers/verify-provider-access/handler.go
package verifyprovideraccess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "leadalloc-workers/internal/common/errors"
	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/internal/common/metrics"
	"leadalloc-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "verify-provider-access"
)

var (
	ErrAccessDenied      = errors.New("ACCESS_DENIED")
	ErrProviderNotFound  = errors.New("PROVIDER_NOT_FOUND")
	ErrAccessCheckFailed = errors.New("ACCESS_CHECK_FAILED")
)

type Handler struct {
	config   *Config
	db       *sql.DB
	redis    *redis.Client
	activity *registry.Activity
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redis *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redis,
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
		errorCode := "ACCESS_CHECK_FAILED"
		if errors.Is(err, ErrAccessDenied) {
			errorCode = "ACCESS_DENIED"
		} else if errors.Is(err, ErrProviderNotFound) {
			errorCode = "PROVIDER_NOT_FOUND"
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ProviderID == "" {
		return nil, fmt.Errorf("%w: provider id is required", ErrProviderNotFound)
	}

	access, err := h.getAccess(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}

	if access.VerificationStatus != "verified" {
		return nil, fmt.Errorf("%w: provider %s is %s", ErrAccessDenied, access.ProviderID, access.VerificationStatus)
	}

	if access.SubscriptionTier != "" {
		return &Output{
			HasAccess:     true,
			AccessType:    "subscription",
			Tier:          access.SubscriptionTier,
			CreditBalance: access.CreditBalance,
		}, nil
	}
	if access.CreditBalance > 0 {
		return &Output{
			HasAccess:     true,
			AccessType:    "credits",
			CreditBalance: access.CreditBalance,
		}, nil
	}

	return nil, fmt.Errorf("%w: provider %s has no subscription and no credits", ErrAccessDenied, access.ProviderID)
}

func (h *Handler) getAccess(ctx context.Context, providerID string) (*Access, error) {
	cacheKey := "provider:access:" + providerID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var access Access
		if err := json.Unmarshal([]byte(val), &access); err == nil {
			return &access, nil
		}
	}

	var access Access
	var tier sql.NullString
	query := `SELECT id, verification_status, subscription_tier, credit_balance FROM providers WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, providerID).Scan(
		&access.ProviderID, &access.VerificationStatus, &tier, &access.CreditBalance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
		}
		return nil, fmt.Errorf("%w: %v", ErrAccessCheckFailed, err)
	}
	access.SubscriptionTier = tier.String

	data, _ := json.Marshal(access)
	h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)

	return &access, nil
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
