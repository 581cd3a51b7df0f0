// internal/workers/leads/allocate-providers/handler.go
package allocateproviders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadalloc-workers/internal/allocation"
	commonerrors "leadalloc-workers/internal/common/errors"
	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/internal/common/metrics"
	"leadalloc-workers/internal/models"
	"leadalloc-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "allocate-providers"
)

var (
	ErrLeadInvalid      = errors.New("LEAD_INVALID")
	ErrAllocationFailed = errors.New("ALLOCATION_FAILED")
)

type Handler struct {
	config   *Config
	engine   *allocation.Engine
	db       *sql.DB
	redis    *redis.Client
	activity *registry.Activity
	logger   logger.Logger
}

func NewHandler(config *Config, engine *allocation.Engine, db *sql.DB, redis *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: engine,
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
		errorCode := "ALLOCATION_FAILED"
		if errors.Is(err, ErrLeadInvalid) {
			errorCode = "LEAD_INVALID"
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
	if err := validateLead(input.Lead); err != nil {
		return nil, err
	}

	candidates := input.Providers
	if len(candidates) == 0 {
		var err error
		candidates, err = h.loadCandidates(ctx, input.Lead.City)
		if err != nil {
			return nil, fmt.Errorf("%w: load candidates: %v", ErrAllocationFailed, err)
		}
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = h.config.MaxResults
	}

	eligible := h.engine.FilterEligible(input.Lead, candidates)
	results := h.engine.Rank(input.Lead, eligible, maxResults)

	if len(candidates) > 0 {
		metrics.EligibleProviderRatio.Observe(float64(len(eligible)) / float64(len(candidates)))
	}
	for priority, count := range resultsByPriority(results) {
		metrics.AllocationResultSize.WithLabelValues(priority).Observe(float64(count))
	}

	h.logger.Info("allocation complete", map[string]interface{}{
		"leadId":     input.Lead.ID,
		"candidates": len(candidates),
		"eligible":   len(eligible),
		"results":    len(results),
	})

	return &Output{
		AllocationID:   uuid.New().String(),
		LeadID:         input.Lead.ID,
		Results:        results,
		EligibleCount:  len(eligible),
		CandidateCount: len(candidates),
	}, nil
}

func resultsByPriority(results []allocation.AllocationResult) map[string]int {
	counts := make(map[string]int, len(results))
	for _, r := range results {
		counts[string(r.Priority)]++
	}
	return counts
}

func validateLead(lead allocation.Lead) error {
	if lead.ID == "" {
		return fmt.Errorf("%w: lead id is required", ErrLeadInvalid)
	}
	if strings.TrimSpace(lead.Suburb) == "" && strings.TrimSpace(lead.City) == "" {
		return fmt.Errorf("%w: lead has no location", ErrLeadInvalid)
	}
	if q := lead.VerificationScore; q != nil && (*q < 0 || *q > 100) {
		return fmt.Errorf("%w: verification score out of range: %d", ErrLeadInvalid, *q)
	}
	return nil
}

func (h *Handler) loadCandidates(ctx context.Context, city string) ([]allocation.ProviderProfile, error) {
	cacheKey := "providers:city:" + strings.ToLower(city)
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var cached []allocation.ProviderProfile
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, verification_status, service_areas, average_rating, total_reviews,
		       response_time_hours, subscription_tier, credit_balance,
		       monthly_lead_limit, leads_used_this_month, updated_at
		FROM providers
		WHERE verification_status = 'verified'
		  AND service_areas::text ILIKE '%' || $1 || '%'`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []allocation.ProviderProfile
	for rows.Next() {
		var p models.Provider
		var areas []byte
		var tier sql.NullString
		err := rows.Scan(&p.ID, &p.VerificationStatus, &areas, &p.AverageRating,
			&p.TotalReviews, &p.ResponseTimeHours, &tier, &p.CreditBalance,
			&p.MonthlyLeadLimit, &p.LeadsUsedThisMonth, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(areas, &p.ServiceAreas); err != nil {
			p.ServiceAreas = []string{}
		}
		p.SubscriptionTier = tier.String
		candidates = append(candidates, p.EngineProfile())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data, _ := json.Marshal(candidates)
	h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)

	return candidates, nil
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
