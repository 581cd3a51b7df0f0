// internal/workers/data-access/query-providers/handler.go
package queryproviders

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
	"leadalloc-workers/internal/workers/data-access/query-providers/queries"
	"leadalloc-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/lib/pq"
)

const (
	TaskType = "query-providers"
)

var (
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config   *Config
	es       *elasticsearch.Client
	db       *sql.DB
	activity *registry.Activity
	logger   logger.Logger
}

func NewHandler(config *Config, es *elasticsearch.Client, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		es:     es,
		db:     db,
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
		errorCode := "QUERY_EXECUTION_FAILED"
		if errors.Is(err, ErrInvalidQueryType) {
			errorCode = "INVALID_QUERY_TYPE"
		} else if errors.Is(err, ErrQueryTimeout) {
			errorCode = "QUERY_TIMEOUT"
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
	if input.QueryType != "provider_search" && input.QueryType != "provider_by_ids" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
	}

	q := queries.ProviderQuery{
		Index:       h.config.Index,
		QueryType:   input.QueryType,
		Suburb:      input.Suburb,
		City:        input.City,
		Category:    input.Category,
		MinRating:   input.MinRating,
		ProviderIDs: input.ProviderIDs,
	}
	q.Pagination.From = input.Pagination.From
	q.Pagination.Size = input.Pagination.Size

	result, err := queries.Execute(ctx, h.es, q)
	if err == nil {
		return &Output{
			Data:      result.Data,
			TotalHits: result.TotalHits,
			Source:    "elasticsearch",
			Took:      result.Took,
		}, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrQueryTimeout
	}
	if errors.Is(err, queries.ErrUnknownQueryType) || errors.Is(err, queries.ErrMissingIndex) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQueryType, err)
	}

	h.logger.Warn("search cluster unavailable, falling back to postgres", map[string]interface{}{
		"queryType": input.QueryType,
		"error":     err.Error(),
	})

	return h.queryPostgres(ctx, input)
}

func (h *Handler) queryPostgres(ctx context.Context, input *Input) (*Output, error) {
	size := input.Pagination.Size
	if size < 1 || size > 100 {
		size = 20
	}

	start := time.Now()
	var rows *sql.Rows
	var err error
	switch input.QueryType {
	case "provider_by_ids":
		rows, err = h.db.QueryContext(ctx, `
			SELECT id, verification_status, service_areas, average_rating, total_reviews,
			       response_time_hours, subscription_tier, credit_balance,
			       monthly_lead_limit, leads_used_this_month
			FROM providers WHERE id = ANY($1)`, pq.Array(input.ProviderIDs))
	default:
		rows, err = h.db.QueryContext(ctx, `
			SELECT id, verification_status, service_areas, average_rating, total_reviews,
			       response_time_hours, subscription_tier, credit_balance,
			       monthly_lead_limit, leads_used_this_month
			FROM providers
			WHERE verification_status = 'verified'
			  AND (service_areas::text ILIKE '%' || $1 || '%'
			       OR service_areas::text ILIKE '%' || $2 || '%')
			LIMIT $3`, input.Suburb, input.City, size)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrQueryTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	var data []map[string]interface{}
	for rows.Next() {
		var (
			id, status                           string
			areas                                []byte
			rating, responseHours, credits       float64
			reviews, monthlyLimit, usedThisMonth int
			tier                                 sql.NullString
		)
		err := rows.Scan(&id, &status, &areas, &rating, &reviews,
			&responseHours, &tier, &credits, &monthlyLimit, &usedThisMonth)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
		}

		var serviceAreas []string
		if err := json.Unmarshal(areas, &serviceAreas); err != nil {
			serviceAreas = []string{}
		}

		data = append(data, map[string]interface{}{
			"id":                    id,
			"verification_status":   status,
			"service_areas":         serviceAreas,
			"average_rating":        rating,
			"total_reviews":         reviews,
			"response_time_hours":   responseHours,
			"subscription_tier":     tier.String,
			"credit_balance":        credits,
			"monthly_lead_limit":    monthlyLimit,
			"leads_used_this_month": usedThisMonth,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	return &Output{
		Data:      data,
		TotalHits: int64(len(data)),
		Source:    "postgres",
		Took:      time.Since(start).Milliseconds(),
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
