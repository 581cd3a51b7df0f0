// internal/workers/leads/notify-providers/handler.go
package notifyproviders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadalloc-workers/internal/allocation"
	commonaws "leadalloc-workers/internal/common/aws"
	commonerrors "leadalloc-workers/internal/common/errors"
	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/internal/common/metrics"
	"leadalloc-workers/internal/models"
	"leadalloc-workers/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-providers"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	db        *sql.DB
	activity  *registry.Activity
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	ctx := context.Background()
	sesClient, err := commonaws.NewSESClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SES client: %w", err)
	}
	snsClient, err := commonaws.NewSNSClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SNS client: %w", err)
	}

	return &Handler{
		config:    config,
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: sesClient,
		snsClient: snsClient,
	}, nil
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "NOTIFICATION_SEND_FAILED").Inc()
		h.failJob(client, job, "NOTIFICATION_SEND_FAILED", err.Error())
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.LeadID == "" {
		return nil, fmt.Errorf("%w: lead id is required", ErrNotificationSendFailed)
	}

	output := &Output{LeadID: input.LeadID}

	for _, result := range input.Results {
		n := h.notifyProvider(ctx, input, result)
		output.Notifications = append(output.Notifications, n)
		switch n.Status {
		case StatusSent:
			output.SentCount++
		case StatusFailed:
			output.FailedCount++
		}
	}

	h.logger.Info("providers notified", map[string]interface{}{
		"leadId": input.LeadID,
		"sent":   output.SentCount,
		"failed": output.FailedCount,
	})

	return output, nil
}

// notifyProvider delivers one allocation entry. High priority goes out as
// SMS when the provider has a phone number, everything else as email. A
// missing or unreachable contact disables the notification rather than
// failing the whole batch.
func (h *Handler) notifyProvider(ctx context.Context, input *Input, result allocation.AllocationResult) models.Notification {
	now := time.Now().UTC().Format(time.RFC3339)
	n := models.Notification{
		ID:          uuid.New().String(),
		RecipientID: result.ProviderID,
		LeadID:      input.LeadID,
		SentAt:      now,
		CreatedAt:   now,
	}

	email, phone, err := h.getProviderContact(ctx, result.ProviderID)
	if err != nil {
		h.logger.Warn("provider contact not found", map[string]interface{}{
			"providerId": result.ProviderID,
			"error":      err.Error(),
		})
		n.Status = StatusDisabled
		return n
	}

	subject, body := buildMessage(input, result)

	if result.Priority == allocation.PriorityHigh && h.config.SMSEnabled && phone != "" {
		n.Channel = ChannelSMS
		n.Payload = map[string]interface{}{"message": body}
		if err := h.sendSMS(ctx, phone, body); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"providerId": result.ProviderID,
				"error":      err.Error(),
			})
			n.Status = StatusFailed
			return n
		}
		n.Status = StatusSent
		return n
	}

	if h.config.EmailEnabled && email != "" {
		n.Channel = ChannelEmail
		n.Payload = map[string]interface{}{"subject": subject, "body": body}
		if err := h.sendEmail(ctx, email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"providerId": result.ProviderID,
				"error":      err.Error(),
			})
			n.Status = StatusFailed
			return n
		}
		n.Status = StatusSent
		return n
	}

	n.Status = StatusDisabled
	return n
}

func buildMessage(input *Input, result allocation.AllocationResult) (string, string) {
	title := input.LeadTitle
	if title == "" {
		title = "a new lead"
	}

	subject := fmt.Sprintf("New lead match: %s", title)

	var b strings.Builder
	fmt.Fprintf(&b, "You have been matched with %s (score %d, %s priority).", title, result.Score, result.Priority)
	if len(result.Reasons) > 0 {
		fmt.Fprintf(&b, " Why you: %s.", strings.Join(result.Reasons, ", "))
	}
	fmt.Fprintf(&b, " Lead reference: %s.", input.LeadID)

	return subject, b.String()
}

func (h *Handler) getProviderContact(ctx context.Context, providerID string) (string, string, error) {
	var email, phone string
	query := `SELECT email, phone FROM providers WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, providerID).Scan(&email, &phone)
	return email, phone, err
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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
