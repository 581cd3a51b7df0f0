// internal/workers/leads/notify-providers/handler_test.go
package notifyproviders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"leadalloc-workers/internal/allocation"
	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/pkg/registry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@leadalloc.example",
		AWSRegion:    "af-south-1",
		Timeout:      30 * time.Second,
	}
}

func createTestHandler(t *testing.T, db *sql.DB, mockSES SESService, mockSNS SNSService, config *Config) *Handler {
	if config == nil {
		config = createTestConfig()
	}
	return &Handler{
		config:    config,
		db:        db,
		logger:    logger.NewTestLogger(t),
		sesClient: mockSES,
		snsClient: mockSNS,
	}
}

func createResult(providerID string, score int, priority allocation.Priority) allocation.AllocationResult {
	return allocation.AllocationResult{
		ProviderID: providerID,
		Score:      score,
		Priority:   priority,
		Reasons:    []string{"Excellent rating", "Fast response time"},
	}
}

func expectContactRow(mock sqlmock.Sqlmock, providerID, email, phone string) {
	mock.ExpectQuery(`SELECT email, phone FROM providers WHERE id = \$1`).
		WithArgs(providerID).
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow(email, phone))
}

func okSES() *MockSESService {
	return &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}
}

func okSNS() *MockSNSService {
	return &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ChannelSelection(t *testing.T) {
	tests := []struct {
		name        string
		priority    allocation.Priority
		phone       string
		smsEnabled  bool
		wantChannel string
	}{
		{
			name:        "high priority goes out as SMS",
			priority:    allocation.PriorityHigh,
			phone:       "+27821234567",
			smsEnabled:  true,
			wantChannel: ChannelSMS,
		},
		{
			name:        "medium priority goes out as email",
			priority:    allocation.PriorityMedium,
			phone:       "+27821234567",
			smsEnabled:  true,
			wantChannel: ChannelEmail,
		},
		{
			name:        "high priority without phone falls back to email",
			priority:    allocation.PriorityHigh,
			phone:       "",
			smsEnabled:  true,
			wantChannel: ChannelEmail,
		},
		{
			name:        "high priority with SMS disabled falls back to email",
			priority:    allocation.PriorityHigh,
			phone:       "+27821234567",
			smsEnabled:  false,
			wantChannel: ChannelEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			expectContactRow(mock, "provider-1", "pro@example.com", tt.phone)

			emailSent := false
			smsSent := false
			mockSES := &MockSESService{
				SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
					emailSent = true
					assert.Equal(t, "pro@example.com", params.Destination.ToAddresses[0])
					assert.Equal(t, "noreply@leadalloc.example", *params.Source)
					return &ses.SendEmailOutput{}, nil
				},
			}
			mockSNS := &MockSNSService{
				PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
					smsSent = true
					assert.Equal(t, tt.phone, *params.PhoneNumber)
					return &sns.PublishOutput{}, nil
				},
			}

			config := createTestConfig()
			config.SMSEnabled = tt.smsEnabled

			handler := createTestHandler(t, db, mockSES, mockSNS, config)

			output, err := handler.Execute(context.Background(), &Input{
				LeadID:    "lead-1",
				LeadTitle: "Geyser replacement",
				Results:   []allocation.AllocationResult{createResult("provider-1", 90, tt.priority)},
			})

			assert.NoError(t, err)
			require.NotNil(t, output)
			require.Len(t, output.Notifications, 1)
			n := output.Notifications[0]
			assert.Equal(t, StatusSent, n.Status)
			assert.Equal(t, tt.wantChannel, n.Channel)
			assert.NotEmpty(t, n.ID)
			assert.Equal(t, "lead-1", n.LeadID)
			assert.Equal(t, 1, output.SentCount)
			assert.Equal(t, 0, output.FailedCount)

			if tt.wantChannel == ChannelSMS {
				assert.True(t, smsSent)
				assert.False(t, emailSent)
			} else {
				assert.True(t, emailSent)
				assert.False(t, smsSent)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_MixedBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactRow(mock, "provider-high", "high@example.com", "+27820000001")
	expectContactRow(mock, "provider-low", "low@example.com", "")
	// Third provider has no stored contact at all.
	mock.ExpectQuery(`SELECT email, phone FROM providers WHERE id = \$1`).
		WithArgs("provider-missing").
		WillReturnError(sql.ErrNoRows)

	handler := createTestHandler(t, db, okSES(), okSNS(), nil)

	output, err := handler.Execute(context.Background(), &Input{
		LeadID: "lead-1",
		Results: []allocation.AllocationResult{
			createResult("provider-high", 92, allocation.PriorityHigh),
			createResult("provider-low", 60, allocation.PriorityLow),
			createResult("provider-missing", 75, allocation.PriorityMedium),
		},
	})

	assert.NoError(t, err)
	require.NotNil(t, output)
	require.Len(t, output.Notifications, 3)
	assert.Equal(t, ChannelSMS, output.Notifications[0].Channel)
	assert.Equal(t, StatusSent, output.Notifications[0].Status)
	assert.Equal(t, ChannelEmail, output.Notifications[1].Channel)
	assert.Equal(t, StatusSent, output.Notifications[1].Status)
	assert.Equal(t, StatusDisabled, output.Notifications[2].Status)
	assert.Equal(t, 2, output.SentCount)
	assert.Equal(t, 0, output.FailedCount)
}

func TestHandler_Execute_SendFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactRow(mock, "provider-1", "pro@example.com", "")

	failingSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	handler := createTestHandler(t, db, failingSES, okSNS(), nil)

	output, err := handler.Execute(context.Background(), &Input{
		LeadID:  "lead-1",
		Results: []allocation.AllocationResult{createResult("provider-1", 80, allocation.PriorityMedium)},
	})

	// A delivery failure is reported per notification, not as a job error.
	assert.NoError(t, err)
	require.NotNil(t, output)
	require.Len(t, output.Notifications, 1)
	assert.Equal(t, StatusFailed, output.Notifications[0].Status)
	assert.Equal(t, 0, output.SentCount)
	assert.Equal(t, 1, output.FailedCount)
}

func TestHandler_Execute_MissingLeadID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db, okSES(), okSNS(), nil)

	output, err := handler.Execute(context.Background(), &Input{})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrNotificationSendFailed)
}

func TestBuildMessage(t *testing.T) {
	input := &Input{LeadID: "lead-42", LeadTitle: "Kitchen renovation"}
	result := createResult("provider-1", 88, allocation.PriorityHigh)

	subject, body := buildMessage(input, result)

	assert.Equal(t, "New lead match: Kitchen renovation", subject)
	assert.Contains(t, body, "score 88")
	assert.Contains(t, body, "high priority")
	assert.Contains(t, body, "Excellent rating, Fast response time")
	assert.Contains(t, body, "lead-42")

	// Untitled leads get a generic subject.
	subject, _ = buildMessage(&Input{LeadID: "lead-7"}, result)
	assert.Equal(t, "New lead match: a new lead", subject)
}

func loadTestActivity(t *testing.T) *registry.Activity {
	reg, err := registry.LoadRegistry("../../../../configs/registry.json")
	require.NoError(t, err)
	activity, ok := reg.FindByTaskType(TaskType)
	require.True(t, ok)
	return activity
}

func TestHandler_ValidateInput(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db, &MockSESService{}, &MockSNSService{}, nil).WithActivity(loadTestActivity(t))

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid batch",
			payload: `{"leadId":"lead-1","results":[]}`,
		},
		{
			name:    "missing lead id",
			payload: `{"results":[]}`,
			wantErr: true,
		},
		{
			name:    "empty lead id",
			payload: `{"leadId":"","results":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler.validateInput(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
