// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
		want int
	}{
		{name: "business error no retry", code: ErrCodeLeadInvalid, want: 0},
		{name: "access denied no retry", code: ErrCodeAccessDenied, want: 0},
		{name: "summary failure no retry", code: ErrCodeSummaryFailed, want: 0},
		{name: "database failure retried", code: ErrCodeDatabaseConnectionFailed, want: 3},
		{name: "query failure retried", code: ErrCodeQueryExecutionFailed, want: 3},
		{name: "notification failure retried", code: ErrCodeNotificationSendFailed, want: 3},
		{name: "query timeout partial retry", code: ErrCodeQueryTimeout, want: 2},
		{name: "search timeout partial retry", code: ErrCodeSearchTimeout, want: 2},
		{name: "unknown code no retry", code: ErrorCode("SOMETHING_ELSE"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		remaining int32
		want      bool
	}{
		{name: "technical error with attempts left", code: "QUERY_EXECUTION_FAILED", remaining: 3, want: true},
		{name: "timeout with attempts left", code: "QUERY_TIMEOUT", remaining: 2, want: true},
		{name: "technical error on final attempt", code: "QUERY_EXECUTION_FAILED", remaining: 1, want: false},
		{name: "technical error with no attempts", code: "DATABASE_CONNECTION_FAILED", remaining: 0, want: false},
		{name: "business error never retried", code: "LEAD_INVALID", remaining: 3, want: false},
		{name: "validation failure never retried", code: "VALIDATION_FAILED", remaining: 3, want: false},
		{name: "unknown code never retried", code: "SOMETHING_ELSE", remaining: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.code, tt.remaining))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{code: ErrCodeLeadInvalid, want: "business"},
		{code: ErrCodeAllocationFailed, want: "business"},
		{code: ErrCodeAccessDenied, want: "business"},
		{code: ErrCodeCriteriaInvalid, want: "configuration"},
		{code: ErrCodeQueryTimeout, want: "timeout"},
		{code: ErrCodeSearchTimeout, want: "timeout"},
		{code: ErrCodeQueryExecutionFailed, want: "technical"},
		{code: ErrCodeProviderNotFound, want: "technical"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable technical error", func(t *testing.T) {
		stdErr := NewQueryExecutionFailedError("provider_search", fmt.Errorf("connection reset"))

		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, "QUERY_EXECUTION_FAILED", bpmnErr.Code)
		assert.True(t, bpmnErr.Retryable)
		assert.Equal(t, 3, bpmnErr.Retries)
		assert.Equal(t, "technical", bpmnErr.ErrorVariables["errorCategory"])
	})

	t.Run("business error maps without retries", func(t *testing.T) {
		stdErr := NewLeadInvalidError("lead has no location")

		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, "LEAD_INVALID", bpmnErr.Code)
		assert.False(t, bpmnErr.Retryable)
		assert.Equal(t, 0, bpmnErr.Retries)
		assert.Equal(t, "business", bpmnErr.ErrorVariables["errorCategory"])
	})

	t.Run("unknown code passes through", func(t *testing.T) {
		stdErr := &StandardError{Code: "CUSTOM_CODE", Message: "custom"}

		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, "CUSTOM_CODE", bpmnErr.Code)
	})
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	bpmnErr := &BPMNError{
		Code:      "ACCESS_DENIED",
		Message:   "Provider has no active subscription or credits",
		Retryable: false,
		ErrorVariables: map[string]interface{}{
			"providerId": "provider-1",
		},
	}

	vars := bpmnErr.ToErrorVariables()

	require.Equal(t, "ACCESS_DENIED", vars["errorCode"])
	assert.Equal(t, bpmnErr.Message, vars["errorMessage"])
	assert.Equal(t, false, vars["retryable"])
	assert.Equal(t, "provider-1", vars["providerId"])
}

func TestStandardError_Error(t *testing.T) {
	err := NewAccessDeniedError("provider-9")

	assert.Equal(t, ErrCodeAccessDenied, err.Code)
	assert.Contains(t, err.Error(), "ACCESS_DENIED")
	assert.False(t, err.Retryable)
}
