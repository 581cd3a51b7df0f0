// internal/workers/data-access/query-providers/handler_test.go
package queryproviders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/pkg/registry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func createTestConfig() *Config {
	return &Config{
		Index:   "providers",
		Timeout: 10 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

// createUnreachableESClient builds a client pointed at a closed port so
// every request fails fast and exercises the postgres fallback.
func createUnreachableESClient(t *testing.T) *elasticsearch.Client {
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{"http://127.0.0.1:1"},
		MaxRetries:    0,
		DisableRetry:  true,
		RetryOnStatus: []int{},
	})
	require.NoError(t, err)
	return esClient
}

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	return NewHandler(createTestConfig(), createUnreachableESClient(t), db, createTestLogger(t))
}

const fallbackSearchQuery = `SELECT id, verification_status, service_areas`

func TestHandler_Execute_InvalidQueryType(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db)

	output, err := handler.Execute(context.Background(), &Input{QueryType: "franchise_index"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrInvalidQueryType)
}

func TestHandler_Execute_PostgresFallback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "verification_status", "service_areas", "average_rating", "total_reviews",
		"response_time_hours", "subscription_tier", "credit_balance",
		"monthly_lead_limit", "leads_used_this_month",
	}).AddRow("provider-a", "verified", []byte(`["Claremont","Cape Town"]`), 4.7, 31,
		2.0, "basic", 0.0, 50, 12)
	mock.ExpectQuery(fallbackSearchQuery).
		WithArgs("Claremont", "Cape Town", 20).
		WillReturnRows(rows)

	handler := createTestHandler(t, db)

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "provider_search",
		Suburb:    "Claremont",
		City:      "Cape Town",
	})

	assert.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, "postgres", output.Source)
	assert.Equal(t, int64(1), output.TotalHits)
	require.Len(t, output.Data, 1)
	assert.Equal(t, "provider-a", output.Data[0]["id"])
	assert.Equal(t, []string{"Claremont", "Cape Town"}, output.Data[0]["service_areas"])
	assert.Equal(t, "basic", output.Data[0]["subscription_tier"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PostgresFallbackByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "verification_status", "service_areas", "average_rating", "total_reviews",
		"response_time_hours", "subscription_tier", "credit_balance",
		"monthly_lead_limit", "leads_used_this_month",
	}).AddRow("provider-b", "verified", []byte(`["Sandton"]`), 4.2, 10,
		6.0, nil, 25.0, 50, 3)
	mock.ExpectQuery(fallbackSearchQuery).WillReturnRows(rows)

	handler := createTestHandler(t, db)

	output, err := handler.Execute(context.Background(), &Input{
		QueryType:   "provider_by_ids",
		ProviderIDs: []string{"provider-b"},
	})

	assert.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, "postgres", output.Source)
	require.Len(t, output.Data, 1)
	assert.Equal(t, "provider-b", output.Data[0]["id"])
	// NULL tier scans to the empty string, same as the search path.
	assert.Equal(t, "", output.Data[0]["subscription_tier"])
}

func TestHandler_Execute_FallbackDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(fallbackSearchQuery).WillReturnError(errors.New("connection refused"))

	handler := createTestHandler(t, db)

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "provider_search",
		City:      "Cape Town",
	})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrQueryExecutionFailed)
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

	handler := createTestHandler(t, db).WithActivity(loadTestActivity(t))

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid search",
			payload: `{"queryType":"provider_search","city":"Cape Town"}`,
		},
		{
			name:    "valid lookup by ids",
			payload: `{"queryType":"provider_by_ids","providerIds":["p1"]}`,
		},
		{
			name:    "missing query type",
			payload: `{"city":"Cape Town"}`,
			wantErr: true,
		},
		{
			name:    "unknown query type",
			payload: `{"queryType":"franchise_index"}`,
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
