// internal/workers/providers/verify-provider-access/handler_test.go
package verifyprovideraccess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/pkg/registry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		CacheTTL: 5 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redis.Client) *Handler {
	testLog := logger.NewTestLogger(t)
	return NewHandler(createTestConfig(), db, redisClient, testLog)
}

func createAccess(providerID, status, tier string, credits float64) *Access {
	return &Access{
		ProviderID:         providerID,
		VerificationStatus: status,
		SubscriptionTier:   tier,
		CreditBalance:      credits,
	}
}

const accessQuery = `SELECT id, verification_status, subscription_tier, credit_balance FROM providers WHERE id = \$1`

func expectAccessRow(mock sqlmock.Sqlmock, access *Access) {
	var tier interface{}
	if access.SubscriptionTier != "" {
		tier = access.SubscriptionTier
	}
	rows := sqlmock.NewRows([]string{"id", "verification_status", "subscription_tier", "credit_balance"}).
		AddRow(access.ProviderID, access.VerificationStatus, tier, access.CreditBalance)
	mock.ExpectQuery(accessQuery).WithArgs(access.ProviderID).WillReturnRows(rows)
}

func expectCacheWrite(redisMock redismock.ClientMock, access *Access) {
	cachedData, _ := json.Marshal(access)
	redisMock.ExpectSet("provider:access:"+access.ProviderID, cachedData, 5*time.Minute).SetVal("OK")
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AccessGranted(t *testing.T) {
	tests := []struct {
		name       string
		access     *Access
		wantType   string
		wantTier   string
		wantCredit float64
	}{
		{
			name:     "subscription grants access",
			access:   createAccess("provider-1", "verified", "pro", 0),
			wantType: "subscription",
			wantTier: "pro",
		},
		{
			name:       "subscription wins over credits",
			access:     createAccess("provider-2", "verified", "enterprise", 40),
			wantType:   "subscription",
			wantTier:   "enterprise",
			wantCredit: 40,
		},
		{
			name:       "credits grant access without subscription",
			access:     createAccess("provider-3", "verified", "", 12.5),
			wantType:   "credits",
			wantCredit: 12.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			redisClient, redisMock := redismock.NewClientMock()

			redisMock.ExpectGet("provider:access:" + tt.access.ProviderID).RedisNil()
			expectAccessRow(mock, tt.access)
			expectCacheWrite(redisMock, tt.access)

			handler := createTestHandler(t, db, redisClient)
			output, err := handler.Execute(context.Background(), &Input{ProviderID: tt.access.ProviderID})

			assert.NoError(t, err)
			require.NotNil(t, output)
			assert.True(t, output.HasAccess)
			assert.Equal(t, tt.wantType, output.AccessType)
			assert.Equal(t, tt.wantTier, output.Tier)
			assert.Equal(t, tt.wantCredit, output.CreditBalance)

			assert.NoError(t, mock.ExpectationsWereMet())
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_CacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	cached := createAccess("cached-provider", "verified", "advanced", 0)
	cachedData, _ := json.Marshal(cached)
	redisMock.ExpectGet("provider:access:cached-provider").SetVal(string(cachedData))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{ProviderID: "cached-provider"})

	assert.NoError(t, err)
	require.NotNil(t, output)
	assert.True(t, output.HasAccess)
	assert.Equal(t, "subscription", output.AccessType)
	assert.Equal(t, "advanced", output.Tier)

	// Database was never queried on a cache hit.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_AccessDenied(t *testing.T) {
	tests := []struct {
		name          string
		access        *Access
		expectedError error
	}{
		{
			name:          "unverified provider",
			access:        createAccess("provider-p", "pending", "pro", 100),
			expectedError: ErrAccessDenied,
		},
		{
			name:          "suspended provider",
			access:        createAccess("provider-s", "suspended", "pro", 100),
			expectedError: ErrAccessDenied,
		},
		{
			name:          "no subscription and zero credits",
			access:        createAccess("provider-z", "verified", "", 0),
			expectedError: ErrAccessDenied,
		},
		{
			name:          "no subscription and negative balance",
			access:        createAccess("provider-n", "verified", "", -10),
			expectedError: ErrAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			redisClient, redisMock := redismock.NewClientMock()

			redisMock.ExpectGet("provider:access:" + tt.access.ProviderID).RedisNil()
			expectAccessRow(mock, tt.access)
			expectCacheWrite(redisMock, tt.access)

			handler := createTestHandler(t, db, redisClient)
			output, err := handler.Execute(context.Background(), &Input{ProviderID: tt.access.ProviderID})

			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("provider not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet("provider:access:missing").RedisNil()
		mock.ExpectQuery(accessQuery).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		handler := createTestHandler(t, db, redisClient)
		output, err := handler.Execute(context.Background(), &Input{ProviderID: "missing"})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("empty provider id", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		redisClient, _ := redismock.NewClientMock()

		handler := createTestHandler(t, db, redisClient)
		output, err := handler.Execute(context.Background(), &Input{})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet("provider:access:provider-x").RedisNil()
		mock.ExpectQuery(accessQuery).WithArgs("provider-x").WillReturnError(errors.New("connection failed"))

		handler := createTestHandler(t, db, redisClient)
		output, err := handler.Execute(context.Background(), &Input{ProviderID: "provider-x"})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, ErrAccessCheckFailed)
	})
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

	redisClient, _ := redismock.NewClientMock()
	handler := createTestHandler(t, db, redisClient).WithActivity(loadTestActivity(t))

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid provider id",
			payload: `{"providerId":"provider-1"}`,
		},
		{
			name:    "missing provider id",
			payload: `{"includeDetails":true}`,
			wantErr: true,
		},
		{
			name:    "empty provider id",
			payload: `{"providerId":""}`,
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
