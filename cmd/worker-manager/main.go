// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"leadalloc-workers/internal/allocation"
	"leadalloc-workers/internal/common/camunda"
	"leadalloc-workers/internal/common/config"
	"leadalloc-workers/internal/common/database"
	"leadalloc-workers/internal/common/logger"
	"leadalloc-workers/internal/common/observability"
	"leadalloc-workers/pkg/registry"

	// Lead Management Workers (3)
	ap "leadalloc-workers/internal/workers/leads/allocate-providers"
	np "leadalloc-workers/internal/workers/leads/notify-providers"
	sa "leadalloc-workers/internal/workers/leads/summarize-allocation"

	// Provider Management Workers (1)
	vpa "leadalloc-workers/internal/workers/providers/verify-provider-access"

	// Data Access Workers (1)
	qp "leadalloc-workers/internal/workers/data-access/query-providers"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Load Activity Registry ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	zapLog.Info("Activity registry loaded", zap.Int("activities", len(reg.Activities)))

	// --- Build Allocation Engine ---
	engine, err := allocation.New(allocation.Criteria{
		LocationMatch:    cfg.Allocation.Weights.LocationMatch,
		ServiceMatch:     cfg.Allocation.Weights.ServiceMatch,
		Availability:     cfg.Allocation.Weights.Availability,
		Rating:           cfg.Allocation.Weights.Rating,
		ResponseTime:     cfg.Allocation.Weights.ResponseTime,
		SubscriptionTier: cfg.Allocation.Weights.SubscriptionTier,
		Workload:         cfg.Allocation.Weights.Workload,
	})
	if err != nil {
		zapLog.Fatal("allocation engine init failed", zap.Error(err))
	}

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- START: Register ALL 5 Workers ---

	// --- 1. Lead Management Workers (3) ---
	if cfg.Workers[ap.TaskType].Enabled {
		handler := ap.NewHandler(
			&ap.Config{
				CacheTTL:   5 * time.Minute,
				Timeout:    time.Duration(cfg.Workers[ap.TaskType].Timeout) * time.Millisecond,
				MaxResults: cfg.Allocation.DefaultMaxResults,
			},
			engine, pg.DB, redis.Client, log,
		).WithActivity(activityFor(reg, ap.TaskType, zapLog))
		startWorker(zeebeClient, ap.TaskType, cfg.Workers[ap.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sa.TaskType].Enabled {
		handler := sa.NewHandler(
			&sa.Config{
				Timeout: time.Duration(cfg.Workers[sa.TaskType].Timeout) * time.Millisecond,
			},
			log,
		).WithActivity(activityFor(reg, sa.TaskType, zapLog))
		startWorker(zeebeClient, sa.TaskType, cfg.Workers[sa.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[np.TaskType].Enabled {
		handler, err := np.NewHandler(
			&np.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				AWSRegion:    cfg.Notifications.AWS.Region,
				Timeout:      time.Duration(cfg.Workers[np.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create notify-providers handler", zap.Error(err))
		}
		handler = handler.WithActivity(activityFor(reg, np.TaskType, zapLog))
		startWorker(zeebeClient, np.TaskType, cfg.Workers[np.TaskType], handler.Handle, zapLog)
	}

	// --- 2. Provider Management Workers (1) ---
	if cfg.Workers[vpa.TaskType].Enabled {
		handler := vpa.NewHandler(
			&vpa.Config{
				CacheTTL: 5 * time.Minute,
				Timeout:  time.Duration(cfg.Workers[vpa.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, redis.Client, log,
		).WithActivity(activityFor(reg, vpa.TaskType, zapLog))
		startWorker(zeebeClient, vpa.TaskType, cfg.Workers[vpa.TaskType], handler.Handle, zapLog)
	}

	// --- 3. Data Access Workers (1) ---
	if cfg.Workers[qp.TaskType].Enabled {
		handler := qp.NewHandler(
			&qp.Config{
				Index:   cfg.Database.Elasticsearch.ProviderIndex,
				Timeout: time.Duration(cfg.Workers[qp.TaskType].Timeout) * time.Millisecond,
			},
			esClient.Client, pg.DB, log,
		).WithActivity(activityFor(reg, qp.TaskType, zapLog))
		startWorker(zeebeClient, qp.TaskType, cfg.Workers[qp.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 5 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range activeWorkers {
		w.Stop()
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// activeWorkers collects open subscriptions so shutdown can drain them.
var activeWorkers []*camunda.CamundaWorker

// activityFor resolves the registry entry a worker validates its job
// payloads against. A task type missing from the registry is a deploy
// misconfiguration, so the manager refuses to start.
func activityFor(reg *registry.ActivityRegistry, taskType string, log *zap.Logger) *registry.Activity {
	activity, ok := reg.FindByTaskType(taskType)
	if !ok {
		log.Fatal("task type missing from activity registry", zap.String("taskType", taskType))
	}
	return activity
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	w := camunda.NewWorker(client, taskType, wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond, handlerFunc, log)
	activeWorkers = append(activeWorkers, w)
}
