package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"deflect.app/relay/common/id"
	"deflect.app/relay/common/llm"
	"deflect.app/relay/common/logger"
	"deflect.app/relay/common/metrics"
	"deflect.app/relay/common/otel"
	"deflect.app/relay/core/config"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/brain"
	"deflect.app/relay/internal/cost"
	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/delivery"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/retriever/knowledge"
	"deflect.app/relay/internal/service"
	"deflect.app/relay/internal/store"
	"deflect.app/relay/internal/usage"
	"deflect.app/relay/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	consumerName := cfg.Pipeline.RedisConsumer
	if consumerName == "" {
		consumerName = "worker-" + uuid.NewString()
	}

	slog.InfoContext(ctx, "deflect worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", consumerName,
		"llm_provider", cfg.LLM.Provider)

	if err := id.Init(id.NodeWorker); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     consumerName,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	llmClient, err := llm.New(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Querier())
	txRunner := service.NewTxRunner(database)

	var publisher *delivery.KafkaPublisher
	if cfg.Kafka.Enabled() {
		publisher = delivery.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OutboundTopic, cfg.Kafka.InsightsTopic)
		defer publisher.Close()
		slog.InfoContext(ctx, "kafka delivery enabled", "brokers", cfg.Kafka.Brokers)
	}

	pipeline := buildPipeline(ctx, cfg, redisClient, stores, txRunner, llmClient, publisher)
	analysis := buildAnalysis(ctx, cfg, stores, txRunner, llmClient, publisher)

	w := worker.New(consumer, stores.Tickets(), pipeline, analysis, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(consumer, worker.ReclaimerConfig{
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, w.Handle)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		reclaimer.Run(gctx)
		return nil
	})

	var metricsServer *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.ErrorContext(ctx, "metrics server error", "error", err)
			}
		}()
	}

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first; the worker may be mid-ticket.
	reclaimer.Stop()
	w.Stop()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
		cancelRun()
	case err := <-done:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "metrics server shutdown error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func buildPipeline(
	ctx context.Context,
	cfg config.Config,
	redisClient *redis.Client,
	stores *store.Stores,
	txRunner service.TxRunner,
	llmClient llm.Client,
	publisher *delivery.KafkaPublisher,
) *deflection.Pipeline {
	var ks brain.KnowledgeSearcher
	if cfg.Typesense.Enabled() {
		ks = knowledge.New(cfg.Typesense.URL, cfg.Typesense.APIKey, cfg.Typesense.Collection)
		slog.InfoContext(ctx, "knowledge search enabled", "collection", cfg.Typesense.Collection)
	}

	var deliverer deflection.Deliverer
	if publisher != nil {
		deliverer = publisher
	}

	router := deflection.NewRouter(deflection.RouterConfig{
		DeliveryFloor: cfg.Deflection.DeliveryFloor,
		Rates: cost.Rates{
			InputPer1K:  cfg.Deflection.InputRatePer1K,
			OutputPer1K: cfg.Deflection.OutputRatePer1K,
		},
	}, service.NewOutcomeRecorder(txRunner, stores.Responses()), deliverer)

	responder := brain.NewResponder(llmClient, stores.LLMEvals(), brain.ResponderConfig{
		MaxConcurrent: int64(cfg.LLM.MaxConcurrent),
		MaxTokens:     cfg.LLM.MaxTokens,
	})

	meter := usage.NewRedisMeter(redisClient, map[string]int64{
		deflection.MeterAIResponses: cfg.Deflection.MonthlyLimit,
	})

	return deflection.NewPipeline(
		deflection.PipelineConfig{GenerationTimeout: cfg.Deflection.GenerationTimeout},
		meter,
		service.NewPolicyResolver(stores.Policies()),
		brain.NewContextBuilder(ks, stores.Templates(), stores.Messages()),
		responder,
		router,
	)
}

func buildAnalysis(
	ctx context.Context,
	cfg config.Config,
	stores *store.Stores,
	txRunner service.TxRunner,
	llmClient llm.Client,
	publisher *delivery.KafkaPublisher,
) service.AnalysisService {
	if !cfg.Embedding.Enabled() {
		slog.WarnContext(ctx, "embeddings disabled, pattern analysis tasks will be dead-lettered")
		return nil
	}

	embedder, err := llm.NewEmbedder(llm.EmbeddingConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create embedder", "error", err)
		os.Exit(1)
	}

	deps := service.AnalysisDeps{
		Tickets:  stores.Tickets(),
		Runs:     stores.AnalysisRuns(),
		Insights: stores.Insights(),
		TxRunner: txRunner,
		Embedder: embedder,
	}
	if cfg.Analysis.GenerateFAQs {
		deps.FAQs = brain.NewFAQWriter(llmClient, stores.FAQs(), stores.LLMEvals())
	}
	if publisher != nil {
		deps.Publisher = publisher
	}

	return service.NewAnalysisService(deps, service.AnalysisConfig{
		SimilarityThreshold: cfg.Analysis.SimilarityThreshold,
		MinClusterSize:      cfg.Analysis.MinClusterSize,
		AgentHourlyCost:     cfg.Analysis.AgentHourlyCost,
		FAQProneCategories:  cfg.Analysis.FAQProneCategories,
		WindowDays:          cfg.Analysis.WindowDays,
		EmbeddingRPS:        cfg.Analysis.EmbeddingRPS,
		EmbeddingDimensions: embedder.Dimensions(),
		GenerateFAQs:        cfg.Analysis.GenerateFAQs,
		RunLease:            cfg.Analysis.RunLease,
	})
}

const banner = `
██████╗ ███████╗███████╗██╗     ███████╗ ██████╗████████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██╔══██╗██╔════╝██╔════╝██║     ██╔════╝██╔════╝╚══██╔══╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██║  ██║█████╗  █████╗  ██║     █████╗  ██║        ██║       ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║  ██║██╔══╝  ██╔══╝  ██║     ██╔══╝  ██║        ██║       ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██████╔╝███████╗██║     ███████╗███████╗╚██████╗   ██║       ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═════╝ ╚══════╝╚═╝     ╚══════╝╚══════╝ ╚═════╝   ╚═╝        ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
