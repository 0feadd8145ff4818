package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/tourai-backend/internal/config"
	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
	"github.com/kirillkom/tourai-backend/internal/core/usecase"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/llm/openai"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/queue/nats"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue       *nats.Queue
	Tours       *postgres.TourRepository
	Tools       *usecase.ToolSet
	Recommender *usecase.Recommender

	ChatUC    *usecase.ChatUseCase
	CatalogUC *usecase.CatalogUseCase
	StatsUC   *usecase.RecommendationStatsUseCase

	closeFn func()
}

type Option func(*options)

type options struct {
	resilienceObserver     resilience.Observer
	recommendationObserver ports.RecommendationObserver
}

func WithResilienceObserver(observer resilience.Observer) Option {
	return func(o *options) {
		o.resilienceObserver = observer
	}
}

func WithRecommendationObserver(observer ports.RecommendationObserver) Option {
	return func(o *options) {
		o.recommendationObserver = observer
	}
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var executorOpts []resilience.Option
	if o.resilienceObserver != nil {
		executorOpts = append(executorOpts, resilience.WithObserver(o.resilienceObserver))
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), executorOpts...)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	prompt, err := usecase.ResolveSystemPrompt(cfg.AgentSystemPromptFile)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("resolve system prompt: %w", err)
	}

	tours := postgres.NewTourRepository(db)
	conversations := postgres.NewConversationRepository(db)
	stats := postgres.NewStatsRepository(db)
	tools := usecase.NewSearchToolSet(tours)

	var recommenderOpts []usecase.RecommenderOption
	if o.recommendationObserver != nil {
		recommenderOpts = append(recommenderOpts, usecase.WithRecommendationObserver(o.recommendationObserver))
	}
	recommender := usecase.NewRecommender(
		tours,
		tools,
		chatModel(cfg, executor),
		prompt,
		domain.AgentLimits{MaxIterations: cfg.AgentMaxIterations},
		recommenderOpts...,
	)
	slog.Info("recommender_ready", "mode", recommender.Mode(), "model", cfg.LLMModel)

	return &App{
		Config: cfg,
		Queue:  queue,
		Tours:  tours,
		Tools:  tools,

		Recommender: recommender,
		ChatUC:      usecase.NewChatUseCase(recommender, conversations, tours, queue, cfg.ChatHistoryLimit),
		CatalogUC:   usecase.NewCatalogUseCase(tours),
		StatsUC:     usecase.NewRecommendationStatsUseCase(stats),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// OpenStore connects to Postgres and makes sure the schema exists.
func OpenStore(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// chatModel returns nil when no model is configured, which pins the
// recommender to fallback mode.
func chatModel(cfg config.Config, executor *resilience.Executor) ports.ChatModel {
	if !cfg.AgentEnabled() {
		return nil
	}
	client, err := openai.New(openai.Options{
		BaseURL:            cfg.LLMBaseURL,
		APIKey:             cfg.LLMAPIKey,
		Model:              cfg.LLMModel,
		Temperature:        cfg.LLMTemperature,
		ResilienceExecutor: executor,
	})
	if err != nil {
		slog.Warn("chat_model_unavailable", "error", err)
		return nil
	}
	return client
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
