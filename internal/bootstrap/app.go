package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studymate/internal/ai"
	appsvc "studymate/internal/app"
	"studymate/internal/config"
	"studymate/internal/metrics"
	"studymate/internal/model"
	"studymate/internal/platform/database"
	rabbitmqClient "studymate/internal/platform/rabbitmq"
	redisClient "studymate/internal/platform/redis"
	"studymate/internal/platform/telemetry"
	"studymate/internal/rag"
	"studymate/internal/repository"
	"studymate/internal/worker"
)

// App holds every long-lived handle. It is built once at startup and passed
// to the router.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Metrics   *metrics.Metrics
	Index     *rag.Index
	Generator *rag.Generator
	Ingest    *worker.IngestWorker
	Publisher appsvc.IngestPublisher

	shutdownTracing telemetry.Shutdown
	StartedAt       time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	shutdown, err := telemetry.Init(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.shutdownTracing = shutdown

	db, err := database.New(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.DB = db
	if err := db.AutoMigrate(model.All()...); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Redis = redisCli
	} else {
		logger.Warn("redis disabled, dashboard stats are not cached")
	}

	chatModel, err := ai.NewChatModel(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Index = rag.NewIndex(
		repository.NewDocumentChunkRepository(db),
		ai.NewEmbedderFromConfig(cfg),
		rag.IndexOptions{ChunkSize: cfg.RAG.ChunkSize, ChunkOverlap: cfg.RAG.ChunkOverlap},
	)
	app.Generator = rag.NewGenerator(app.Index, chatModel, rag.GeneratorConfig{
		ModelName: cfg.LLM.Model,
		TopK:      cfg.RAG.TopK,
		Timeout:   cfg.LLMTimeout(),
	}, logger.Named("rag"), app.Metrics)

	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.MQConn = mqConn
	}

	app.Ingest = worker.NewIngestWorker(
		app.MQConn,
		cfg.RabbitMQ.IngestQueue,
		app.Index,
		repository.NewDocumentRepository(db),
		logger.Named("ingest"),
		app.Metrics,
	)
	if app.MQConn != nil {
		if err := app.Ingest.Start(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("start ingest worker failed: %w", err)
		}
		app.Publisher = rabbitmqClient.NewIngestPublisher(app.MQConn, cfg.RabbitMQ.IngestQueue)
	} else {
		logger.Warn("rabbitmq disabled, documents are ingested in-process")
		app.Publisher = app.Ingest
	}

	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Ingest != nil {
		a.Ingest.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
