// Package setup wires the application's shared dependencies together.
package setup

import (
	"log"

	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/perspective"
	"github.com/modsentry/modsentry/internal/redis"
	"github.com/modsentry/modsentry/internal/setup/config"
)

// App contains all the common setup components.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	RedisManager *redis.Manager
	Scorer       *perspective.Client
}

// InitializeApp performs common setup tasks and returns an App.
func InitializeApp(logDir string) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, scoringLogger, err := GetLoggers(logDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded configuration", zap.String("configPath", configPath))

	redisManager := redis.NewManager(&cfg.Redis, logger)

	cacheClient, err := redisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	scorer := perspective.NewClient(cfg, cacheClient, scoringLogger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		RedisManager: redisManager,
		Scorer:       scorer,
	}, nil
}

// CleanupApp performs cleanup tasks.
func (a *App) CleanupApp() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
	a.RedisManager.Close()
}
