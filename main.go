package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/config"
	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/gemini"
	"github.com/room4-2/dinedialog/nlu"
	"github.com/room4-2/dinedialog/server"
	"github.com/room4-2/dinedialog/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(ctx, cfg.CatalogSource, cfg.CatalogTable)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", zap.Int("restaurants", cat.Len()))

	classifier, err := newClassifier(ctx, cfg, cat, logger)
	if err != nil {
		return err
	}

	// Create session manager
	sessionManager, err := session.NewManager(cfg, cat, classifier, nlu.NewCatalogExtractor(cat), logger)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	srv := server.NewServer(cfg, sessionManager, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Start cleanup routine
		sessionManager.StartCleanupRoutine(gctx)
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newClassifier returns the keyword classifier, wrapped by Gemini when an API
// key is configured.
func newClassifier(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, logger *zap.Logger) (dialog.Classifier, error) {
	keyword, err := nlu.NewCatalogClassifier(cat, cfg.ClassifierRules)
	if err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey == "" {
		logger.Info("using keyword classifier", zap.Int("rules", keyword.Rules()))
		return keyword, nil
	}
	g, err := gemini.NewClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, keyword, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("using gemini classifier", zap.String("model", g.Model()))
	return g, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
