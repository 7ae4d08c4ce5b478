package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thraizz/mage-engine-go/internal/config"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
	"github.com/thraizz/mage-engine-go/internal/server"
	"github.com/thraizz/mage-engine-go/internal/session"
	"github.com/thraizz/mage-engine-go/internal/storage"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting MAGE engine server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Load triggered abilities
	registry := triggers.NewRegistry()
	if cfg.Engine.RegistryPath != "" {
		registry, err = triggers.LoadRegistryFile(cfg.Engine.RegistryPath)
		if err != nil {
			logger.Fatal("failed to load ability registry", zap.Error(err))
		}
	}
	logger.Info("ability registry loaded",
		zap.String("path", cfg.Engine.RegistryPath),
		zap.Int("cards", registry.Len()),
	)

	// Initialize snapshot storage
	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open snapshot storage", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	opts := []session.Option{
		session.WithRegistry(registry),
		session.WithDecisionTimeout(cfg.Engine.DecisionTimeout),
	}
	if cfg.Engine.Seed != 0 {
		opts = append(opts, session.WithSeed(cfg.Engine.Seed))
	}

	var recorder *session.Recorder
	if cfg.Replay.Enabled {
		recorder = session.NewRecorder(logger, cfg.Replay.Directory)
		opts = append(opts, session.WithRecorder(recorder))
		logger.Info("replay recording enabled", zap.String("directory", cfg.Replay.Directory))
	}

	var hub *server.Hub
	opts = append(opts, session.WithNotificationHandler(func(n session.Notification) { hub.Notify(n) }))

	var sessionStore session.Store
	if store != nil {
		sessionStore = store
	}
	sessionMgr := session.NewManager(logger, sessionStore, opts...)
	hub = server.NewHub(sessionMgr, cfg.Server.WebSocket, logger)
	go hub.Run(ctx)

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC health server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				server.ReportCapacity(healthServer, sessionMgr, cfg.Server.MaxSessions)
			}
		}
	}()

	// Start WebSocket server
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WebSocket.Path, hub)
	httpServer := &http.Server{
		Addr:              cfg.Server.WebSocket.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting WebSocket server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("path", cfg.Server.WebSocket.Path),
		)
		if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("MAGE engine server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket server shutdown", zap.Error(err))
	}
	cancel()

	if recorder != nil {
		for _, id := range sessionMgr.List() {
			if path, err := recorder.Save(id); err != nil {
				logger.Warn("failed to save replay", zap.String("match_id", id), zap.Error(err))
			} else {
				logger.Info("replay saved", zap.String("match_id", id), zap.String("path", path))
			}
		}
	}

	// Close all active sessions
	sessionMgr.CloseAll()

	grpcServer.GracefulStop()

	logger.Info("MAGE engine server stopped")
}

// openStore opens the configured snapshot backend. The "none" driver returns
// a nil store.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite snapshot storage initialized", zap.String("path", cfg.SQLitePath))
		return store, nil
	case "postgres":
		store, err := storage.OpenPostgres(ctx, cfg.PostgresURL, cfg.MaxConns, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
