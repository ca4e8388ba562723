package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"votesyncgo/internal/config"
	"votesyncgo/internal/http/http_server"
	"votesyncgo/internal/redis/redis_client"
	"votesyncgo/internal/services/room"
	"votesyncgo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Optional cross-instance bridge. A failure here degrades to
	// single-instance mode instead of aborting startup.
	var bridge *ws.Bridge
	var redisClient *redis.Client
	if cfg.BridgeRedisHost != "" {
		redisClient, err = redis_client.NewRedisClient(cfg.BridgeRedisHost, int(cfg.BridgeRedisPort))
		if err != nil {
			Log.Warn("Bridge Redis unavailable, running single-instance", zap.Error(err))
		} else {
			defer redisClient.Close()
			bridge = ws.NewBridge(redisClient)
			Log.Info("Cross-instance bridge enabled")
		}
	}

	// 4. Room service (all state is in-memory, per-room locked)
	roomService := room.NewRoomService()

	// 5. WS server: registry, heartbeat, broadcast fan-out, protocol router
	wsSrv := ws.NewWsServer(ctx, roomService, bridge, ws.Options{
		HeartbeatInterval: time.Duration(cfg.HeartbeatIntervalSec) * time.Second,
		AllowedOrigins:    cfg.AllowedOrigins,
	})

	// 6. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, roomService)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	Log.Info("Server started", zap.Uint16("port", cfg.HttpServerPort))

	// 7. Block until a shutdown signal, then drain within the grace period.
	<-ctx.Done()
	Log.Info("Shutting down")

	wsSrv.Shutdown()
	if err := httpServer.Dispose(); err != nil {
		Log.Error("HTTP shutdown", zap.Error(err))
	}
}
