package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"chatroomgo/internal/auth"
	"chatroomgo/internal/config"
	"chatroomgo/internal/core"
	"chatroomgo/internal/database/db_client"
	"chatroomgo/internal/http/http_server"
	"chatroomgo/internal/redis/redis_client"
	"chatroomgo/internal/services/chat"
	"chatroomgo/internal/store"
	"chatroomgo/internal/ws"
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

	// 3. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 4. Persistence collaborator: pgx store behind an async writer so
	//    durability failures never block live delivery.
	pgStore := store.NewPostgres(pgDb)
	writer := store.NewAsyncWriter(pgStore, cfg.PersistQueueSize, Log)
	writer.Run(ctx)

	// 5. Data-access service + auth collaborator
	chatService := chat.NewChatService(pgDb, pgStore)
	authn := auth.NewJWT(cfg.JwtSecret, cfg.TokenTTL)

	// 6. Fan-out engine (registry, membership, presence, sequencer, router)
	engine := core.NewEngine(writer, Log)

	// 7. Optional cross-process bus over Redis pub/sub
	if cfg.RedisHost != "" {
		redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		engine.UseBus(ws.NewFanout(redisClient, engine))
		Log.Debug("Redis fan-out bus enabled")
	}

	// 8. WS server
	wsSrv := ws.NewWsServer(engine, authn, ws.Options{
		SendQueueSize:   cfg.SendQueueSize,
		TypingBurst:     cfg.TypingBurst,
		TypingPerSecond: cfg.TypingPerSecond,
	})

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, chatService, authn)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
