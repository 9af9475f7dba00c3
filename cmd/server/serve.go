package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"buachat/internal/chat"
	"buachat/internal/db"
	myMiddleware "buachat/internal/middleware"
	"buachat/internal/upload"
	"buachat/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const uploadPrefix = "/uploads"

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database
	database, err := db.NewDatabase(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()
	logger.Info("connected to PostgreSQL")

	if err := database.AutoMigrate(ctx); err != nil {
		return err
	}

	// 2. Optional Redis relay for running several instances
	var relay chat.Relay
	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		relay = chat.NewRedisRelay(redisClient, cfg.RedisChannel)
		logger.Info("connected to Redis", zap.String("channel", cfg.RedisChannel))
	}

	// 3. Features
	storage, err := upload.NewStorage(cfg.UploadDir, uploadPrefix, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	userService := user.NewService(user.NewRepository(database.Conn), cfg.JWTSecret, cfg.TokenTTL)
	userHandler := user.NewHandler(userService, storage, logger)

	hub := chat.NewHub(logger, relay)
	chatService := chat.NewService(chat.NewRepository(database.Conn), hub, cfg.DefaultRoom)
	chatHandler := chat.NewHandler(hub, chatService, cfg.AllowedOrigins, logger)

	uploadHandler := upload.NewHandler(storage, logger)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newRouter(logger, database, storage, userService, userHandler, chatHandler, uploadHandler),
	}

	// 4. Run until a signal arrives or something fails
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return hub.SubscribeRelay(gctx)
	})

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(
	logger *zap.Logger,
	database *db.Database,
	storage *upload.Storage,
	userService *user.Service,
	userHandler *user.Handler,
	chatHandler *chat.Handler,
	uploadHandler *upload.Handler,
) http.Handler {
	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(myMiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/auth/register", userHandler.Register)
	r.Post("/auth/login", userHandler.Login)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle(uploadPrefix+"/*", http.StripPrefix(uploadPrefix+"/", http.FileServer(http.Dir(storage.Dir()))))

	// Protected routes (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", chatHandler.ServeWs)

		r.Get("/api/messages", chatHandler.ListMessages)
		r.Post("/api/messages", chatHandler.CreateMessage)
		r.Put("/api/messages/{id}", chatHandler.UpdateMessage)
		r.Delete("/api/messages/{id}", chatHandler.DeleteMessage)
		r.Get("/api/online", chatHandler.OnlineUsers)

		r.Post("/api/upload", uploadHandler.Upload)
		r.Post("/api/profile/avatar", userHandler.UploadAvatar)
	})

	return r
}
