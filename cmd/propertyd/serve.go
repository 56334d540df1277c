package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"property-workflow-backend/config"
	"property-workflow-backend/internal/api"
	"property-workflow-backend/internal/auth"
	"property-workflow-backend/internal/db"
	"property-workflow-backend/internal/directory"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/reconcile"
	"property-workflow-backend/internal/storage"
	"property-workflow-backend/internal/store"
	"property-workflow-backend/internal/workflow"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime feed and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return err
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, err := newBroker(ctx, cfg.Realtime)
	if err != nil {
		return err
	}

	var webpushOptions *webpush.Options
	var pusher notification.Dispatcher
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			Subscriber:      cfg.Push.Subject,
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		pool.Start(ctx)
		pusher = pool
	} else {
		log.Println("VAPID keys not configured; web push is disabled")
	}

	var uploader storage.Uploader = storage.Disabled{}
	s3Uploader, err := storage.NewS3Uploader(ctx, cfg.Storage)
	switch {
	case err == nil:
		uploader = s3Uploader
	case errors.Is(err, storage.ErrDisabled):
		log.Println("storage bucket not configured; photo uploads are disabled")
	default:
		return err
	}

	tokens, err := auth.NewTokens(cfg.Auth)
	if err != nil {
		return err
	}

	deps := workflow.Deps{
		Store:             appStore,
		Notifier:          notification.NewNotifier(appStore, broker, pusher),
		Publisher:         broker,
		Directory:         directory.New(appStore, 5*time.Minute),
		Uploader:          uploader,
		ApprovalListLimit: cfg.Approvals.ListLimit,
	}
	services := api.Services{
		Notices:     workflow.NewNoticeService(deps),
		Maintenance: workflow.NewMaintenanceService(deps),
		Approvals:   workflow.NewApprovalService(deps),
	}

	if cfg.Reconcile.Enabled {
		sweeper := reconcile.NewSweeper(appStore, cfg.Reconcile.DraftMaxAge)
		if err := sweeper.Start(ctx, cfg.Reconcile.Interval); err != nil {
			return err
		}
	}

	handler := api.NewHandler(appStore, services, broker, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg.Server, handler, tokens),
	}

	go func() {
		log.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}

// newBroker returns an in-process hub, bridged through Redis pub/sub when a
// Redis URL is configured so that every replica sees every change.
func newBroker(ctx context.Context, cfg config.RealtimeConfig) (realtime.Broker, error) {
	hub := realtime.NewHub(cfg.BufferSize)
	if cfg.RedisURL == "" {
		return hub, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	broker := realtime.NewRedisBroker(client, cfg.Channel, hub)
	go broker.Run(ctx)
	log.Printf("realtime events relayed through redis channel %q", cfg.Channel)
	return broker, nil
}
