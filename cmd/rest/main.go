package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ragone-be/internal/bootstrap"
	"ragone-be/internal/config"
	"ragone-be/internal/server"
	"ragone-be/internal/tracer"
	"ragone-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	// 1.5 Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer, err := tracer.Init(context.Background(), tracer.Config(cfg.Tracing))
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go func() {
		if err := container.StartBackground(ctx); err != nil {
			log.Printf("Background services stopped: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
