package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"findoc-backend/internal/bootstrap"
	"findoc-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	hostname, _ := os.Hostname()
	log.Printf("worker starting (id=worker-%s concurrency=%d lease=%s)", hostname, cfg.WorkerCount, cfg.JobLease)
	app.StartWorker(ctx, "worker-"+hostname)
	log.Print("worker stopped")
}
