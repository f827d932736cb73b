package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crosswatch/internal/scanner"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	_ = godotenv.Load() // best-effort; real environment variables win

	cfg := scanner.LoadConfig()
	log.Printf("[scanner] %d symbols, %s bars, refresh every %ds", len(cfg.Symbols), cfg.Interval, cfg.RefreshSec)

	svc, err := scanner.New(cfg)
	if err != nil {
		log.Fatalf("[scanner] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[scanner] fatal: %v", err)
	}
}
