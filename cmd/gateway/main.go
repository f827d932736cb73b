package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosswatch/config"
	"crosswatch/internal/gateway"
	redisstore "crosswatch/internal/store/redis"

	"github.com/joho/godotenv"
)

var processStart = time.Now()

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[gateway] starting...")

	_ = godotenv.Load() // best-effort; real environment variables win

	listenAddr := config.GetEnv("GATEWAY_ADDR", ":9095")
	redisAddr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := config.GetEnv("REDIS_PASSWORD", "")
	redisDB := config.GetEnvInt("REDIS_DB", 0)
	statusSec := config.GetEnvInt("STATUS_INTERVAL_SEC", 30)

	reader, err := redisstore.NewReader(redisstore.ReaderConfig{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	if err != nil {
		log.Fatalf("[gateway] redis connection failed: %v", err)
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := gateway.NewHub()
	feed := gateway.NewPubSubFeed(hub, reader.Client())
	go feed.Run(ctx)
	hub.StartStatusBroadcast(ctx, processStart, time.Duration(statusSec)*time.Second)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, reader, processStart)

	srv := &http.Server{Addr: listenAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[gateway] ✅ serving at http://localhost%s  (WebSocket: ws://localhost%s/ws)", listenAddr, listenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[gateway] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[gateway] shutting down...")
	cancel()
	srv.Shutdown(context.Background())
}
