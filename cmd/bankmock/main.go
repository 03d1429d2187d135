/**
 * @description
 * This is the entry point for bankmock, a local stand-in for the real
 * bank-service. It loads configuration, assembles the mock's router behind a
 * permissive CORS layer (the browser application calls the service directly
 * during development), and runs an HTTP server with graceful shutdown.
 *
 * @dependencies
 * - github.com/go-chi/cors: CORS middleware for browser access.
 * - internal/config, internal/mockbank: Internal packages.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"

	"github.com/corebank/transfer-workflow/internal/config"
	"github.com/corebank/transfer-workflow/internal/mockbank"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting bankmock\" port=%s otp_ttl_s=%d fixed_otp_set=%t",
		cfg.ServerPort, cfg.OTPTTLSeconds, cfg.FixedOTP != "")

	server := mockbank.NewServer(cfg.JWTSigningKey, time.Duration(cfg.OTPTTLSeconds)*time.Second, cfg.FixedOTP)

	corsLayer := cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: corsLayer(server.Router()),
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
