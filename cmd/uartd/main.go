package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Time0o/uartd/internal/infrastructure/config"
	"github.com/Time0o/uartd/internal/infrastructure/server"
)

func main() {
	cfg := config.LoadOrDefault()

	// Flags override environment for the common knobs.
	port := flag.String("port", cfg.Server.Port, "Server port")
	policy := flag.String("policy", cfg.UART.PolicyPath, "Policy file (.yaml or .toml)")
	flag.Parse()
	cfg.Server.Port = *port
	cfg.UART.PolicyPath = *policy

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
