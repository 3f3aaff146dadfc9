package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/room4-2/switchboard/activity"
	"github.com/room4-2/switchboard/catalog"
	"github.com/room4-2/switchboard/classifier"
	"github.com/room4-2/switchboard/config"
	"github.com/room4-2/switchboard/dialog"
	"github.com/room4-2/switchboard/metrics"
	"github.com/room4-2/switchboard/server"
	"github.com/room4-2/switchboard/session"
	"github.com/room4-2/switchboard/twiml"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load and validate the prompt catalog
	cat, err := catalog.Load(cfg.PromptConfigPath)
	if err != nil {
		log.Fatalf("Failed to load prompt catalog: %v", err)
	}
	log.Printf("✅ Prompt catalog loaded: %d categories", len(cat.Prompts))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create the session store
	store, err := session.NewStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	go store.StartCleanupRoutine(ctx)

	// Create the classifier
	cls, err := classifier.New(ctx, cfg, cat.Labels())
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}
	log.Printf("✅ Classifier ready (%s)", cfg.ClassifierProvider)

	// Wire the dialog engine
	hub := activity.NewHub()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry, store)
	selector := catalog.NewSelector(cat)
	engine := dialog.NewEngine(cat, selector, hub)
	dispatcher := dialog.NewDispatcher(store, engine, cat, cls, cfg.ClassifierTimeout, hub, m)
	renderer := twiml.NewRenderer(cfg.PromptBaseURL, cfg.VoiceLanguage)

	srv := server.New(cfg, dispatcher, store, cat, renderer, hub, registry)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		cancel()
		hub.Shutdown()
		store.Shutdown()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
