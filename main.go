package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"sootio/api"
	"sootio/config"
	"sootio/handlers"
	"sootio/services/metadata"
	"sootio/services/stream"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	configPath := os.Getenv("SOOTIO_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSizeMB,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAgeDays,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	metaClient := metadata.NewClient(nil)
	formatter := stream.NewFormatter(settings.Addon.PublicHost)
	pipeline := stream.NewPipeline(metaClient, formatter)
	resolver := stream.NewResolver(settings.Resolve)

	streamHandler := handlers.NewStreamHandler(pipeline, resolver)
	r := api.NewRouter(streamHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Sootio addon starting on %s\n", addr)
	log.Printf("[main] registered providers: %v", stream.RegisteredProviders())

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // resolve requests may poll for minutes
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}
