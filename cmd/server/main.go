package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/jumokuso/crmaudit/internal/config"
	"github.com/jumokuso/crmaudit/internal/db"
	"github.com/jumokuso/crmaudit/internal/export"
	"github.com/jumokuso/crmaudit/internal/history"
	"github.com/jumokuso/crmaudit/internal/middleware"
	"github.com/jumokuso/crmaudit/internal/records"
	"github.com/jumokuso/crmaudit/internal/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup the document store backend
	var docStore store.DocumentStore
	switch cfg.Store.Backend {
	case "badger":
		badgerStore, err := store.OpenBadger(store.BadgerConfig{
			Path:       cfg.Store.BadgerPath,
			SyncWrites: true,
		})
		if err != nil {
			log.Fatalf("Failed to open badger store: %v", err)
		}
		defer badgerStore.Close()
		docStore = badgerStore
	default:
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer conn.Close()

		// Run migrations
		if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		docStore = store.NewPostgresStore(conn.Pool)
	}

	// Create services
	reader := history.NewReader(docStore)
	engine := history.NewEngine(docStore)
	recordsService := records.NewService(docStore)
	exportService := export.NewService(reader, export.WithExportDirectory(cfg.Export.Directory))

	mux := http.NewServeMux()
	history.NewHTTPHandler(reader, engine).Register(mux)
	records.NewHTTPHandler(recordsService).Register(mux)
	export.NewHTTPHandler(exportService).Register(mux)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(
		middleware.LoggingMiddleware(
			middleware.ActorMiddleware(mux),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting audit API server on %s", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
