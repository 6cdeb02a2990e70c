package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/wuxia2kindle/wuxia2kindle/api"
	"github.com/wuxia2kindle/wuxia2kindle/config"
	"github.com/wuxia2kindle/wuxia2kindle/datastore"
	"github.com/wuxia2kindle/wuxia2kindle/delivery"
	"github.com/wuxia2kindle/wuxia2kindle/ebook"
	"github.com/wuxia2kindle/wuxia2kindle/ingestion"
	"github.com/wuxia2kindle/wuxia2kindle/processing"
	rh "github.com/wuxia2kindle/wuxia2kindle/route-handlers"
	"github.com/wuxia2kindle/wuxia2kindle/scheduler"
)

const (
	dbPingTimeout     = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	db, err := setupDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	bookRepo := datastore.NewBookRepository(db)
	chapterRepo := datastore.NewChapterRepository(db)
	exportRepo := datastore.NewExportRepository(db)

	assembler := ebook.NewAssembler()

	deliveryService := delivery.NewService(cfg.Sink,
		delivery.NewDiscordProvider(cfg.Discord.WebhookURL),
		delivery.NewEmailProvider(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.SMTP.From,
			cfg.SMTP.To,
		),
	)

	pipeline := processing.NewPipeline(exportRepo, bookRepo, chapterRepo, assembler, deliveryService)
	exportScheduler := scheduler.New(pipeline, cfg.TickInterval)

	processor := ingestion.NewProcessor()

	bookHandler := rh.NewBookHandler(bookRepo, chapterRepo)
	chapterHandler := rh.NewChapterHandler(bookRepo, chapterRepo, processor)
	exportHandler := rh.NewExportHandler(exportRepo, bookRepo)

	router := api.SetupRoutes(bookHandler, chapterHandler, exportHandler, exportScheduler)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go exportScheduler.Start(schedulerCtx)

	startServer(cfg.Port, router)
	stopScheduler()
}

func setupDatabase(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection successful")
	return db, nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
