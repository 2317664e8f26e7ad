package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/chartmate/internal/api"
	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/config"
	"github.com/dgallion1/chartmate/internal/index"
	"github.com/dgallion1/chartmate/internal/llm"
	"github.com/dgallion1/chartmate/internal/ocr"
	"github.com/dgallion1/chartmate/internal/pipeline"
	"github.com/dgallion1/chartmate/internal/raster"
	"github.com/dgallion1/chartmate/internal/status"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Storage.
	blobs, err := blob.NewLocalFS(cfg.BlobRoot)
	if err != nil {
		log.Error("open blob store", "root", cfg.BlobRoot, "error", err)
		os.Exit(1)
	}
	statuses, err := status.OpenSQLite(cfg.StatusDBPath)
	if err != nil {
		log.Error("open status store", "path", cfg.StatusDBPath, "error", err)
		os.Exit(1)
	}
	defer statuses.Close()

	// External service clients.
	engine := ocr.NewClient(cfg.OCRBaseURL, cfg.OCRAPIKey, cfg.ClientTimeout)
	claude := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.ClientTimeout)
	embedder := llm.NewEmbeddingsClient(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.ClientTimeout)

	// Pipeline stages, chained through the local dispatcher.
	dispatcher := pipeline.NewLocal(log)
	extractor := pipeline.NewExtractor(blobs, statuses, engine, &raster.PDFToPPM{}, dispatcher, log)
	indexer := pipeline.NewIndexer(blobs, statuses, embedder, dispatcher,
		index.Config{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap}, log)
	sections := pipeline.NewSectionExtractor(blobs, statuses, embedder, claude,
		cfg.SectionConcurrency, cfg.RetrievalTopK, log)
	dispatcher.Register(pipeline.StageExtract, extractor.HandlePayload)
	dispatcher.Register(pipeline.StageIndex, indexer.HandlePayload)
	dispatcher.Register(pipeline.StageSections, sections.HandlePayload)

	intake := pipeline.NewIntake(blobs, statuses, dispatcher, log)

	srv := api.NewServer(intake, blobs, statuses, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: the signal goroutine only closes the listener; main
	// drains in-flight jobs after ListenAndServe returns so the process never
	// exits mid-pipeline.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting chartmate", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("draining in-flight jobs")
	dispatcher.Wait()

	claude.Close()
	embedder.Close()
	engine.Close()
}
