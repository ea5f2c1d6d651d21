package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
	"edulens/pipeline"
	"edulens/providers"
	"edulens/server"
	"edulens/storage"
	"edulens/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(cfg.DataDir, os.Getenv("LOG_LEVEL")); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.L()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	artifacts, err := storage.NewArtifacts(cfg.DataDir)
	if err != nil {
		log.Fatalf("artifacts: %v", err)
	}
	catalog, err := storage.OpenCatalog(cfg.DataDir)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	defer catalog.Close()

	store := storage.NewIndexStore(cfg)
	defer store.Close()

	manager := providers.NewManager(cfg)
	asr := transcript.PickASRProvider(cfg)
	acquirer := transcript.NewAcquirer(cfg, asr, manager, artifacts)

	jobs := core.NewJobStore()
	indexer := pipeline.NewIndexer(store, manager)
	slicer := pipeline.NewFastSlicer(store, artifacts, manager, cfg.SliceMaxParts)
	retriever := pipeline.NewRetriever(store, manager)
	generator := pipeline.NewGenerator(retriever, manager, slicer)
	orch := pipeline.NewOrchestrator(cfg, jobs, artifacts, catalog, store, acquirer, indexer, slicer, generator)

	srv := server.New(cfg, jobs, orch, generator, slicer, manager, catalog)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("listening on :%s (store=%s)", cfg.Port, cfg.Store)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
}
