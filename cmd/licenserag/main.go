// Command licenserag runs the license-data RAG service: a vector-retrieval
// question-answering API over a mutable license dataset, backed by local
// Ollama models.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/0xcro3dile/licenserag-go/internal/adapters/embedding"
	"github.com/0xcro3dile/licenserag-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/licenserag-go/internal/adapters/llm"
	"github.com/0xcro3dile/licenserag-go/internal/adapters/persistence"
	"github.com/0xcro3dile/licenserag-go/internal/adapters/source"
	"github.com/0xcro3dile/licenserag-go/internal/adapters/vectorindex"
	"github.com/0xcro3dile/licenserag-go/internal/config"
	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
	"github.com/0xcro3dile/licenserag-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/licenserag-go/internal/infrastructure/http"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var dataSource ports.DataSource
	var fileSrc *source.FileSource
	switch cfg.Source.Type {
	case "api":
		dataSource = source.NewAPISource(cfg.Source.URL)
	default:
		fileSrc = source.NewFileSource(cfg.Source.Path)
		dataSource = fileSrc
	}

	artifacts, err := persistence.NewSQLiteStore(cfg.Index.DataDir)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	embedder := embedding.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
	backend := llm.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.Model)

	index := usecases.NewIndexManager(ctx, dataSource, embedder, vectorindex.New, artifacts, usecases.IndexManagerConfig{
		Lazy:            cfg.Index.LazyLoad,
		RefreshInterval: cfg.RefreshInterval(),
	})
	if !cfg.Index.LazyLoad {
		if count, err := index.RefreshFromSource(ctx); err != nil {
			log.Printf("[ERROR] Initial index build failed: %v", err)
		} else if count > 0 {
			log.Printf("[INFO] Initial index built with %d records", count)
		}
	}
	go index.AutoRefresh(ctx)

	if cfg.Index.WatchSource && fileSrc != nil {
		watcher, err := filewatcher.NewFSNotifyWatcher(fileSrc.Path())
		if err != nil {
			log.Printf("[WARN] Source watcher unavailable: %v", err)
		} else {
			defer watcher.Stop()
			go watchSource(ctx, watcher, index)
		}
	}

	gateway := usecases.NewGateway(backend, usecases.GatewayConfig{
		Attempts:    cfg.Gateway.Attempts,
		Backoff:     time.Duration(cfg.Gateway.BackoffSecs) * time.Second,
		CallTimeout: time.Duration(cfg.Gateway.CallTimeoutSecs) * time.Second,
		CacheSize:   cfg.Gateway.CacheSize,
	})
	sessions := usecases.NewSessionStore(cfg.Session.MaxTurns, time.Duration(cfg.Session.IdleTimeoutMins)*time.Minute)
	chat := usecases.NewChatUseCase(index, gateway, sessions, usecases.ChatConfig{
		TopK:        cfg.Index.TopK,
		MaxTokens:   cfg.Ollama.MaxTokens,
		Temperature: cfg.Ollama.Temperature,
	})

	server := httpserver.NewServer(chat, cfg.Server.Addr())
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("[INFO] Server stopped")
	return nil
}

// watchSource refreshes the index whenever the data file changes.
func watchSource(ctx context.Context, watcher *filewatcher.FSNotifyWatcher, index *usecases.IndexManager) {
	signals, err := watcher.Watch(ctx)
	if err != nil {
		log.Printf("[WARN] Source watch failed: %v", err)
		return
	}
	for range signals {
		log.Printf("[INFO] Data source changed, refreshing index")
		if _, err := index.RefreshFromSource(ctx); err != nil {
			log.Printf("[ERROR] Watch-triggered refresh failed: %v", err)
		}
	}
}
