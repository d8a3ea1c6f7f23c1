package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sheikh-saqib/token-ledger/internal/api"
	"github.com/sheikh-saqib/token-ledger/internal/config"
	"github.com/sheikh-saqib/token-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/logx"
	"github.com/sheikh-saqib/token-ledger/internal/monitoring"
	"github.com/sheikh-saqib/token-ledger/internal/storage/bolt"
	"github.com/sheikh-saqib/token-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/token-ledger/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		logx.Error("SERVER", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logx.Init(cfg.Log)
	monitoring.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers)
		defer p.Close()
		publisher = p
		logx.Info("SERVER", fmt.Sprintf("Publishing events to kafka %v", cfg.KafkaBrokers))
	}

	ledgerService, err := ledger.NewLedger(ctx, store, publisher, cfg.Genesis,
		ledger.WithTopics(cfg.KafkaTransferTopic, cfg.KafkaApprovalTopic),
		ledger.WithStrictAudit(cfg.Strict),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(ledgerService),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info("SERVER", "Starting server on ", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info("SERVER", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg *config.Config) (interfaces.LedgerStore, io.Closer, error) {
	switch cfg.Store {
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logx.Info("SERVER", "Using postgres store")
		return s, s, nil
	case config.StoreBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.BoltPath), 0o755); err != nil {
			return nil, nil, err
		}
		s, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		logx.Info("SERVER", "Using bolt store at ", cfg.BoltPath)
		return s, s, nil
	default:
		logx.Warn("SERVER", "Using in-memory store; state is lost on restart")
		return memory.NewMemoryLedgerStore(), nopCloser{}, nil
	}
}
