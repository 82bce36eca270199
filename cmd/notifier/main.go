package main

import (
	"context"
	"github.com/ariefcatur/go-storefront-orders.git/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-orders.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders.git/internal/notifier"
	"github.com/ariefcatur/go-storefront-orders.git/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	name := cfg.ServiceName + "-notifier"
	logger = logger.With(zap.String("service", name))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notifier.Service{
		State: notifier.RedisState{Redis: rdb, Service: name},
		Log:   logger,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, notifier.Topics, cfg.NotifierWorkers, logger.Named("kafka"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.Strings("topics", notifier.Topics),
			zap.Int("workers", cfg.NotifierWorkers))
		if err := cons.Start(ctx, svc.Handle); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer...")
	cancel()
	<-done
}
