package main

import (
	"context"
	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/config"
	"github.com/ariefcatur/go-storefront-orders.git/internal/events"
	"github.com/ariefcatur/go-storefront-orders.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders.git/internal/orders"
	"github.com/ariefcatur/go-storefront-orders.git/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders.git/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", cfg.ServiceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (topic per message)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("kafka"))
	prod.Start(ctx)
	pub := &events.Publisher{Sink: prod, Service: cfg.ServiceName}

	// Catalog & orders
	catalogRepo := &catalog.Repo{DB: db}
	products := &catalog.CachedReader{Source: catalogRepo, Redis: rdb, TTL: cfg.CatalogCacheTTL, Log: logger.Named("catalog")}
	orderRepo := &orders.Repo{DB: db}
	composer := orders.NewComposer(orderRepo, products, pub, logger.Named("orders"))
	carts := cart.RedisBackend{Redis: rdb}

	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Browse: catalogRepo, Products: products, Log: logger}).Register(router)
	(&httpx.CartHandler{
		Carts:    carts,
		Products: products,
		Notifier: pub,
		MaxQty:   cfg.MaxQty,
		Log:      logger.Named("cart"),
	}).Register(router)
	(&httpx.OrdersHandler{
		Composer:   composer,
		Products:   products,
		Carts:      carts,
		Notifier:   pub,
		Orders:     orderRepo,
		Events:     pub,
		Redis:      rdb,
		AdminToken: cfg.AdminToken,
		MaxQty:     cfg.MaxQty,
		Log:        logger,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
}
