package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/swiftparcel/delivery/config"
	"github.com/swiftparcel/delivery/internal/api/orders_api"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/broker/kafka"
	"github.com/swiftparcel/delivery/internal/integrations/customersvc"
	"github.com/swiftparcel/delivery/internal/integrations/productsvc"
	"github.com/swiftparcel/delivery/internal/integrations/trackingsvc"
	"github.com/swiftparcel/delivery/internal/notifier"
	"github.com/swiftparcel/delivery/internal/services/orders"
	"github.com/swiftparcel/delivery/internal/storage/pgorders"
)

type orderAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     orderAPIOpts
	routes   chi.Router
	notifier *notifier.Notifier
	ready    func(ctx context.Context) error
	closeDB  func()
}

func mustBootstrapOrderAPI() *orderAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	httpAddr := cfg.Delivery.OrderAPIHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8081"
	}
	topic := cfg.Kafka.OrderUpdatedTopicName
	if topic == "" {
		topic = "order.updated"
	}
	baseDelay := time.Duration(cfg.Delivery.NotifierRetryBaseDelayMilli) * time.Millisecond

	st := mustOpenPostgresWithRetry(cfg.PostgresDSN(), 60*time.Second)

	apiKey := cfg.Delivery.InternalAPIKey
	products := productsvc.New(cfg.Delivery.ProductServiceBaseURL, apiKey)
	customers := customersvc.New(cfg.Delivery.CustomerServiceBaseURL, apiKey)
	trackings := trackingsvc.New(cfg.Delivery.TrackingServiceBaseURL, apiKey)

	producer := kafka.NewProducer(cfg.KafkaBrokers())
	n := notifier.New(trackings, customers, producer, topic, cfg.Delivery.NotifierQueueSize, baseDelay)

	svc := orders.New(st, products, customers, n)
	api := orders_api.New(svc, auth.NewVerifier(cfg.Delivery.JWTSecret), apiKey)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &orderAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: orderAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		routes:   api.Routes(),
		notifier: n,
		ready:    st.Ping,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgorders.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgorders.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *orderAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *orderAPIApp) Run() error {
	return runOrderAPI(a.ctx, a.opts, a.routes, a.notifier, a.ready)
}
