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
	"github.com/swiftparcel/delivery/internal/api/tracking_api"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/broker/kafka"
	"github.com/swiftparcel/delivery/internal/cache/rediscache"
	"github.com/swiftparcel/delivery/internal/integrations/customersvc"
	"github.com/swiftparcel/delivery/internal/integrations/ordersvc"
	"github.com/swiftparcel/delivery/internal/services/tracking"
)

type trackingAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     trackingAPIOpts
	routes   chi.Router
	svc      *tracking.Service
	consumer *kafka.Consumer
}

func mustBootstrapTrackingAPI() *trackingAPIApp {
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

	httpAddr := cfg.Delivery.TrackingAPIHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}
	topic := cfg.Kafka.OrderUpdatedTopicName
	if topic == "" {
		topic = "order.updated"
	}
	consumerGroup := cfg.Delivery.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "tracking-api"
	}
	ttl := time.Duration(cfg.Delivery.TrackingTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	apiKey := cfg.Delivery.InternalAPIKey
	rc := rediscache.New(cfg.RedisAddr())
	rl := rediscache.NewRateLimiter(cfg.RedisAddr())
	source := ordersvc.New(cfg.Delivery.OrderServiceBaseURL, apiKey)
	customers := customersvc.New(cfg.Delivery.CustomerServiceBaseURL, apiKey)

	svc := tracking.New(rc, source, customers, ttl)
	api := tracking_api.New(svc, auth.NewVerifier(cfg.Delivery.JWTSecret), apiKey, rl, cfg.Delivery.TrackingRateLimitPerMinute)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers(), topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &trackingAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: trackingAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		routes:   api.Routes(),
		svc:      svc,
		consumer: consumer,
	}
}

func (a *trackingAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
}

func (a *trackingAPIApp) Run() error {
	return runTrackingAPI(a.ctx, a.opts, a.routes, a.svc, a.consumer)
}
