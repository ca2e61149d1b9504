// Worker consumes account events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, ACCOUNT_EVENTS_TOPIC, KAFKA_GROUP_ID, and LOKI_URL. Config validation still
// requires JWT_SECRET (any value) although the worker does not sign tokens.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"user-account-service/internal/config"
	"user-account-service/internal/logging"
	"user-account-service/internal/telemetry/consumer"
	"user-account-service/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}
	sink, err := loki.New(cfg.LokiURL, nil)
	if err != nil {
		logger.Fatal("worker: LOKI_URL is required", zap.Error(err))
	}

	reader := consumer.NewKafkaReader(brokers, cfg.AccountEventsTopic, cfg.KafkaGroupID)
	c := consumer.New(reader, sink.PushEvent, logger)
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("worker: close reader", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker: consuming",
		zap.String("topic", cfg.AccountEventsTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki_url", cfg.LokiURL))
	c.Run(ctx)
	logger.Info("worker: stopped")
}
