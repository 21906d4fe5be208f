package main

import (
	"context"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/clients/kafka"
	"github.com/looprhq/analytics-server/internal/config"
	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/audit"
)

func main() {
	logger.Info("Auditor init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	consumer, err := kafka.NewConsumer(conf.Kafka(), audit.NewRecorder())
	if err != nil {
		logger.Fatal("failed to init kafka consumer", zap.Error(err))
	}

	logger.Info("Auditor init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err = consumer.StartConsuming(ctx); err != nil {
		logger.Fatal("failed to start consuming", zap.Error(err))
	}
}
