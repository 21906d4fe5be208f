package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/api"
	"github.com/looprhq/analytics-server/internal/clients/cache"
	"github.com/looprhq/analytics-server/internal/clients/kafka"
	"github.com/looprhq/analytics-server/internal/config"
	"github.com/looprhq/analytics-server/internal/entity/category"
	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/ingest"
	"github.com/looprhq/analytics-server/internal/model/query"
	"github.com/looprhq/analytics-server/internal/model/reports"
	"github.com/looprhq/analytics-server/internal/model/storage"
	"github.com/looprhq/analytics-server/internal/model/wallet"
)

const serviceName = "analytics-server"

func main() {
	logger.Info("Server init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	closer, err := initTracing()
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer closer.Close()

	db, err := storage.NewPostgresStorage(conf.Postgres())
	if err != nil {
		logger.Fatal("failed to init postgres", zap.Error(err))
	}

	classifier := category.Default()
	if tokens := conf.App().ExpenseCategories(); len(tokens) > 0 {
		classifier = category.NewClassifier(tokens)
	}

	var audit *kafka.Producer
	if len(conf.Kafka().Brokers()) > 0 {
		audit, err = kafka.NewProducer(conf.Kafka())
		if err != nil {
			logger.Fatal("failed to init kafka producer", zap.Error(err))
		}
		defer audit.Close()
	}

	var reportCache *cache.MemcacheClient
	if len(conf.Memcached().Hosts()) > 0 {
		reportCache, err = cache.NewMemcache(conf.Memcached())
		if err != nil {
			logger.Fatal("failed to init memcached", zap.Error(err))
		}
	}

	handlers := &api.Handlers{
		Query:   query.NewService(db),
		Reports: reports.NewGenerator(db, classifier),
		Ingest:  ingest.NewService(db),
		Config:  conf.App(),
	}
	if audit != nil {
		handlers.Wallet = wallet.NewService(db, audit)
	} else {
		handlers.Wallet = wallet.NewService(db, nil)
	}
	if reportCache != nil {
		handlers.Cache = reportCache
	}

	logger.Info("Server init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rest := api.Rest{
		Port:     conf.Server().Port(),
		Handlers: handlers,
	}
	if err = rest.Serve(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initTracing() (io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
