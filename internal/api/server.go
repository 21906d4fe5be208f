package api

import (
	"context"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/logger"
)

// Rest serves the JSON API.
type Rest struct {
	Port     string
	Handlers *Handlers
}

type handlerFunc func(w http.ResponseWriter, req *http.Request) error

func (r *Rest) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", wrap("index", r.Handlers.handleIndex))
	mux.HandleFunc("/api/transactions", wrap("listTransactions", r.Handlers.handleListTransactions))
	mux.HandleFunc("/api/transactions/upload", wrap("uploadTransactions", r.Handlers.handleUpload))
	mux.HandleFunc("/api/dashboard/summary", wrap("dashboardSummary", r.Handlers.handleSummary))
	mux.HandleFunc("/api/dashboard/line-chart", wrap("dashboardLineChart", r.Handlers.handleLineChart))
	mux.HandleFunc("/api/wallet/", wrap("wallet", r.Handlers.handleWallet))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve blocks until the context is canceled or the listener fails.
func (r *Rest) Serve(ctx context.Context) error {
	mux := r.routes()

	server := http.Server{
		Addr:              ":" + r.Port,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("HttpServer.Serve - listening", zap.String("port", r.Port))
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		logger.Info("HttpServer.Serve - shut down")
		return nil
	}
	return err
}

// wrap times the request, tags the span on failure, and turns taxonomy
// errors into JSON error responses.
func wrap(route string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		span, ctx := opentracing.StartSpanFromContext(req.Context(), route)
		defer span.Finish()

		start := time.Now()
		err := fn(w, req.WithContext(ctx))
		elapsed := time.Since(start)

		observeResponse(route, elapsed, err != nil)
		if err != nil {
			ext.Error.Set(span, true)
			logger.Error("request failed", zap.String("route", route), zap.Error(err))
			respondError(w, err)
		}
	}
}
