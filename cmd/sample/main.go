// Command sample serves a small in-memory graph with content negotiation.
//
// Run:
//
//	go run ./cmd/sample
//	go run ./cmd/sample -formats formats.yaml -log-level debug
//
// Print the effective format table:
//
//	go run ./cmd/sample -print-formats
//
// Then explore:
//
//	curl -H 'Accept: text/turtle' http://localhost:8080/people/alice
//	curl -H 'Accept: application/n-quads' http://localhost:8080/graph
//	curl http://localhost:8080/browser/alice        (wildcard answered as text/plain)
//	curl -H 'Accept: text/n3' http://localhost:8080/gin/people/alice
//	curl http://localhost:8080/formats
//	curl http://localhost:8080/metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bjaus/negotiate"
	"github.com/bjaus/negotiate/ginneg"
	"github.com/bjaus/negotiate/otelneg"
	"github.com/bjaus/negotiate/promneg"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	formatsFile := flag.String("formats", "", "YAML file with extra formats")
	printFormats := flag.Bool("print-formats", false, "Print the effective format table and exit")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	sel, err := newSelector(*formatsFile)
	if err != nil {
		slog.Error("load formats failed", "err", err)
		os.Exit(1)
	}

	if *printFormats {
		if err := sel.WriteFormats(os.Stdout); err != nil {
			slog.Error("print formats failed", "err", err)
			os.Exit(1)
		}
		return
	}

	gin.SetMode(gin.ReleaseMode)
	reg := prometheus.NewRegistry()
	h := newHandler(sel, reg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting server", "addr", *addr)

	if err := negotiate.ListenAndServe(ctx, *addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

// newLogger builds a zap logger and exposes it through slog.
func newLogger(level string) (*slog.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return slog.New(logr.ToSlogHandler(zapr.NewLogger(zl))), nil
}

func newSelector(path string) (*negotiate.Selector, error) {
	if path == "" {
		return negotiate.NewSelector(), nil
	}
	table, err := negotiate.ReadFormatsFile(path)
	if err != nil {
		return nil, err
	}
	return negotiate.NewSelector(table.Options()...), nil
}

func newHandler(sel *negotiate.Selector, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	metrics := promneg.New(reg, "sample")
	tracer := otelneg.New(nil)

	n := negotiate.New(
		negotiate.WithSelector(sel),
		negotiate.WithLogger(logger),
		negotiate.WithObserver(negotiate.Observers(metrics, tracer)),
		negotiate.WithTracer(tracer),
	)

	// Browsers send */*; answer them with turtle as text/plain.
	browserSel := negotiate.NewSelector(negotiate.WithWildcardMimetype("text/plain"))
	browserSel.RegisterFormat("text/plain", "turtle", false)
	browser := negotiate.New(
		negotiate.WithSelector(browserSel),
		negotiate.WithLogger(logger),
		negotiate.WithObserver(metrics),
	)

	people := newStore()

	mux := http.NewServeMux()
	mux.Handle("GET /people/{name}", n.View(people.person))
	mux.Handle("GET /browser/{name}", browser.View(people.person))
	mux.Handle("GET /graph", n.Wrap(people.graph))
	mux.Handle("GET /formats", sel.FormatsHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/gin/", newEngine(n, people))

	return negotiate.Chain(negotiate.Recovery(logger), requestLogger(logger))(mux)
}

func newEngine(n *negotiate.Negotiator, people *store) *gin.Engine {
	r := gin.New()
	r.GET("/gin/people/:name", ginneg.Handler(n, func(c *gin.Context) any {
		g, ok := people.lookup(c.Param("name"))
		if !ok {
			c.Status(http.StatusNotFound)
			return "no such person"
		}
		return g
	}))
	return r
}

func requestLogger(logger *slog.Logger) negotiate.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"accept", r.Header.Get("Accept"),
				"latency", time.Since(start),
			)
		})
	}
}
