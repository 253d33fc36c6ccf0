package runnable

import (
	"context"
	diffimage "design-diff/internal/diff/image"
	difftext "design-diff/internal/diff/text"
	"design-diff/internal/myhttp"
	"design-diff/internal/report"
	"design-diff/internal/routes"
	"design-diff/internal/storage"
	"design-diff/internal/store"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	pyroscopepprof "github.com/grafana/pyroscope-go/http/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
)

// Components are the collaborators the HTTP handlers are built from. A nil
// Jira or Slack disables that notifier.
type Components struct {
	Records store.Store
	Blobs   storage.Storage
	Differ  diffimage.Differ
	Jira    routes.JiraPublisher
	Slack   routes.SlackPublisher

	// MaxPixels bounds uploaded baselines the same way Differ bounds comparisons.
	MaxPixels int64
}

type Server struct {
	address                string
	terminationGracePeriod time.Duration
	lameduck               time.Duration
	keepAlive              bool
	maxConnections         int
	publicURL              string
	maxUploadBytes         int64
	corsAllowedOrigins     []string
	components             Components
}

func NewServer(components Components) *Server {
	return &Server{
		address:                envOrDefaultValue("ADDRESS", "0.0.0.0:8080"),
		terminationGracePeriod: envOrDefaultValue("TERMINATION_GRACE_PERIOD", 10*time.Second),
		lameduck:               envOrDefaultValue("LAMEDUCK", 1*time.Second),
		keepAlive:              envOrDefaultValue("HTTP_KEEPALIVE", true),
		maxConnections:         envOrDefaultValue("MAX_CONNECTIONS", 65532),
		publicURL:              envOrDefaultValue("PUBLIC_URL", ""),
		maxUploadBytes:         envOrDefaultValue("MAX_UPLOAD_BYTES", int64(32<<20)),
		corsAllowedOrigins:     splitList(envOrDefaultValue("CORS_ALLOWED_ORIGINS", "")),
		components:             components,
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case int64:
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return any(intValue).(T)
		}
	case uint:
		if uintValue, err := strconv.ParseUint(value, 10, 0); err == nil {
			return any(uint(uintValue)).(T)
		}
	case uint64:
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return any(uintValue).(T)
		}
	case float64:
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return any(floatValue).(T)
		}
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

var Debug = false

func (s *Server) Start(ctx context.Context) error {
	runtime.SetMutexProfileFraction(1)
	runtime.SetBlockProfileRate(1)

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "design-diff",
		ServerAddress:   os.Getenv("PYROSCOPE_ENDPOINT"),
		UploadRate:      60 * time.Second,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to create profiler: %w", err)
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})

	r, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL),
	)
	if err != nil {
		return xerrors.Errorf("failed to create resource: %w", err)
	}
	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return xerrors.Errorf("failed to create trace exporter: %w", err)
	}
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(r),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(traceProvider))

	exporter, err := otelprometheus.New()
	if err != nil {
		return xerrors.Errorf("failed to create exporter: %w", err)
	}
	// NOTE: Gauge(UpDownCounter), Summary or Untyped does not support exemplars
	// https://github.com/prometheus/client_golang/blob/v1.20.4/prometheus/metric.go#L200
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)).Meter("design-diff")
	httpRequestsDurationMicroSeconds, err := meter.Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}
	comparisonChangedPercent, err := meter.Float64Histogram("comparison_changed_percent",
		metric.WithExplicitBucketBoundaries(0, 0.1, 1, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("GO_LOG"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return xerrors.Errorf("failed to parse log level: %w", err)
		}
	}
	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
		// https://opentelemetry.io/docs/specs/otel/logs/data-model/
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severitytext"
			case slog.MessageKey:
				a.Key = "body"
			}
			return a
		},
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	if Debug {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(myhttp.NewTraceHandler(handler))
	slog.SetDefault(logger)

	c := s.components
	mux := myhttp.NewServerMux(httpRequestsDurationMicroSeconds)

	mux.HandleFuncWithMiddleware("GET /api/health", routes.Health())
	mux.HandleFuncWithMiddleware("POST /api/baselines", routes.CreateBaseline(c.Records, c.Blobs, s.maxUploadBytes, c.MaxPixels))
	mux.HandleFuncWithMiddleware("GET /api/baselines/{id}", routes.GetBaseline(c.Records))
	mux.HandleFuncWithMiddleware("POST /api/comparisons", routes.CreateComparison(routes.ComparisonConfig{
		Records:        c.Records,
		Blobs:          c.Blobs,
		Differ:         c.Differ,
		Jira:           c.Jira,
		Slack:          c.Slack,
		ChangedPercent: comparisonChangedPercent,
		PublicURL:      s.publicURL,
		MaxUploadBytes: s.maxUploadBytes,
	}))
	mux.HandleFuncWithMiddleware("GET /api/comparisons/{id}", routes.GetComparison(c.Records))
	mux.HandleFuncWithMiddleware("GET /reports/{id}", routes.Report(c.Records, difftext.NewStructureDiff()))
	mux.HandleFuncWithMiddleware("GET /storage/{key...}", routes.Blob(c.Blobs))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(report.Static())))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(http.StatusText(http.StatusOK)))
	})

	mux.Handle("GET /metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	))

	if Debug {
		mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
		mux.HandleFunc("GET /debug/pprof/profile", pyroscopepprof.Profile)
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return xerrors.Errorf("failed to listen on address %s: %w", s.address, err)
	}

	server := &http.Server{
		Handler:           mux.WithCORS(s.corsAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.SetKeepAlivesEnabled(s.keepAlive)

	go func() {
		if err := server.Serve(netutil.LimitListener(listener, s.maxConnections)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve HTTP", "error", err)
		}
	}()

	logger.Info("listening", "address", s.address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM)
	<-quit
	time.Sleep(s.lameduck)

	ctx, cancel := context.WithTimeout(ctx, s.terminationGracePeriod)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown server: %w", err)
	}

	if err := traceProvider.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown trace provider: %w", err)
	}

	if err := profiler.Stop(); err != nil {
		return xerrors.Errorf("failed to shutdown profiler: %w", err)
	}

	return nil
}
