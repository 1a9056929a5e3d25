package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{2, "ParentBased{root:AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Contains(t, sampler(tt.ratio).Description(), tt.want)
	}
}

func TestStartServiceSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer(instrumentationName).Start(context.Background(), "OrderService.Checkout")
	EndSpan(span, errors.New("insufficient stock"))

	ctx, span2 := StartServiceSpan(context.Background(), "OrderService", "Pay", attribute.String("provider", "cod"))
	assert.NotNil(t, ctx)
	EndSpan(span2, nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "Error", ended[0].Status().Code.String())
	require.Len(t, ended[0].Events(), 1)
}

func TestLoggerProvider_DisabledCoreIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), config.TelemetryConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.Core("mall", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))

	var nilProvider *LoggerProvider
	assert.NotNil(t, nilProvider.Core("mall", zapcore.InfoLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	log := zap.New(core).With(zap.String("svc", "mall"))

	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "mall", logs.All()[0].ContextMap()["svc"])
}

func TestNewProfiler(t *testing.T) {
	p, err := NewProfiler(config.ProfilingConfig{}, "mall", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())

	_, err = NewProfiler(config.ProfilingConfig{Enabled: true}, "mall", zap.NewNop())
	assert.Error(t, err)
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, RegisterDBTracing(db, "mall"))
	assert.Error(t, RegisterDBTracing(db, "mall"), "plugin is registered once")
	assert.NoError(t, db.Exec("SELECT 1").Error)
}

func TestRegistryAndHTTPMetrics(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	reg := NewRegistry(sqlDB)
	m := NewHTTPMetrics(reg)
	m.Requests.WithLabelValues("GET", "/api/v1/products", "200").Inc()
	m.Duration.WithLabelValues("GET", "/api/v1/products").Observe(0.02)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/v1/products", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["mall_http_requests_total"])
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["go_sql_open_connections"])
}
