package telemetry

import (
	"context"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDisabledProviders_Subtests(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("tracer", func(t *testing.T) {
		tp, err := NewTracerProvider(ctx, Config{Enabled: false}, log)
		require.NoError(t, err)
		assert.False(t, tp.IsEnabled())
		assert.NotNil(t, tp.Tracer("test"))
		tp.EnableSpanProfiles()
		assert.NoError(t, tp.Shutdown(ctx))
	})

	t.Run("meter", func(t *testing.T) {
		mp, err := NewMeterProvider(ctx, MetricsConfig{Enabled: false}, log)
		require.NoError(t, err)
		assert.False(t, mp.IsEnabled())
		assert.NotNil(t, mp.Meter("test"))
		assert.NoError(t, mp.Shutdown(ctx))
	})

	t.Run("logs yield a nop core", func(t *testing.T) {
		lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, log)
		require.NoError(t, err)
		assert.False(t, lp.IsEnabled())

		core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "test", LoggerProvider: lp, Level: zapcore.InfoLevel})
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
		assert.NoError(t, lp.Shutdown(ctx))
	})

	t.Run("profiler", func(t *testing.T) {
		p, err := NewProfiler(ProfilerConfig{Enabled: false}, log)
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "pricesync"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address is required")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name is required")
}

func TestProfiler_ProfileTypes(t *testing.T) {
	p := &Profiler{config: ProfilerConfig{ProfileCPU: true, ProfileAllocSpace: true, ProfileGoroutines: true}}
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileGoroutines,
	}, p.profileTypes())

	assert.Empty(t, (&Profiler{}).profileTypes())
}

func TestSamplerFor_Providers(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", samplerFor(1).Description())
	assert.Equal(t, "AlwaysOnSampler", samplerFor(2).Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}
