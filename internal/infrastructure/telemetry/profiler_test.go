package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "ledger"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")
}

func TestProfileRegion(t *testing.T) {
	t.Run("attaches labels", func(t *testing.T) {
		var route, method string
		ProfileRegion(context.Background(), func(ctx context.Context) {
			route, _ = pprof.Label(ctx, "route")
			method, _ = pprof.Label(ctx, "method")
		}, "route", "/api/v1/settlements", "method", "POST")

		assert.Equal(t, "/api/v1/settlements", route)
		assert.Equal(t, "POST", method)
	})

	t.Run("odd pairs run unlabelled", func(t *testing.T) {
		called := false
		ProfileRegion(context.Background(), func(ctx context.Context) {
			called = true
			_, ok := pprof.Label(ctx, "route")
			assert.False(t, ok)
		}, "route")
		assert.True(t, called)
	})
}
