package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingReclassifier struct {
	calls atomic.Int32
	n     int
	err   error
}

func (c *countingReclassifier) ReclassifyAll(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestNewOverdueScheduler_RejectsZeroInterval(t *testing.T) {
	_, err := NewOverdueScheduler(&countingReclassifier{}, OverdueConfig{Enabled: true}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewOverdueScheduler(&countingReclassifier{}, OverdueConfig{Enabled: false}, nil)
	assert.NoError(t, err)
}

func TestOverdueScheduler_RunOnce(t *testing.T) {
	target := &countingReclassifier{n: 3}
	s, err := NewOverdueScheduler(target, DefaultOverdueConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, s.LastRun())

	res := s.RunOnce(context.Background())

	assert.Equal(t, 3, res.Reclassified)
	assert.NoError(t, res.Err)
	require.NotNil(t, s.LastRun())
	assert.Equal(t, 3, s.LastRun().Reclassified)
}

func TestOverdueScheduler_RunOnceKeepsPartialCount(t *testing.T) {
	target := &countingReclassifier{n: 1, err: errors.New("tenant b failed")}
	s, _ := NewOverdueScheduler(target, DefaultOverdueConfig(), nil)

	res := s.RunOnce(context.Background())

	assert.Equal(t, 1, res.Reclassified)
	assert.EqualError(t, res.Err, "tenant b failed")
}

func TestOverdueScheduler_StartStop(t *testing.T) {
	target := &countingReclassifier{}
	s, err := NewOverdueScheduler(target, OverdueConfig{
		Enabled:    true,
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	after := target.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, target.calls.Load())
}

func TestOverdueScheduler_Disabled(t *testing.T) {
	target := &countingReclassifier{}
	s, _ := NewOverdueScheduler(target, OverdueConfig{Enabled: false}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(0), target.calls.Load())
}
