package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	m.Observe(OpChat, 100*time.Millisecond, nil)
	m.Observe(OpChat, 300*time.Millisecond, errors.New("boom"))
	m.Observe(OpSynthesize, 50*time.Millisecond, nil)
	m.Inc("critique_dropped")
	m.Inc("critique_dropped")

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestTotal)
	assert.Equal(t, int64(1), s.RequestFailed)
	require.Contains(t, s.Operations, OpChat)
	assert.Equal(t, int64(2), s.Operations[OpChat].Count)
	assert.Equal(t, int64(1), s.Operations[OpChat].ErrorCount)
	assert.Equal(t, int64(200), s.Operations[OpChat].AvgDurationMs)
	assert.Equal(t, int64(300), s.Operations[OpChat].MaxDurationMs)
	assert.Equal(t, int64(2), s.Events["critique_dropped"])
	assert.Equal(t, []string{OpChat, OpSynthesize}, s.OperationNames())
	assert.InDelta(t, 66.67, s.SuccessRate(), 0.01)
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Observe(OpCritique, time.Millisecond, nil)
			m.Inc("critique_findings")
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(50), s.Operations[OpCritique].Count)
	assert.Equal(t, int64(50), s.Events["critique_findings"])
}

func TestEmptySnapshotSuccessRate(t *testing.T) {
	assert.Equal(t, 100.0, NewMetrics().Snapshot().SuccessRate())
}

func TestRequestContextFromContext(t *testing.T) {
	reqCtx := NewRequestContext(nil, OpChat, "u1")
	ctx := WithRequestContext(context.Background(), reqCtx)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, reqCtx.RequestID, RequestID(ctx))
	assert.NotNil(t, Logger(ctx))

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, RequestID(context.Background()))
	assert.NotNil(t, Logger(context.Background()))
}
