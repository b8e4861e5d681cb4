package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledRecordsNothing(t *testing.T) {
	m := New(false, true)
	m.Inc(LoginSuccess)
	m.Observe(AuthenticateLatency, time.Millisecond)
	assert.Zero(t, m.Value(LoginSuccess))
	s := m.Snapshot()
	assert.Empty(t, s.Counters)
	assert.Empty(t, s.Histograms)

	var nilMetrics *Metrics
	nilMetrics.Inc(LoginSuccess)
	assert.Zero(t, nilMetrics.Value(LoginSuccess))
}

func TestCountersConcurrent(t *testing.T) {
	m := New(true, false)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(RefreshSuccess)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(8000), m.Value(RefreshSuccess))
}

func TestHistogramIDsAreNotCounters(t *testing.T) {
	m := New(true, true)
	m.Inc(ValidateLatency)
	m.Observe(LoginSuccess, time.Millisecond)

	s := m.Snapshot()
	_, isCounter := s.Counters[ValidateLatency]
	assert.False(t, isCounter)
	for _, v := range s.Histograms[ValidateLatency] {
		assert.Zero(t, v)
	}
}

func TestHistogramBuckets(t *testing.T) {
	m := New(true, true)
	for _, d := range []time.Duration{
		time.Millisecond,
		7 * time.Millisecond,
		30 * time.Millisecond,
		200 * time.Millisecond,
		2 * time.Second,
	} {
		m.Observe(AuthenticateLatency, d)
	}

	s := m.Snapshot()
	require.Len(t, s.Histograms[AuthenticateLatency], BucketCount)
	assert.Equal(t, []uint64{1, 1, 0, 1, 0, 1, 0, 1}, s.Histograms[AuthenticateLatency])
	assert.Len(t, s.Histograms, 2)
}

func TestLatencyOffOmitsHistograms(t *testing.T) {
	m := New(true, false)
	m.Observe(AuthenticateLatency, time.Millisecond)
	assert.Empty(t, m.Snapshot().Histograms)
	assert.Len(t, m.Snapshot().Counters, Count-2)
}
