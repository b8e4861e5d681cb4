package metrics

import (
	"sync/atomic"
	"time"
)

// ID names one counter or histogram slot.
type ID uint16

const (
	RegisterSuccess ID = iota
	RegisterConflict
	RegisterPolicyRejected
	LoginSuccess
	LoginFailure
	LoginLocked
	AccountLocked
	TokensIssued
	RefreshSuccess
	RefreshRevoked
	RefreshInvalid
	Logout
	LogoutAll
	AccessBlacklisted
	OTPIssued
	OTPRateLimited
	OTPDeliveryFailure
	OTPVerified
	OTPFailure
	OTPLocked
	OAuthStateCreated
	OAuthStateRejected
	PlatformLinked
	PlatformUnlinked
	CipherFailure
	AuthenticateLatency
	ValidateLatency
	idCount
)

// Count is the number of defined IDs.
const Count = int(idCount)

const (
	BucketCount   = 8
	cacheLineSize = 64
)

// IsHistogram reports whether id records durations rather than counts.
func IsHistogram(id ID) bool {
	return id == AuthenticateLatency || id == ValidateLatency
}

type histogram struct {
	buckets [BucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and latency histograms. A
// nil or disabled *Metrics accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

func New(enabled, latency bool) *Metrics {
	return &Metrics{enabled: enabled, enableLatency: enabled && latency}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.enableLatency }

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount || IsHistogram(id) {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsHistogram(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies current values. Histogram buckets are non-cumulative.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:   map[ID]uint64{},
		Histograms: map[ID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := ID(0); id < idCount; id++ {
		if IsHistogram(id) {
			if m.enableLatency {
				buckets := make([]uint64, BucketCount)
				for i := range buckets {
					buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
				}
				s.Histograms[id] = buckets
			}
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// Bucket upper bounds: 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
