package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{}, nil)
	assert.Nil(t, d)
	d.Emit(context.Background(), Event{Type: "x"})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink, nil)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Type: "auth_success"})
	}
	d.Close()

	assert.Len(t, sink.Events(), 5)
	d.Emit(context.Background(), Event{Type: "late"})
	assert.Len(t, sink.Events(), 5)
}

type blockingSink struct {
	release chan struct{}
	once    sync.Once
	started chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	s.once.Do(func() { close(s.started) })
	<-s.release
}

func TestDispatcherDropIfFullCounts(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), started: make(chan struct{})}
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, zap.New(core))

	d.Emit(context.Background(), Event{Type: "first"})
	<-sink.started
	d.Emit(context.Background(), Event{Type: "queued"})
	d.Emit(context.Background(), Event{Type: "dropped"})
	d.Emit(context.Background(), Event{Type: "dropped"})

	assert.Equal(t, uint64(2), d.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("audit_buffer_full").Len())

	close(sink.release)
	d.Close()
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("boom") }

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{}, zap.New(core))
	d.Emit(context.Background(), Event{Type: "a"})
	d.Emit(context.Background(), Event{Type: "b"})
	d.Close()
	assert.Equal(t, 2, logs.FilterMessage("audit_sink_panic").Len())
}

func TestJSONWriterSinkOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{Type: "user_registered", AccountID: "a1", Success: true})
	s.Emit(context.Background(), Event{Type: "auth_failed_wrong_password", Email: "u@x.com"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "user_registered", first["event_type"])
	assert.Equal(t, "a1", first["user_id"])
	_, hasEmail := first["email"]
	assert.False(t, hasEmail)
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewZapSink(zap.New(core))

	s.Emit(context.Background(), Event{Type: "tokens_issued", AccountID: "a1", Success: true, Timestamp: time.Unix(0, 0)})
	s.Emit(context.Background(), Event{Type: "otp_locked", AccountID: "a1", Metadata: map[string]string{"action": "login"}})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "tokens_issued", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "login", entries[1].ContextMap()["action"])
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{Type: "x"})
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}
