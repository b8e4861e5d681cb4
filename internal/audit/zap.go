package audit

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink logs each event as one structured line, using the event type as
// the message. Failed events log at Warn, the rest at Info.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	fields := make([]zap.Field, 0, 6+len(event.Metadata))
	fields = append(fields, zap.Time("ts", event.Timestamp), zap.Bool("success", event.Success))
	if event.AccountID != "" {
		fields = append(fields, zap.String("user_id", event.AccountID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String(k, v))
	}

	level := zapcore.InfoLevel
	if !event.Success {
		level = zapcore.WarnLevel
	}
	if ce := s.log.Check(level, event.Type); ce != nil {
		ce.Write(fields...)
	}
}
