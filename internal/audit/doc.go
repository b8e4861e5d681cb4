// Package audit buffers security events and relays them to a Sink on a
// background goroutine.
//
// Sinks provided here write to a channel, to newline-delimited JSON or to a
// zap logger. The Kafka sink lives in audit/kafkasink so that this package
// stays free of broker dependencies. Which events to emit is decided by the
// Engine.
package audit
