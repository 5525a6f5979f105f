// Package telemetry records operational diagnostics for the publishing pipeline.
package telemetry

import (
	"context"
	"log"
	"time"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Event is one operational diagnostic record.
type Event struct {
	// Severity is the event severity level.
	Severity Severity
	// Component names the pipeline component that produced the event.
	Component string
	// Message is the human-readable event description.
	Message string
	// Timestamp is the event time; filled by the emitter when zero.
	Timestamp time.Time
}

// Sink receives emitted events.
type Sink interface {
	RecordEvent(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, evt Event) error

// RecordEvent calls the wrapped function.
func (f SinkFunc) RecordEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// LogSink writes events through the standard logger.
func LogSink() Sink {
	return SinkFunc(func(_ context.Context, evt Event) error {
		log.Printf("[%s] %s: %s", evt.Severity, evt.Component, evt.Message)
		return nil
	})
}

// Emitter records operational telemetry events.
type Emitter struct {
	sink  Sink
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the emitter or sink is nil.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if e == nil || e.sink == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	return e.sink.RecordEvent(ctx, evt)
}
