// Package metrics defines the sinks that record load-shifting runs. A Sink
// records one RunEvent per household; sinks may also implement
// StageRecorder and OutcomeRecorder for finer detail. NewSink builds sinks
// from configuration and combines several of them in a MultiSink.
package metrics
