// Package events defines the progress events emitted on the event bus while
// a household is processed.
//
// Available event types:
//   - StageEvent: a pipeline stage finished for one household
package events
