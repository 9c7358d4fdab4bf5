package events

import "time"

// Stage names a step of the household pipeline.
type Stage string

const (
	StageDuration Stage = "duration_filter"
	StageTOU      Stage = "tou_filter"
	StageSchedule Stage = "schedule"
	StageResolve  Stage = "resolve"
	StageCost     Stage = "cost"
)

// StageEvent is published when a stage finishes. Count is the number of rows
// the stage produced or touched; Err holds the stage error, if any.
type StageEvent struct {
	RunID     string
	Household string
	Stage     Stage
	Total     int
	Count     int
	Elapsed   time.Duration
	Err       error
	Time      time.Time
}

// Failed reports whether the stage ended with an error.
func (e StageEvent) Failed() bool { return e.Err != nil }
