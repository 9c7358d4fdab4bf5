package model

import (
	"fmt"
	"time"
)

// ScheduleStatus is the terminal outcome of scheduling one event.
type ScheduleStatus string

const (
	// StatusNone marks rows that were never considered for scheduling.
	StatusNone    ScheduleStatus = ""
	StatusSuccess ScheduleStatus = "SUCCESS"
	StatusFailed  ScheduleStatus = "FAILED"
)

// ShiftType describes how a successful placement relates to the original start.
type ShiftType string

const (
	ShiftDelay    ShiftType = "DELAY"
	ShiftAdvance  ShiftType = "ADVANCE"
	ShiftNoChange ShiftType = "NO_CHANGE"
)

// ShiftTypeOf classifies a move from original to scheduled minute.
func ShiftTypeOf(original, scheduled int) ShiftType {
	switch {
	case scheduled < original:
		return ShiftAdvance
	case scheduled > original:
		return ShiftDelay
	default:
		return ShiftNoChange
	}
}

// Failure reasons recorded on FAILED rows.
const (
	ReasonNoFeasibleSlot = "no feasible slot"
	ReasonNoSlotAfterFix = "no available time slot after collision resolution"
)

// ScheduleResult is the output row for one event. Only the placement and
// status may change after the scheduler created it, and only through
// MoveTo and MarkFailed.
type ScheduleResult struct {
	Event         Event          `json:"event"`
	Status        ScheduleStatus `json:"schedule_status"`
	StartMinute   int            `json:"scheduled_start_minute"`
	EndMinute     int            `json:"scheduled_end_minute"`
	PriceLevel    int            `json:"price_level_at_schedule"`
	Rate          float64        `json:"rate_at_schedule"`
	FailureReason string         `json:"failure_reason,omitempty"`
	ShiftType     ShiftType      `json:"shift_type,omitempty"`
}

// Scheduled reports whether the row holds a successful placement.
func (r ScheduleResult) Scheduled() bool { return r.Status == StatusSuccess }

// ScheduledStart converts the start minute to a timestamp on the event day.
// It returns the zero time for rows without a placement.
func (r ScheduleResult) ScheduledStart() time.Time {
	if !r.Scheduled() {
		return time.Time{}
	}
	return r.Event.Day().Add(time.Duration(r.StartMinute) * time.Minute)
}

// ScheduledEnd converts the end minute to a timestamp on the event day.
func (r ScheduleResult) ScheduledEnd() time.Time {
	if !r.Scheduled() {
		return time.Time{}
	}
	return r.Event.Day().Add(time.Duration(r.EndMinute) * time.Minute)
}

// MoveTo relocates a successful placement to a later start.
func (r *ScheduleResult) MoveTo(start int) error {
	if r.Status != StatusSuccess {
		return fmt.Errorf("event %s: cannot move a %q placement", r.Event.EventID, r.Status)
	}
	if start < r.StartMinute {
		return fmt.Errorf("event %s: cannot move earlier (%d < %d)", r.Event.EventID, start, r.StartMinute)
	}
	d := r.EndMinute - r.StartMinute
	r.StartMinute = start
	r.EndMinute = start + d
	r.ShiftType = ShiftTypeOf(r.Event.StartMinute(), start)
	return nil
}

// MarkFailed flips a placement to FAILED and clears its slot.
func (r *ScheduleResult) MarkFailed(reason string) {
	r.Status = StatusFailed
	r.FailureReason = reason
	r.StartMinute, r.EndMinute = 0, 0
	r.ShiftType = ""
}
