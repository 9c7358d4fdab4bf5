// Package monitoring reports unexpected failures to an error tracker.
package monitoring

import (
	"fmt"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration) bool                 { return true }

// RunTags returns the tags attached to failures of one household run.
func RunTags(household, tariff string) map[string]string {
	tags := map[string]string{"household": household}
	if tariff != "" {
		tags["tariff"] = tariff
	}
	return tags
}

// Guard calls fn and turns a panic into an error. The panic is reported
// on m with tags before Guard returns.
func Guard(m Monitor, tags map[string]string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			if m != nil {
				m.CaptureException(err, tags)
			}
		}
	}()
	return fn()
}
