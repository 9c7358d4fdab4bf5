// Package mqtt defines how accepted schedules are handed to appliance controllers.
package mqtt

import (
	"strings"
	"time"
)

// ScheduleCommand tells an appliance controller when to start a run.
type ScheduleCommand struct {
	Household     string    `json:"household"`
	EventID       string    `json:"event_id"`
	ApplianceID   string    `json:"appliance_id"`
	ApplianceName string    `json:"appliance_name"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	PriceLevel    int       `json:"price_level"`
}

// Publisher sends schedule commands to appliance controllers and waits for
// their acknowledgments.
type Publisher interface {
	// PublishSchedule sends cmd and returns the command identifier used to
	// track the acknowledgment.
	PublishSchedule(cmd ScheduleCommand) (commandID string, err error)

	// WaitForAck waits for an acknowledgment of the command or until the
	// timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}

// Topic builds the command topic for one appliance. Spaces and slashes in
// names become underscores.
func Topic(prefix, household, appliance string) string {
	clean := strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_")
	parts := []string{clean.Replace(household), clean.Replace(appliance), "schedule"}
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, "/")
}
