package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/loadshift/core/mqtt"
)

// Command is a schedule command as received on an appliance topic.
type Command struct {
	CommandID string `json:"command_id"`
	coremqtt.ScheduleCommand
	Timestamp int64 `json:"timestamp"`
}

// Controller stands in for the appliance controllers of many households. It
// keeps the latest accepted start per event.
type Controller struct {
	mu       sync.Mutex
	accepted map[string]Command
}

// NewController returns an empty controller.
func NewController() *Controller {
	return &Controller{accepted: make(map[string]Command)}
}

// Handle decodes and validates a command payload and records it.
func (c *Controller) Handle(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if cmd.CommandID == "" {
		return Command{}, fmt.Errorf("command without id")
	}
	if !cmd.End.After(cmd.Start) {
		return Command{}, fmt.Errorf("command %s: end %s not after start %s", cmd.CommandID, cmd.End, cmd.Start)
	}
	c.mu.Lock()
	c.accepted[cmd.Household+"/"+cmd.EventID] = cmd
	c.mu.Unlock()
	return cmd, nil
}

// Upcoming lists accepted commands starting at or after now, earliest first.
func (c *Controller) Upcoming(now time.Time) []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Command
	for _, cmd := range c.accepted {
		if !cmd.Start.Before(now) {
			out = append(out, cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}
