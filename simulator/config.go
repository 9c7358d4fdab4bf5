package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	AckTopic    string
	AckLatency  time.Duration
	DropRate    float64
	Workers     int
	Verbose     bool
}

// Validate checks the flag values.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker required")
	}
	if c.AckTopic == "" {
		return fmt.Errorf("ack topic required")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate must be within [0,1], got %v", c.DropRate)
	}
	if c.AckLatency < 0 {
		return fmt.Errorf("ack latency must not be negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// CommandTopic is the subscription matching every appliance schedule topic.
func (c Config) CommandTopic() string {
	if c.TopicPrefix == "" {
		return "+/+/schedule"
	}
	return c.TopicPrefix + "/+/+/schedule"
}
