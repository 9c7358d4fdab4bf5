package config

import (
	"fmt"
	"runtime"
)

// BatchConfig bounds household fan-out in batch runs.
type BatchConfig struct {
	MaxParallel int `json:"max_parallel"`
	// AckTimeoutMS bounds the wait for each MQTT acknowledgment. Zero skips
	// waiting.
	AckTimeoutMS int `json:"ack_timeout_ms"`
}

// SetDefaults uses one worker per CPU.
func (c *BatchConfig) SetDefaults() {
	if c.MaxParallel == 0 {
		c.MaxParallel = runtime.NumCPU()
	}
}

// Validate checks ranges.
func (c BatchConfig) Validate() error {
	if c.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must not be negative")
	}
	if c.AckTimeoutMS < 0 {
		return fmt.Errorf("ack_timeout_ms must not be negative")
	}
	return nil
}
