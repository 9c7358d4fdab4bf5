package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Acker publishes one acknowledgment.
type Acker interface {
	PublishAck(commandID string) error
}

// AckStrategy defines how a controller acknowledges commands.
type AckStrategy interface {
	Ack(ctx context.Context, a Acker, commandID string) bool
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, acker Acker, commandID string) bool {
	if !wait(ctx, a.Delay) {
		return false
	}
	return acker.PublishAck(commandID) == nil
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, acker Acker, commandID string) bool {
	if r.DropRate > 0 && rand.Float64() < r.DropRate {
		return false
	}
	if !wait(ctx, r.Delay) {
		return false
	}
	return acker.PublishAck(commandID) == nil
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// pahoAcker publishes acks on a fixed topic.
type pahoAcker struct {
	cli   paho.Client
	topic string
}

func (p pahoAcker) PublishAck(commandID string) error {
	payload, err := json.Marshal(struct {
		CommandID string `json:"command_id"`
	}{CommandID: commandID})
	if err != nil {
		return err
	}
	token := p.cli.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("ack publish timeout for %s", commandID)
	}
	return token.Error()
}
