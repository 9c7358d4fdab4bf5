// Command simulator stands in for household appliance controllers. It
// subscribes to every schedule topic, records the commands and
// acknowledges them, optionally late or not at all.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/loadshift/infra/logger"
)

func main() {
	cfg := parseFlags()
	log := logger.New("simulator")
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(2)
	}
	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	_ = logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := newMQTTClient(cfg, log)
	if err != nil {
		log.Errorf("connect: %v", err)
		os.Exit(1)
	}
	defer cli.Disconnect(250)

	sim := &Simulator{
		Controller: NewController(),
		Strategy:   RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate},
		Acker:      pahoAcker{cli: cli, topic: cfg.AckTopic},
		Log:        log,
	}
	if err := sim.Run(ctx, cli, cfg.CommandTopic(), cfg.Workers); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	for _, c := range sim.Controller.Upcoming(time.Time{}) {
		log.Infof("%s %s %s-%s", c.Household, c.ApplianceName, c.Start.Format(time.DateTime), c.End.Format("15:04"))
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.ClientID, "client-id", "loadshift-sim", "MQTT client id")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "loadshift", "schedule topic prefix")
	flag.StringVar(&cfg.AckTopic, "ack-topic", "loadshift/ack", "topic acknowledgments are published on")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop rate")
	flag.IntVar(&cfg.Workers, "workers", 5, "concurrent ack workers")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

// Simulator routes schedule commands to the controller and acknowledges them.
type Simulator struct {
	Controller *Controller
	Strategy   AckStrategy
	Acker      Acker
	Log        logger.Logger
}

// Run subscribes to topic and acks until ctx is done.
func (s *Simulator) Run(ctx context.Context, cli paho.Client, topic string, workers int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ackCh := make(chan string, 50)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, ackCh)
		}()
	}
	handler := func(_ paho.Client, msg paho.Message) {
		s.Receive(msg.Topic(), msg.Payload(), ackCh)
	}
	if token := cli.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		cancel()
		wg.Wait()
		return token.Error()
	}
	s.Log.Infof("listening on %s", topic)
	<-ctx.Done()
	cli.Unsubscribe(topic).WaitTimeout(time.Second)
	wg.Wait()
	return nil
}

// Receive handles one command payload and queues its acknowledgment.
func (s *Simulator) Receive(topic string, payload []byte, ackCh chan<- string) {
	cmd, err := s.Controller.Handle(payload)
	if err != nil {
		s.Log.Warnf("%s: %v", topic, err)
		return
	}
	s.Log.Debugw("schedule received", map[string]any{
		"topic":      topic,
		"command_id": cmd.CommandID,
		"event_id":   cmd.EventID,
		"start":      cmd.Start.Format(time.RFC3339),
	})
	select {
	case ackCh <- cmd.CommandID:
	default:
		s.Log.Warnf("ack queue full, dropping command %s", cmd.CommandID)
	}
}

func (s *Simulator) worker(ctx context.Context, ackCh <-chan string) {
	for {
		select {
		case id, ok := <-ackCh:
			if !ok {
				return
			}
			if !s.Strategy.Ack(ctx, s.Acker, id) {
				s.Log.Debugf("command %s not acknowledged", id)
			}
		case <-ctx.Done():
			return
		}
	}
}
