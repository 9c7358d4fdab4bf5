package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/loadshift/auth"
	"github.com/kilianp07/loadshift/config"
	"github.com/kilianp07/loadshift/core/constraint"
	"github.com/kilianp07/loadshift/core/cost"
	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/filter"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/core/monitoring"
	coremqtt "github.com/kilianp07/loadshift/core/mqtt"
	"github.com/kilianp07/loadshift/core/report"
	"github.com/kilianp07/loadshift/core/resolver"
	"github.com/kilianp07/loadshift/core/scheduler"
	"github.com/kilianp07/loadshift/core/tariff"
	"github.com/kilianp07/loadshift/infra/logger"
	infmonitoring "github.com/kilianp07/loadshift/infra/monitoring"
	_ "github.com/kilianp07/loadshift/infra/metrics" // registers the metrics sinks
	"github.com/kilianp07/loadshift/infra/mqtt"
	"github.com/kilianp07/loadshift/infra/store"
	"github.com/kilianp07/loadshift/infra/tariffs"
	"github.com/kilianp07/loadshift/internal/eventbus"
)

// Service runs the load-shifting pipeline for one household at a time. The
// tariff repository and constraint set are read-only and shared by
// concurrent runs.
type Service struct {
	Constraints model.ConstraintSet
	Tariffs     *tariff.Repository
	// Tariff is the plan used when an input does not name one.
	Tariff    string
	Filter    config.FilterConfig
	Scheduler scheduler.SchedulerConfig

	Sink       coremetrics.Sink
	Monitor    monitoring.Monitor
	Store      store.RunStore
	Publisher  coremqtt.Publisher
	AckTimeout time.Duration
	Bus        eventbus.Publisher[events.StageEvent]
	Log        logger.Logger

	// Now stamps runs and stage events. Defaults to time.Now.
	Now func() time.Time

	closers []func() error
}

// Input is one household's event table.
type Input struct {
	ID     string
	Tariff string
	Events model.Table
}

// Output is everything a household run produced.
type Output struct {
	RunID     string
	Household report.Household
	Filter    filter.Result
	Results   []model.ScheduleResult
	Costs     []cost.Row
	Published int
	Acked     int
}

// New wires a Service from the configuration: constraints with the
// instruction overrides applied, the tariff repository, the metrics sink,
// the run store and, when a broker is set, the MQTT publisher.
func New(ctx context.Context, cfg *config.Config, bus eventbus.Publisher[events.StageEvent]) (*Service, error) {
	log := logger.New("service")
	cs, err := loadConstraints(cfg.Inputs)
	if err != nil {
		return nil, err
	}
	if cfg.Inputs.Tariffs == "" {
		return nil, errors.New("inputs: tariffs file required")
	}
	var cred *auth.ClientCred
	if cfg.Inputs.Auth.Enabled() {
		cred = auth.NewClientCred(cfg.Inputs.Auth)
	}
	repo, err := tariffs.Load(ctx, cfg.Inputs.Tariffs, cred)
	if err != nil {
		return nil, fmt.Errorf("tariffs: %w", err)
	}
	if _, err := repo.Get(cfg.Inputs.Tariff); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{
		Constraints: cs,
		Tariffs:     repo,
		Tariff:      cfg.Inputs.Tariff,
		Filter:      cfg.Filter,
		Scheduler:   cfg.Scheduler,
		Sink:        sink,
		AckTimeout:  time.Duration(cfg.Batch.AckTimeoutMS) * time.Millisecond,
		Bus:         bus,
		Log:         log,
	}
	mon, err := infmonitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	svc.Monitor = mon
	svc.closers = append(svc.closers, func() error {
		mon.Flush(2 * time.Second)
		return nil
	})
	rs, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	if rs != nil {
		svc.Store = rs
		svc.closers = append(svc.closers, rs.Close)
	}
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.Publisher = client
		svc.closers = append(svc.closers, func() error { client.Disconnect(); return nil })
	}
	return svc, nil
}

func loadConstraints(in config.InputsConfig) (model.ConstraintSet, error) {
	cs := model.ConstraintSet{}
	if in.Constraints != "" {
		loaded, err := constraint.LoadFile(in.Constraints)
		if err != nil {
			return nil, fmt.Errorf("constraints: %w", err)
		}
		cs = loaded
	}
	if in.Instructions == "" {
		return cs, nil
	}
	overrides := constraint.ParseInstruction(in.Instructions, cs.Names())
	cs, err := constraint.Apply(cs, overrides)
	if err != nil {
		return nil, fmt.Errorf("instructions: %w", err)
	}
	return cs, nil
}

// Close releases the store and the MQTT connection.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) monitor() monitoring.Monitor {
	if s.Monitor == nil {
		return monitoring.NopMonitor{}
	}
	return s.Monitor
}

func (s *Service) log() logger.Logger {
	if s.Log == nil {
		return logger.NopLogger{}
	}
	return s.Log
}

func (s *Service) bus() eventbus.Publisher[events.StageEvent] {
	if s.Bus == nil {
		return eventbus.Discard[events.StageEvent]{}
	}
	return s.Bus
}

func (s *Service) sink() coremetrics.Sink {
	if s.Sink == nil {
		return coremetrics.NopSink{}
	}
	return s.Sink
}

// Run filters, schedules, resolves and prices in.Events. A run that fails
// is still recorded on the sink and the store with its error.
func (s *Service) Run(ctx context.Context, in Input) (Output, error) {
	out := Output{RunID: uuid.NewString()}
	started := s.now()
	name := in.Tariff
	if name == "" {
		name = s.Tariff
	}
	out.Household = report.Household{ID: in.ID, Tariff: name}

	err := s.pipeline(ctx, in, name, &out)
	if err != nil {
		err = fmt.Errorf("household %s: %w", in.ID, err)
		out.Household.Err = err
	}
	s.record(ctx, out, started, err)
	if err != nil {
		return out, err
	}
	if s.Publisher != nil {
		out.Published, out.Acked = s.publish(in.ID, out.Results)
	}
	return out, nil
}

func (s *Service) pipeline(ctx context.Context, in Input, name string, out *Output) error {
	if s.Tariffs == nil {
		return errors.New("no tariff repository")
	}
	src, err := s.Tariffs.Plan(name)
	if err != nil {
		return model.NewConfigError(name, "%v", err)
	}
	log := s.log()
	total := len(in.Events)

	var afterDur model.Table
	var durStats filter.Stats
	s.stage(out.RunID, in.ID, events.StageDuration, total, func() (int, error) {
		afterDur, durStats = filter.MinDurationFilter{
			Constraints: s.Constraints,
			Default:     s.Filter.DefaultMinDuration,
			Log:         log,
		}.Apply(in.Events)
		return durStats.FinalReschedulable, nil
	})

	var res filter.Result
	err = s.stage(out.RunID, in.ID, events.StageTOU, total, func() (int, error) {
		final, touStats, notes, err := filter.TOUFilter{
			Tariff:    src,
			Policy:    s.Filter.PolicyImpl(),
			Threshold: s.Filter.ThresholdMinutes,
			Log:       log,
		}.Apply(afterDur)
		if err != nil {
			return 0, err
		}
		res = filter.Result{
			Table:       final,
			Duration:    durStats,
			TOU:         touStats,
			Overall:     filter.NewStats("pipeline", in.Events, final),
			Annotations: notes,
		}
		return touStats.FinalReschedulable, nil
	})
	if err != nil {
		return err
	}
	out.Filter = res
	out.Household.Filter = res.Overall
	if err := ctx.Err(); err != nil {
		return err
	}

	var placed []model.ScheduleResult
	err = s.stage(out.RunID, in.ID, events.StageSchedule, total, func() (int, error) {
		sched := scheduler.Scheduler{Config: s.Scheduler, Constraints: s.Constraints, Tariff: src, Log: log}
		var err error
		placed, err = sched.Schedule(res.Table)
		if err != nil {
			return 0, err
		}
		out.Household.Schedule = scheduler.Count(placed)
		return out.Household.Schedule.Scheduled, nil
	})
	if err != nil {
		return err
	}

	err = s.stage(out.RunID, in.ID, events.StageResolve, total, func() (int, error) {
		var err error
		out.Results, out.Household.Resolver, err = resolver.Resolver{Constraints: s.Constraints, Log: log}.Resolve(placed)
		return out.Household.Resolver.Relocated, err
	})
	if err != nil {
		return err
	}

	return s.stage(out.RunID, in.ID, events.StageCost, total, func() (int, error) {
		rows, err := cost.Calculator{Tariff: src}.Rows(out.Results)
		if err != nil {
			return 0, err
		}
		out.Costs = rows
		out.Household.Cost = cost.Summarize(rows)
		return len(rows), nil
	})
}

// stage times fn and publishes its outcome.
func (s *Service) stage(runID, household string, st events.Stage, total int, fn func() (int, error)) error {
	start := s.now()
	count, err := fn()
	end := s.now()
	s.bus().Publish(events.StageEvent{
		RunID:     runID,
		Household: household,
		Stage:     st,
		Total:     total,
		Count:     count,
		Elapsed:   end.Sub(start),
		Err:       err,
		Time:      end,
	})
	return err
}

func (s *Service) record(ctx context.Context, out Output, started time.Time, runErr error) {
	log := s.log()
	h := out.Household
	final := scheduler.Count(out.Results)
	ev := coremetrics.RunEvent{
		RunID:         out.RunID,
		Household:     h.ID,
		Tariff:        h.Tariff,
		TotalEvents:   h.Filter.TotalEvents,
		Reschedulable: h.Filter.FinalReschedulable,
		FilteredOut:   h.Filter.EventsFilteredOut,
		EfficiencyPct: h.Filter.FilterEfficiencyPct,
		Scheduled:     final.Scheduled,
		Failed:        final.Failed,
		Relocated:     h.Resolver.Relocated,
		OriginalCost:  h.Cost.Original.InexactFloat64(),
		ScheduledCost: h.Cost.Scheduled.InexactFloat64(),
		Savings:       h.Cost.Savings.InexactFloat64(),
		Elapsed:       s.now().Sub(started),
		Err:           runErr,
		Time:          started,
	}
	sink := s.sink()
	if err := sink.RecordRun(ev); err != nil {
		log.Warnf("record run %s: %v", out.RunID, err)
	}
	if rec, ok := sink.(coremetrics.OutcomeRecorder); ok && runErr == nil {
		if err := rec.RecordOutcomes(Outcomes(h.ID, out.Results)); err != nil {
			log.Warnf("record outcomes %s: %v", out.RunID, err)
		}
	}
	if s.Store == nil {
		return
	}
	rr := store.RunRecord{
		RunID:      out.RunID,
		Household:  h.ID,
		Tariff:     h.Tariff,
		Timestamp:  started,
		Filter:     h.Filter,
		Schedule:   h.Schedule,
		Resolver:   h.Resolver,
		Cost:       h.Cost,
		Placements: Placements(out.Results),
	}
	if runErr != nil {
		rr.Error = runErr.Error()
	}
	if err := s.Store.Append(ctx, rr); err != nil {
		log.Warnf("store run %s: %v", out.RunID, err)
	}
}

// Outcomes lists the rows the scheduler considered.
func Outcomes(household string, results []model.ScheduleResult) []coremetrics.Outcome {
	var out []coremetrics.Outcome
	for _, r := range results {
		if r.Status == model.StatusNone {
			continue
		}
		o := coremetrics.Outcome{
			Household:  household,
			Appliance:  r.Event.ApplianceName,
			Status:     string(r.Status),
			ShiftType:  string(r.ShiftType),
			PriceLevel: r.PriceLevel,
		}
		if r.Scheduled() {
			o.ShiftedBy = time.Duration(r.StartMinute-r.Event.StartMinute()) * time.Minute
		}
		out = append(out, o)
	}
	return out
}

// Placements converts considered rows into stored placements.
func Placements(results []model.ScheduleResult) []store.Placement {
	var out []store.Placement
	for _, r := range results {
		if r.Status == model.StatusNone {
			continue
		}
		out = append(out, store.Placement{
			EventID:    r.Event.EventID,
			Appliance:  r.Event.ApplianceName,
			Status:     string(r.Status),
			Start:      r.ScheduledStart(),
			End:        r.ScheduledEnd(),
			PriceLevel: r.PriceLevel,
			ShiftType:  string(r.ShiftType),
			Reason:     r.FailureReason,
		})
	}
	return out
}

// publish sends every successful placement to its appliance controller.
// Failures are logged; they never fail the run.
func (s *Service) publish(household string, results []model.ScheduleResult) (published, acked int) {
	log := s.log()
	for _, r := range results {
		if !r.Scheduled() {
			continue
		}
		cmd := coremqtt.ScheduleCommand{
			Household:     household,
			EventID:       r.Event.EventID,
			ApplianceID:   r.Event.ApplianceID,
			ApplianceName: r.Event.ApplianceName,
			Start:         r.ScheduledStart(),
			End:           r.ScheduledEnd(),
			PriceLevel:    r.PriceLevel,
		}
		id, err := s.Publisher.PublishSchedule(cmd)
		if err != nil {
			log.Warnf("publish %s/%s: %v", household, r.Event.EventID, err)
			continue
		}
		published++
		if s.AckTimeout <= 0 {
			continue
		}
		ok, err := s.Publisher.WaitForAck(id, s.AckTimeout)
		if err != nil || !ok {
			log.Warnf("no ack for %s/%s: %v", household, r.Event.EventID, err)
			continue
		}
		acked++
	}
	return published, acked
}
