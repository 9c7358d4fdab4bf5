package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/loadshift/core/events"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
)

func bodyRecorder(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(b)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordRun(t *testing.T) {
	srv, bodies := bodyRecorder(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID: "r1", Household: "house1", Tariff: "Economy_7",
		TotalEvents: 20, Reschedulable: 8, FilteredOut: 4, EfficiencyPct: 50,
		Scheduled: 3, Failed: 1, Relocated: 1,
		OriginalCost: 0.91, ScheduledCost: 0.51, Savings: 0.4,
		Elapsed: 1500 * time.Microsecond, Time: now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("household_run").
		AddTag("household", "house1").
		AddTag("tariff", "Economy_7").
		AddTag("status", "ok").
		AddTag("run_id", "r1").
		AddField("total_events", 20).
		AddField("reschedulable", 8).
		AddField("filtered_out", 4).
		AddField("filter_efficiency_pct", 50.0).
		AddField("scheduled", 3).
		AddField("failed", 1).
		AddField("relocated", 1).
		AddField("original_cost", 0.91).
		AddField("scheduled_cost", 0.51).
		AddField("savings", 0.4).
		AddField("elapsed_ms", 1.5).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != exp {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordRunError(t *testing.T) {
	srv, bodies := bodyRecorder(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()
	if err := sink.RecordRun(coremetrics.RunEvent{Household: "house3", Err: errors.New("no season covers March"), Time: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := bodies()
	if len(got) != 1 || !strings.Contains(got[0], `status=error`) || !strings.Contains(got[0], `error="no season covers March"`) {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordStage(t *testing.T) {
	srv, bodies := bodyRecorder(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()
	ev := events.StageEvent{RunID: "r1", Household: "house1", Stage: events.StageTOU, Total: 8, Count: 4, Elapsed: time.Millisecond, Time: now}
	if err := sink.RecordStage(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("pipeline_stage").
		AddTag("household", "house1").
		AddTag("stage", "tou_filter").
		AddTag("run_id", "r1").
		AddField("total", 8).
		AddField("count", 4).
		AddField("elapsed_ms", 1.0).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != exp {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink on failing health check, got %T", sink)
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestNewInfluxSinkWithFallback_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"name":"influxdb","message":"ready for queries and writes","status":"pass","checks":[]}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	is, ok := sink.(*InfluxSink)
	if !ok {
		t.Fatalf("expected InfluxSink, got %T", sink)
	}
	is.Close()
}
