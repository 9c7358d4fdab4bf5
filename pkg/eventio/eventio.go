// Package eventio reads appliance event tables from CSV.
package eventio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/loadshift/core/model"
)

// Accepted timestamp layouts, tried in order.
var layouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// aliases maps canonical column names to the headers accepted for them.
var aliases = map[string][]string{
	"event_id":         {"event_id"},
	"appliance_name":   {"appliance_name"},
	"appliance_id":     {"appliance_id", "appliance_ID"},
	"shiftability":     {"shiftability", "Shiftability"},
	"start_time":       {"start_time"},
	"end_time":         {"end_time"},
	"duration_minutes": {"duration_minutes", "duration(min)"},
	"energy_watts":     {"energy_watts", "energy(W)"},
	"is_reschedulable": {"is_reschedulable"},
}

var required = []string{"event_id", "appliance_name", "start_time"}

// ReadCSV reads an event table. Rows get RowIDs in file order. A missing
// duration is derived from end_time; a missing end_time from the duration. A
// missing is_reschedulable column flags every shiftable event.
func ReadCSV(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty event file")
		}
		return nil, err
	}
	cols := columns(header)
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}

	var t model.Table
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		e, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t = append(t, e)
	}
	t.Renumber()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadFile reads the event table at path.
func ReadFile(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Household names one event file of a batch.
type Household struct {
	ID   string
	Path string
}

// ListDir returns the CSV files of dir as households, named after the file
// without extension and sorted by ID.
func ListDir(dir string) ([]Household, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Household
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		out = append(out, Household{
			ID:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func columns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	out := make(map[string]int)
	for canon, names := range aliases {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				out[canon] = i
				break
			}
		}
	}
	return out
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseRow(rec []string, cols map[string]int) (model.Event, error) {
	e := model.Event{
		EventID:       field(rec, cols, "event_id"),
		ApplianceName: field(rec, cols, "appliance_name"),
		ApplianceID:   field(rec, cols, "appliance_id"),
		Shiftability:  model.Shiftable,
	}
	if s := field(rec, cols, "shiftability"); s != "" {
		sh, err := model.ParseShiftability(s)
		if err != nil {
			return e, err
		}
		e.Shiftability = sh
	}
	var err error
	if e.StartTime, err = parseTime(field(rec, cols, "start_time")); err != nil {
		return e, fmt.Errorf("start_time: %w", err)
	}
	if s := field(rec, cols, "end_time"); s != "" {
		if e.EndTime, err = parseTime(s); err != nil {
			return e, fmt.Errorf("end_time: %w", err)
		}
	}
	if s := field(rec, cols, "duration_minutes"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return e, fmt.Errorf("duration: %w", err)
		}
		e.DurationMinutes = int(math.Floor(d))
	}
	switch {
	case e.DurationMinutes == 0 && !e.EndTime.IsZero():
		e.DurationMinutes = int(e.EndTime.Sub(e.StartTime).Round(time.Minute) / time.Minute)
	case e.EndTime.IsZero():
		e.EndTime = e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
	}
	if s := field(rec, cols, "energy_watts"); s != "" {
		if e.EnergyWatts, err = strconv.ParseFloat(s, 64); err != nil {
			return e, fmt.Errorf("energy: %w", err)
		}
	}
	if _, ok := cols["is_reschedulable"]; ok {
		if e.IsReschedulable, err = parseBool(field(rec, cols, "is_reschedulable")); err != nil {
			return e, fmt.Errorf("is_reschedulable: %w", err)
		}
	} else {
		e.IsReschedulable = e.Shiftability == model.Shiftable
	}
	return e, nil
}

func parseTime(s string) (time.Time, error) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "no":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
