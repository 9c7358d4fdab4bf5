package constraint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/model"
)

// Raw mirrors one appliance entry of a constraint file. Times are "HH:MM"
// strings; hours may run past 24.
type Raw struct {
	ForbiddenTime      [][2]string `json:"forbidden_time,omitempty" yaml:"forbidden_time,omitempty"`
	ForbiddenIntervals [][2]string `json:"forbidden_intervals,omitempty" yaml:"forbidden_intervals,omitempty"`
	LatestFinish       string      `json:"latest_finish,omitempty" yaml:"latest_finish,omitempty"`
	ShiftRule          string      `json:"shift_rule,omitempty" yaml:"shift_rule,omitempty"`
	MinDuration        *int        `json:"min_duration,omitempty" yaml:"min_duration,omitempty"`
}

// RawSet is a constraint file: appliance name to raw rule.
type RawSet map[string]Raw

// LoadFile reads a constraint file in JSON or YAML depending on its extension.
func LoadFile(path string) (model.ConstraintSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Decode(f, ext)
}

// Decode reads a constraint set from r in the given format.
func Decode(r io.Reader, format string) (model.ConstraintSet, error) {
	var raw RawSet
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return raw.Build()
}

// Build normalises and validates every entry. Any failure is a ConfigError
// naming the appliance.
func (s RawSet) Build() (model.ConstraintSet, error) {
	out := make(model.ConstraintSet, len(s))
	for name, r := range s {
		c, err := r.Build(name)
		if err != nil {
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}

// Build converts a raw entry, filling unset fields from DefaultConstraint.
func (r Raw) Build(name string) (model.ApplianceConstraint, error) {
	c := model.DefaultConstraint()
	pairs := r.ForbiddenTime
	if len(r.ForbiddenIntervals) > 0 {
		pairs = r.ForbiddenIntervals
	}
	if pairs != nil {
		forbidden, err := ParseForbidden(pairs)
		if err != nil {
			return c, model.NewConfigError(name, "%v", err)
		}
		c.Forbidden = forbidden
	}
	if r.LatestFinish != "" {
		lf, err := model.ParseClock(r.LatestFinish)
		if err != nil {
			return c, model.NewConfigError(name, "latest_finish: %v", err)
		}
		c.LatestFinish = lf
	}
	rule, err := model.ParseShiftRule(r.ShiftRule)
	if err != nil {
		return c, model.NewConfigError(name, "%v", err)
	}
	c.ShiftRule = rule
	if r.MinDuration != nil {
		c.MinDuration = *r.MinDuration
	}
	if err := c.Validate(name); err != nil {
		return c, err
	}
	return c, nil
}

// ParseForbidden converts "HH:MM" pairs to minute intervals. A pair whose end
// is before its start crosses midnight and is split into [start, 24:00)
// and [00:00, end). An end of "00:00" therefore means 24:00. Equal ends are
// an error.
func ParseForbidden(pairs [][2]string) ([]interval.Interval, error) {
	out := make([]interval.Interval, 0, len(pairs))
	for _, p := range pairs {
		s, err := model.ParseClock(p[0])
		if err != nil {
			return nil, err
		}
		e, err := model.ParseClock(p[1])
		if err != nil {
			return nil, err
		}
		switch {
		case s < e:
			out = append(out, interval.Interval{Start: s, End: e})
		case s == e:
			return nil, fmt.Errorf("forbidden range %s-%s is empty", p[0], p[1])
		default:
			out = append(out, interval.Interval{Start: s, End: interval.MinutesPerDay})
			if e > 0 {
				out = append(out, interval.Interval{Start: 0, End: e})
			}
		}
	}
	return out, nil
}

// ToRaw renders a typed constraint back into its file form.
func ToRaw(c model.ApplianceConstraint) Raw {
	pairs := make([][2]string, 0, len(c.Forbidden))
	for _, f := range c.Forbidden {
		pairs = append(pairs, [2]string{model.FormatClock(f.Start), model.FormatClock(f.End)})
	}
	md := c.MinDuration
	return Raw{
		ForbiddenTime: pairs,
		LatestFinish:  model.FormatClock(c.LatestFinish),
		ShiftRule:     string(c.ShiftRule),
		MinDuration:   &md,
	}
}

// Encode writes the constraint set in JSON or YAML.
func Encode(w io.Writer, set model.ConstraintSet, format string) error {
	raw := make(RawSet, len(set))
	for name, c := range set {
		raw[name] = ToRaw(c)
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(raw)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Defaults builds a constraint set assigning DefaultConstraint to every
// appliance name.
func Defaults(names []string) model.ConstraintSet {
	out := make(model.ConstraintSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out[n] = model.DefaultConstraint()
	}
	return out
}
