package tariff

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type cacheKey struct {
	name  string
	month time.Month
}

// Repository holds the named price plans of one batch run. Derived PriceInfo
// values are memoised per (name, month) inside the instance. It is safe for
// concurrent readers.
type Repository struct {
	schedules map[string]Schedule

	mu    sync.RWMutex
	cache map[cacheKey]PriceInfo
}

// NewRepository validates every schedule and returns a repository over them.
func NewRepository(schedules map[string]Schedule) (*Repository, error) {
	r := &Repository{
		schedules: make(map[string]Schedule, len(schedules)),
		cache:     make(map[cacheKey]PriceInfo),
	}
	for name, s := range schedules {
		if err := s.Validate(name); err != nil {
			return nil, err
		}
		r.schedules[name] = s.normalized()
	}
	return r, nil
}

// LoadRepository reads a {name: schedule} file in JSON or YAML depending on
// its extension.
func LoadRepository(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return DecodeRepository(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeRepository reads schedules from r in the given format.
func DecodeRepository(r io.Reader, format string) (*Repository, error) {
	var raw map[string]Schedule
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode tariffs: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode tariffs: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return NewRepository(raw)
}

// Names lists the plans in sorted order.
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.schedules))
	for n := range r.schedules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the named schedule.
func (r *Repository) Get(name string) (Schedule, error) {
	s, ok := r.schedules[name]
	if !ok {
		return Schedule{}, fmt.Errorf("unknown tariff %q", name)
	}
	return s, nil
}

// PriceInfo returns the memoised band set of a plan for month.
func (r *Repository) PriceInfo(name string, month time.Month) (PriceInfo, error) {
	key := cacheKey{name: name, month: month}
	r.mu.RLock()
	info, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return info, nil
	}
	s, err := r.Get(name)
	if err != nil {
		return PriceInfo{}, err
	}
	info, err = s.priceInfo(name, month)
	if err != nil {
		return PriceInfo{}, err
	}
	r.mu.Lock()
	r.cache[key] = info
	r.mu.Unlock()
	return info, nil
}

// Plan binds a repository to one plan name so it can be passed where a
// Source is expected.
func (r *Repository) Plan(name string) (Source, error) {
	if _, err := r.Get(name); err != nil {
		return nil, err
	}
	return plan{repo: r, name: name}, nil
}

type plan struct {
	repo *Repository
	name string
}

func (p plan) PriceInfo(month time.Month) (PriceInfo, error) {
	return p.repo.PriceInfo(p.name, month)
}
