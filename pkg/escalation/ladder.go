// Package escalation walks per-category escalation ladders over overdue
// tasks and fires at most one notification per cooldown window per
// task. The cooldown gate is a conditional datastore update, so the
// engine stays safe when scheduler runs overlap or multiple instances
// run at once.
package escalation

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Step is one rung of a ladder: the role notified once the task has
// been overdue for at least HourThreshold hours.
type Step struct {
	Role          string `yaml:"role" json:"role"`
	HourThreshold int    `yaml:"hourThreshold" json:"hourThreshold"`
}

// Ladder is the ordered escalation policy for one project category.
// DefaultHours doubles as the first-escalation trigger and the minimum
// re-trigger interval.
type Ladder struct {
	Category     string `yaml:"category" json:"category"`
	DefaultHours int    `yaml:"defaultHours" json:"defaultHours"`
	Steps        []Step `yaml:"steps" json:"steps"`
}

// Cooldown is the minimum interval between two escalations of the same
// task under this ladder.
func (l Ladder) Cooldown() time.Duration {
	return time.Duration(l.DefaultHours) * time.Hour
}

// ShouldEscalate reports whether a task overdue for the given duration
// has reached the ladder's first trigger.
func (l Ladder) ShouldEscalate(overdue time.Duration) bool {
	return overdue >= l.Cooldown()
}

// StepFor selects the highest step whose threshold the overdue duration
// has passed. Severity increases monotonically with elapsed time and
// never decreases. The second return is false when the task has not
// reached the first rung yet.
func (l Ladder) StepFor(overdue time.Duration) (Step, bool) {
	var selected Step
	found := false
	for _, s := range l.Steps {
		if overdue >= time.Duration(s.HourThreshold)*time.Hour {
			selected = s
			found = true
		}
	}
	return selected, found
}

func (l Ladder) validate() error {
	if l.DefaultHours <= 0 {
		return fmt.Errorf("ladder %q: defaultHours must be positive", l.Category)
	}
	if len(l.Steps) == 0 {
		return fmt.Errorf("ladder %q: at least one step is required", l.Category)
	}
	prev := -1
	for i, s := range l.Steps {
		if s.Role == "" {
			return fmt.Errorf("ladder %q: step %d has no role", l.Category, i)
		}
		if s.HourThreshold <= prev {
			return fmt.Errorf("ladder %q: step thresholds must increase monotonically", l.Category)
		}
		prev = s.HourThreshold
	}
	return nil
}

// Ladders holds every configured ladder plus the fallback used for
// unknown categories. Lookup is case-insensitive.
type Ladders struct {
	byCategory map[string]Ladder
	fallback   Ladder
}

// DefaultLadders returns the compiled-in ladder set used when no ladder
// file is configured.
func DefaultLadders() *Ladders {
	ls, err := NewLadders([]Ladder{
		{
			Category:     "default",
			DefaultHours: 4,
			Steps: []Step{
				{Role: "project_manager", HourThreshold: 4},
				{Role: "project_owner", HourThreshold: 24},
			},
		},
		{
			Category:     "demolition",
			DefaultHours: 2,
			Steps: []Step{
				{Role: "safety_supervisor", HourThreshold: 1},
				{Role: "demolition_manager", HourThreshold: 2},
				{Role: "site_manager", HourThreshold: 4},
				{Role: "project_owner", HourThreshold: 12},
			},
		},
		{
			Category:     "construction",
			DefaultHours: 4,
			Steps: []Step{
				{Role: "site_manager", HourThreshold: 4},
				{Role: "project_manager", HourThreshold: 8},
				{Role: "project_owner", HourThreshold: 24},
			},
		},
		{
			Category:     "inspection",
			DefaultHours: 8,
			Steps: []Step{
				{Role: "inspector_lead", HourThreshold: 8},
				{Role: "project_owner", HourThreshold: 48},
			},
		},
	})
	if err != nil {
		// The compiled-in set is validated by tests; reaching this is a
		// programming error.
		panic(err)
	}
	return ls
}

// NewLadders validates and indexes a ladder set. A ladder with category
// "default" (or the first ladder, when none is named default) becomes
// the fallback for unknown categories.
func NewLadders(ladders []Ladder) (*Ladders, error) {
	if len(ladders) == 0 {
		return nil, fmt.Errorf("at least one ladder is required")
	}

	ls := &Ladders{byCategory: make(map[string]Ladder, len(ladders))}
	for _, l := range ladders {
		if err := l.validate(); err != nil {
			return nil, err
		}
		steps := make([]Step, len(l.Steps))
		copy(steps, l.Steps)
		sort.Slice(steps, func(i, j int) bool { return steps[i].HourThreshold < steps[j].HourThreshold })
		l.Steps = steps

		key := strings.ToLower(l.Category)
		if _, dup := ls.byCategory[key]; dup {
			return nil, fmt.Errorf("duplicate ladder category %q", l.Category)
		}
		ls.byCategory[key] = l
	}

	if def, ok := ls.byCategory["default"]; ok {
		ls.fallback = def
	} else {
		ls.fallback = ladders[0]
	}
	return ls, nil
}

// LoadLadders reads a ladder set from a YAML file.
func LoadLadders(path string) (*Ladders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ladder file %s: %w", path, err)
	}
	var doc struct {
		Ladders []Ladder `yaml:"ladders"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling ladder file %s: %w", path, err)
	}
	return NewLadders(doc.Ladders)
}

// For returns the ladder for a project category, falling back to the
// default ladder for unknown categories. Matching is case-insensitive.
func (ls *Ladders) For(category string) Ladder {
	if l, ok := ls.byCategory[strings.ToLower(category)]; ok {
		return l
	}
	return ls.fallback
}

// All returns every configured ladder, fallback included, in category
// order. Used by the configuration read endpoint.
func (ls *Ladders) All() []Ladder {
	out := make([]Ladder, 0, len(ls.byCategory))
	for _, l := range ls.byCategory {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
