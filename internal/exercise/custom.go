package exercise

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Custom exercise files are YAML, one definition per file. Durations are
// given in seconds and may be fractional.

type yamlPhase struct {
	Label   string  `yaml:"label"`
	Kind    string  `yaml:"kind"`
	Seconds float64 `yaml:"seconds"`
}

type yamlBreathing struct {
	Cycles  int         `yaml:"cycles"`
	Pattern []yamlPhase `yaml:"pattern"`
}

type yamlInterval struct {
	WorkLabel   string  `yaml:"work_label"`
	WorkSeconds float64 `yaml:"work_seconds"`
	RestLabel   string  `yaml:"rest_label"`
	RestSeconds float64 `yaml:"rest_seconds"`
	Repeats     int     `yaml:"repeats"`
}

type yamlTableRow struct {
	RestSeconds float64 `yaml:"rest_seconds"`
	HoldSeconds float64 `yaml:"hold_seconds"`
}

type yamlTable struct {
	Rows        []yamlTableRow `yaml:"rows"`
	HoldRatios  []float64      `yaml:"hold_ratios"`
	RestSeconds []float64      `yaml:"rest_seconds"`
}

type yamlTolerance struct {
	HoldLabel string      `yaml:"hold_label"`
	Warmup    []yamlPhase `yaml:"warmup"`
}

type yamlSegment struct {
	Text         string  `yaml:"text"`
	PauseSeconds float64 `yaml:"pause_seconds"`
}

type yamlGuided struct {
	Segments []yamlSegment `yaml:"segments"`
}

type yamlDefinition struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Family      string         `yaml:"family"`
	Breathing   *yamlBreathing `yaml:"breathing"`
	Interval    *yamlInterval  `yaml:"interval"`
	Table       *yamlTable     `yaml:"table"`
	Tolerance   *yamlTolerance `yaml:"tolerance"`
	Guided      *yamlGuided    `yaml:"guided"`
}

// LoadDir reads every custom definition file in dir, sorted by file name.
// A missing directory is not an error. Files that fail to parse are
// skipped; their errors come back joined so the caller can log them while
// still using the definitions that loaded.
func LoadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read custom exercise dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var defs []Definition
	var problems []error
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		def, err := ParseDefinition(data)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		defs = append(defs, def)
	}
	return defs, errors.Join(problems...)
}

// ParseDefinition parses a single YAML definition document. Structural
// problems (unknown family or kind names) are reported here; semantic
// validation happens when the definition is expanded.
func ParseDefinition(data []byte) (Definition, error) {
	var raw yamlDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("parse definition yaml: %w", err)
	}

	if raw.Name == "" {
		return Definition{}, fmt.Errorf("definition has no name")
	}

	family, ok := ParseFamily(raw.Family)
	if !ok {
		return Definition{}, fmt.Errorf("definition %q: unknown family %q", raw.Name, raw.Family)
	}

	def := Definition{
		Name:        raw.Name,
		Description: raw.Description,
		Family:      family,
	}

	switch family {
	case FamilyBreathing:
		if raw.Breathing == nil {
			return Definition{}, fmt.Errorf("definition %q: breathing section missing", raw.Name)
		}
		pattern, err := convertPhases(raw.Name, raw.Breathing.Pattern)
		if err != nil {
			return Definition{}, err
		}
		def.Breathing = &BreathingSpec{Pattern: pattern, Cycles: raw.Breathing.Cycles}

	case FamilyInterval:
		if raw.Interval == nil {
			return Definition{}, fmt.Errorf("definition %q: interval section missing", raw.Name)
		}
		def.Interval = &IntervalSpec{
			WorkLabel:    raw.Interval.WorkLabel,
			WorkDuration: secondsToDuration(raw.Interval.WorkSeconds),
			RestLabel:    raw.Interval.RestLabel,
			RestDuration: secondsToDuration(raw.Interval.RestSeconds),
			Repeats:      raw.Interval.Repeats,
		}

	case FamilyApneaTable:
		if raw.Table == nil {
			return Definition{}, fmt.Errorf("definition %q: table section missing", raw.Name)
		}
		table := &TableSpec{HoldRatios: raw.Table.HoldRatios}
		for _, row := range raw.Table.Rows {
			table.Rows = append(table.Rows, TableRow{
				Rest: secondsToDuration(row.RestSeconds),
				Hold: secondsToDuration(row.HoldSeconds),
			})
		}
		for _, rest := range raw.Table.RestSeconds {
			table.Rests = append(table.Rests, secondsToDuration(rest))
		}
		def.Table = table

	case FamilyToleranceHold:
		if raw.Tolerance == nil {
			return Definition{}, fmt.Errorf("definition %q: tolerance section missing", raw.Name)
		}
		warmup, err := convertPhases(raw.Name, raw.Tolerance.Warmup)
		if err != nil {
			return Definition{}, err
		}
		def.Tolerance = &ToleranceSpec{HoldLabel: raw.Tolerance.HoldLabel, Warmup: warmup}

	case FamilyGuided:
		if raw.Guided == nil {
			return Definition{}, fmt.Errorf("definition %q: guided section missing", raw.Name)
		}
		guided := &GuidedSpec{}
		for _, seg := range raw.Guided.Segments {
			guided.Segments = append(guided.Segments, GuidedSegment{
				Text:       seg.Text,
				PauseAfter: secondsToDuration(seg.PauseSeconds),
			})
		}
		def.Guided = guided
	}

	return def, nil
}

func convertPhases(defName string, raw []yamlPhase) ([]Phase, error) {
	phases := make([]Phase, 0, len(raw))
	for i, p := range raw {
		kind, ok := ParseKind(p.Kind)
		if !ok {
			return nil, fmt.Errorf("definition %q: phase %d: unknown kind %q", defName, i, p.Kind)
		}
		phases = append(phases, Phase{
			Label:    p.Label,
			Kind:     kind,
			Duration: secondsToDuration(p.Seconds),
		})
	}
	return phases, nil
}

// secondsToDuration converts fractional seconds to a duration at
// millisecond resolution
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds*1000+0.5) * time.Millisecond
}
