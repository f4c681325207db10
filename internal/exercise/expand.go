package exercise

import (
	"fmt"
	"time"
)

// Expand turns the definition into a playable sequence. Expansion is pure
// and deterministic: the same definition always yields the same sequence,
// and no playback state is touched.
func (d Definition) Expand() (Sequence, error) {
	if err := d.Validate(); err != nil {
		return Sequence{}, err
	}

	var seq Sequence
	switch d.Family {
	case FamilyBreathing:
		seq = expandBreathing(d.Breathing)
	case FamilyInterval:
		seq = expandInterval(d.Interval)
	case FamilyApneaTable:
		seq = expandTable(d.Table)
	case FamilyToleranceHold:
		seq = expandTolerance(d.Tolerance)
	case FamilyGuided:
		seq = expandGuided(d.Guided)
	}

	if len(seq.Phases) == 0 {
		return Sequence{}, &DefinitionError{
			Definition: d.Name,
			Field:      "phases",
			Message:    ErrEmptySequence.Error(),
			Err:        ErrEmptySequence,
		}
	}
	return seq, nil
}

// Validate checks the definition fields without expanding.
// Emptiness is not checked here; Expand reports ErrEmptySequence when the
// expansion yields no phases.
func (d Definition) Validate() error {
	switch d.Family {
	case FamilyBreathing:
		if d.Breathing == nil {
			return defErr(d, "breathing", "spec missing for breathing family")
		}
		if d.Breathing.Cycles < 1 {
			return defErr(d, "cycles", "must be at least 1")
		}
		return validatePattern(d, "pattern", d.Breathing.Pattern)

	case FamilyInterval:
		if d.Interval == nil {
			return defErr(d, "interval", "spec missing for interval family")
		}
		if d.Interval.Repeats < 1 {
			return defErr(d, "repeats", "must be at least 1")
		}
		if d.Interval.WorkDuration <= 0 {
			return defErr(d, "work_duration", "must be positive")
		}
		if d.Interval.RestDuration <= 0 {
			return defErr(d, "rest_duration", "must be positive")
		}
		return nil

	case FamilyApneaTable:
		if d.Table == nil {
			return defErr(d, "table", "spec missing for table family")
		}
		return d.validateTable()

	case FamilyToleranceHold:
		if d.Tolerance == nil {
			return defErr(d, "tolerance", "spec missing for tolerance family")
		}
		return validatePattern(d, "warmup", d.Tolerance.Warmup)

	case FamilyGuided:
		if d.Guided == nil {
			return defErr(d, "guided", "spec missing for guided family")
		}
		for i, seg := range d.Guided.Segments {
			if seg.Text == "" {
				return defErr(d, fmt.Sprintf("segments[%d].text", i), "must not be empty")
			}
			if seg.PauseAfter < 0 {
				return defErr(d, fmt.Sprintf("segments[%d].pause_after", i), "must not be negative")
			}
		}
		return nil
	}

	return defErr(d, "family", "unknown family")
}

// validatePattern checks a literal list of timed phases
func validatePattern(d Definition, field string, phases []Phase) error {
	for i, p := range phases {
		if p.Kind == KindOpenEnded {
			return defErr(d, fmt.Sprintf("%s[%d]", field, i), "open-ended phases belong to tolerance definitions")
		}
		if p.Kind == KindGuided {
			return defErr(d, fmt.Sprintf("%s[%d]", field, i), "guided phases belong to guided definitions")
		}
		if p.Duration <= 0 {
			return defErr(d, fmt.Sprintf("%s[%d].duration", field, i), "must be positive")
		}
	}
	return nil
}

func (d Definition) validateTable() error {
	t := d.Table
	if len(t.Rows) > 0 && (len(t.HoldRatios) > 0 || len(t.Rests) > 0) {
		return defErr(d, "table", "rows and ratio form are mutually exclusive")
	}

	if t.usesRatios() {
		if t.Base <= 0 {
			return defErr(d, "base", "personal best hold not resolved")
		}
		if len(t.HoldRatios) != len(t.Rests) {
			return defErr(d, "hold_ratios", "must have one rest per hold ratio")
		}
		for i, r := range t.HoldRatios {
			if r <= 0 {
				return defErr(d, fmt.Sprintf("hold_ratios[%d]", i), "must be positive")
			}
			if t.Rests[i] <= 0 {
				return defErr(d, fmt.Sprintf("rests[%d]", i), "must be positive")
			}
		}
		return nil
	}

	for i, row := range t.Rows {
		if row.Rest <= 0 {
			return defErr(d, fmt.Sprintf("rows[%d].rest", i), "must be positive")
		}
		if row.Hold <= 0 {
			return defErr(d, fmt.Sprintf("rows[%d].hold", i), "must be positive")
		}
	}
	return nil
}

func expandBreathing(spec *BreathingSpec) Sequence {
	phases := make([]Phase, len(spec.Pattern))
	copy(phases, spec.Pattern)
	return Sequence{Phases: phases, Cycles: spec.Cycles}
}

func expandInterval(spec *IntervalSpec) Sequence {
	workLabel := spec.WorkLabel
	if workLabel == "" {
		workLabel = "Work"
	}
	restLabel := spec.RestLabel
	if restLabel == "" {
		restLabel = "Rest"
	}
	return Sequence{
		Phases: []Phase{
			{Label: workLabel, Kind: KindWork, Duration: spec.WorkDuration},
			{Label: restLabel, Kind: KindRest, Duration: spec.RestDuration},
		},
		Cycles: spec.Repeats,
	}
}

// expandTable flattens the table because every cycle has its own durations:
// a rest phase then a hold phase per row.
func expandTable(spec *TableSpec) Sequence {
	rows := spec.Rows
	if spec.usesRatios() {
		rows = make([]TableRow, len(spec.HoldRatios))
		for i, ratio := range spec.HoldRatios {
			rows[i] = TableRow{
				Rest: spec.Rests[i],
				Hold: scaleDuration(spec.Base, ratio),
			}
		}
	}

	phases := make([]Phase, 0, 2*len(rows))
	for _, row := range rows {
		phases = append(phases,
			Phase{Label: "Rest", Kind: KindRest, Duration: row.Rest},
			Phase{Label: "Hold", Kind: KindHoldFull, Duration: row.Hold},
		)
	}
	return Sequence{Phases: phases, Cycles: 1}
}

func expandTolerance(spec *ToleranceSpec) Sequence {
	holdLabel := spec.HoldLabel
	if holdLabel == "" {
		holdLabel = "Hold"
	}
	phases := make([]Phase, 0, len(spec.Warmup)+1)
	phases = append(phases, spec.Warmup...)
	phases = append(phases, Phase{Label: holdLabel, Kind: KindOpenEnded})
	return Sequence{Phases: phases, Cycles: 1}
}

func expandGuided(spec *GuidedSpec) Sequence {
	phases := make([]Phase, 0, len(spec.Segments))
	for _, seg := range spec.Segments {
		phases = append(phases, Phase{
			Label:    "Listen",
			Kind:     KindGuided,
			Duration: seg.PauseAfter,
			Text:     seg.Text,
		})
	}
	return Sequence{Phases: phases, Cycles: 1}
}

// scaleDuration multiplies a duration by a ratio, rounding to the nearest
// millisecond so expanded holds land on display-friendly boundaries.
func scaleDuration(d time.Duration, ratio float64) time.Duration {
	ms := float64(d.Milliseconds()) * ratio
	return time.Duration(ms+0.5) * time.Millisecond
}
