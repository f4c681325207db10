package exercise

import "time"

// PhaseKind identifies what the practitioner does during a phase
type PhaseKind int

const (
	KindInhale    PhaseKind = iota // breathe in
	KindExhale                     // breathe out
	KindHoldFull                   // hold with lungs full
	KindHoldEmpty                  // hold with lungs empty
	KindRest                       // recovery breathing between holds or work phases
	KindWork                       // active phase of an interval pair
	KindGuided                     // spoken instruction, duration adapts to speech length
	KindOpenEnded                  // hold with no scheduled end, terminated externally
)

// kindNames maps each kind to its display/config name
var kindNames = map[PhaseKind]string{
	KindInhale:    "inhale",
	KindExhale:    "exhale",
	KindHoldFull:  "hold_full",
	KindHoldEmpty: "hold_empty",
	KindRest:      "rest",
	KindWork:      "work",
	KindGuided:    "guided",
	KindOpenEnded: "open_ended",
}

func (k PhaseKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind returns the PhaseKind for a config name
func ParseKind(name string) (PhaseKind, bool) {
	for kind, n := range kindNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// Phase is one step of an expanded sequence
type Phase struct {
	Label    string
	Kind     PhaseKind
	Duration time.Duration // scheduled length; zero for open-ended phases. For guided phases this is the pause after the spoken text.
	Text     string        // spoken instruction for guided phases
}

// IsTimed reports whether the phase runs on a fixed countdown
func (p Phase) IsTimed() bool {
	return p.Kind != KindOpenEnded
}

// Sequence is an expanded, playable phase program.
// The full program is Phases played Cycles times over.
type Sequence struct {
	Phases []Phase
	Cycles int
}

// TotalPhases returns the number of phase runs in the full program
func (s Sequence) TotalPhases() int {
	return len(s.Phases) * s.Cycles
}

// TotalDuration returns the scheduled duration of the full program.
// Open-ended phases contribute nothing; guided phases contribute only
// their fixed pause.
func (s Sequence) TotalDuration() time.Duration {
	var perCycle time.Duration
	for _, p := range s.Phases {
		perCycle += p.Duration
	}
	return perCycle * time.Duration(s.Cycles)
}

// HasOpenEnded reports whether any phase in the sequence is open-ended
func (s Sequence) HasOpenEnded() bool {
	for _, p := range s.Phases {
		if p.Kind == KindOpenEnded {
			return true
		}
	}
	return false
}

// Family selects the expansion strategy for a definition
type Family int

const (
	FamilyBreathing     Family = iota // literal phase pattern repeated per cycle
	FamilyInterval                    // generated work/rest pair repeated N times
	FamilyApneaTable                  // per-cycle rest and hold rows (CO2/O2 style)
	FamilyToleranceHold               // optional warm-up then one open-ended hold
	FamilyGuided                      // spoken segments with adaptive timing
)

var familyNames = map[Family]string{
	FamilyBreathing:     "breathing",
	FamilyInterval:      "interval",
	FamilyApneaTable:    "table",
	FamilyToleranceHold: "tolerance",
	FamilyGuided:        "guided",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily returns the Family for a config name
func ParseFamily(name string) (Family, bool) {
	for family, n := range familyNames {
		if n == name {
			return family, true
		}
	}
	return 0, false
}

// BreathingSpec is a literal per-cycle phase pattern repeated for Cycles
type BreathingSpec struct {
	Pattern []Phase
	Cycles  int
}

// IntervalSpec generates a work/rest phase pair repeated Repeats times
type IntervalSpec struct {
	WorkLabel    string
	WorkDuration time.Duration
	RestLabel    string
	RestDuration time.Duration
	Repeats      int
}

// TableRow is one cycle of an apnea table: recovery breathing then a hold
type TableRow struct {
	Rest time.Duration
	Hold time.Duration
}

// TableSpec describes an apnea table. Either Rows is given literally, or
// the ratio form computes each row as HoldRatios[i] * Base with recovery
// from Rests[i]. The two forms are mutually exclusive.
type TableSpec struct {
	Rows []TableRow

	// Ratio form. Base is the personal best hold, resolved by the host
	// before expansion.
	Base       time.Duration
	HoldRatios []float64
	Rests      []time.Duration
}

// usesRatios reports whether the spec is in ratio form
func (t *TableSpec) usesRatios() bool {
	return len(t.Rows) == 0
}

// ToleranceSpec describes an open-ended hold with optional fixed warm-up
// phases before it
type ToleranceSpec struct {
	Warmup    []Phase
	HoldLabel string
}

// GuidedSegment is one spoken instruction and the silence scheduled after it
type GuidedSegment struct {
	Text       string
	PauseAfter time.Duration
}

// GuidedSpec describes a guided exercise as a list of spoken segments
type GuidedSpec struct {
	Segments []GuidedSegment
}

// Definition describes an exercise before expansion. The spec field
// matching Family must be set; Expand selects the strategy by the tag.
type Definition struct {
	Name        string
	Description string
	Family      Family

	Breathing *BreathingSpec
	Interval  *IntervalSpec
	Table     *TableSpec
	Tolerance *ToleranceSpec
	Guided    *GuidedSpec
}

// WithPersonalBest returns a copy of the definition with the table base
// hold resolved. Definitions without a ratio-form table are returned
// unchanged.
func (d Definition) WithPersonalBest(best time.Duration) Definition {
	if d.Table == nil || !d.Table.usesRatios() {
		return d
	}
	t := *d.Table
	t.Base = best
	d.Table = &t
	return d
}
