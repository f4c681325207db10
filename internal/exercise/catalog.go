package exercise

import "time"

// Built-in breathing rhythms are expressed in milliseconds where the
// pattern calls for half counts (coherent breathing is 5.5s per side).
const coherentSide = 5500 * time.Millisecond

// AllExercises defines the built-in exercises. Table entries use the ratio
// form; the host resolves the personal best hold before starting them.
var AllExercises = []Definition{
	{
		Name:        "Box Breathing",
		Description: "Equal four-count square: in, hold, out, hold",
		Family:      FamilyBreathing,
		Breathing: &BreathingSpec{
			Pattern: []Phase{
				{Label: "Inhale", Kind: KindInhale, Duration: 4 * time.Second},
				{Label: "Hold", Kind: KindHoldFull, Duration: 4 * time.Second},
				{Label: "Exhale", Kind: KindExhale, Duration: 4 * time.Second},
				{Label: "Hold", Kind: KindHoldEmpty, Duration: 4 * time.Second},
			},
			Cycles: 10,
		},
	},
	{
		Name:        "Relaxing 4-7-8",
		Description: "Long exhale pattern for winding down",
		Family:      FamilyBreathing,
		Breathing: &BreathingSpec{
			Pattern: []Phase{
				{Label: "Inhale", Kind: KindInhale, Duration: 4 * time.Second},
				{Label: "Hold", Kind: KindHoldFull, Duration: 7 * time.Second},
				{Label: "Exhale", Kind: KindExhale, Duration: 8 * time.Second},
			},
			Cycles: 8,
		},
	},
	{
		Name:        "Coherent Breathing",
		Description: "5.5 seconds each way, about five minutes total",
		Family:      FamilyBreathing,
		Breathing: &BreathingSpec{
			Pattern: []Phase{
				{Label: "Inhale", Kind: KindInhale, Duration: coherentSide},
				{Label: "Exhale", Kind: KindExhale, Duration: coherentSide},
			},
			Cycles: 27,
		},
	},
	{
		Name:        "Extended Exhale",
		Description: "Exhale half again as long as the inhale",
		Family:      FamilyBreathing,
		Breathing: &BreathingSpec{
			Pattern: []Phase{
				{Label: "Inhale", Kind: KindInhale, Duration: 4 * time.Second},
				{Label: "Exhale", Kind: KindExhale, Duration: 6 * time.Second},
			},
			Cycles: 15,
		},
	},
	{
		Name:        "CO2 Table",
		Description: "Fixed holds at half your best, shrinking recovery",
		Family:      FamilyApneaTable,
		Table: &TableSpec{
			HoldRatios: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
			Rests: []time.Duration{
				120 * time.Second,
				105 * time.Second,
				90 * time.Second,
				75 * time.Second,
				60 * time.Second,
				45 * time.Second,
				30 * time.Second,
				15 * time.Second,
			},
		},
	},
	{
		Name:        "O2 Table",
		Description: "Growing holds with fixed two-minute recovery",
		Family:      FamilyApneaTable,
		Table: &TableSpec{
			HoldRatios: []float64{0.30, 0.40, 0.50, 0.55, 0.60, 0.65, 0.70, 0.75},
			Rests: []time.Duration{
				120 * time.Second,
				120 * time.Second,
				120 * time.Second,
				120 * time.Second,
				120 * time.Second,
				120 * time.Second,
				120 * time.Second,
				120 * time.Second,
			},
		},
	},
	{
		Name:        "Max Hold Attempt",
		Description: "Breathe up, then hold as long as you can",
		Family:      FamilyToleranceHold,
		Tolerance: &ToleranceSpec{
			Warmup: []Phase{
				{Label: "Breathe Up", Kind: KindRest, Duration: 2 * time.Minute},
				{Label: "Final Inhale", Kind: KindInhale, Duration: 5 * time.Second},
			},
			HoldLabel: "Max Hold",
		},
	},
	{
		Name:        "Breath of Fire Rounds",
		Description: "Rapid breathing rounds with full recovery",
		Family:      FamilyInterval,
		Interval: &IntervalSpec{
			WorkLabel:    "Rapid Breathing",
			WorkDuration: 30 * time.Second,
			RestLabel:    "Recover",
			RestDuration: 60 * time.Second,
			Repeats:      5,
		},
	},
	{
		Name:        "Guided Wind-Down",
		Description: "Short spoken relaxation with quiet pauses",
		Family:      FamilyGuided,
		Guided: &GuidedSpec{
			Segments: []GuidedSegment{
				{Text: "Settle into a comfortable position and let your eyes close.", PauseAfter: 8 * time.Second},
				{Text: "Breathe in slowly through your nose, and let the breath leave on its own.", PauseAfter: 12 * time.Second},
				{Text: "Notice your shoulders. Let them drop away from your ears.", PauseAfter: 10 * time.Second},
				{Text: "Let each exhale grow a little longer than the one before.", PauseAfter: 15 * time.Second},
				{Text: "Rest here, breathing softly, nothing to do.", PauseAfter: 20 * time.Second},
			},
		},
	},
}

// GetDefinitionByName returns the built-in definition with the given name
func GetDefinitionByName(name string) (Definition, bool) {
	for _, d := range AllExercises {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
