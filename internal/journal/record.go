// Package journal keeps the history of finished sessions in a JSON
// file under the user's data directory.
package journal

import (
	"time"

	"github.com/google/uuid"

	"breathtrainer/internal/engine"
)

// Hold summarizes one open-ended hold from a session.
type Hold struct {
	Phase           int     `json:"phase"`
	AchievedSeconds float64 `json:"achieved_seconds"`
	Contractions    int     `json:"contractions"`
}

// Record is one journal entry. AvgHeartRate is zero when no monitor
// was connected during the session.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Exercise     string    `json:"exercise"`
	Family       string    `json:"family"`
	Started      time.Time `json:"started"`
	Ended        time.Time `json:"ended"`
	Completion   string    `json:"completion"`
	PhasesDone   int       `json:"phases_done"`
	Cycles       int       `json:"cycles"`
	Holds        []Hold    `json:"holds,omitempty"`
	Contractions int       `json:"contractions"`
	AvgHeartRate int       `json:"avg_heart_rate,omitempty"`
}

// FromResult builds a journal record from a finished run.
func FromResult(res engine.Result, avgHeartRate int) Record {
	rec := Record{
		ID:           uuid.New(),
		Exercise:     res.Exercise,
		Family:       res.Family.String(),
		Started:      res.StartedAt,
		Ended:        res.EndedAt,
		Completion:   res.Completion.String(),
		PhasesDone:   res.PhasesDone,
		Cycles:       res.CyclesDone,
		AvgHeartRate: avgHeartRate,
	}
	for _, h := range res.Holds {
		rec.Holds = append(rec.Holds, Hold{
			Phase:           h.PhaseIndex,
			AchievedSeconds: h.Achieved.Seconds(),
			Contractions:    len(h.Contractions),
		})
		rec.Contractions += len(h.Contractions)
	}
	return rec
}
