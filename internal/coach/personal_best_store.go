package coach

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"
)

type personalBestData struct {
	BestHoldSeconds float64 `json:"best_hold_seconds"`
}

// PersonalBestStore persists the best achieved breath hold across runs.
// The configured personal_best setting acts as a floor; holds achieved
// in sessions raise the stored value.
type PersonalBestStore struct {
	filePath string
	data     personalBestData
	logger   *log.Logger
}

func NewPersonalBestStore(filePath string, logger *log.Logger) *PersonalBestStore {
	if logger == nil {
		panic("NewPersonalBestStore: logger is nil")
	}
	p := &PersonalBestStore{
		filePath: filePath,
		logger:   logger,
	}
	p.load()
	return p
}

func (p *PersonalBestStore) Best() time.Duration {
	return time.Duration(p.data.BestHoldSeconds * float64(time.Second))
}

func (p *PersonalBestStore) SetBest(best time.Duration) {
	p.logger.Printf("PersonalBestStore: setBest -> %s", best)
	p.data.BestHoldSeconds = best.Seconds()
	p.save()
}

func (p *PersonalBestStore) load() {
	p.data = personalBestData{}
	raw, err := os.ReadFile(p.filePath)
	if err != nil {
		p.logger.Printf("PersonalBestStore: load %s (no existing file)", p.filePath)
		return
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		p.logger.Printf("PersonalBestStore: load %s failed to parse: %v", p.filePath, err)
		return
	}
	p.logger.Printf("PersonalBestStore: load %s -> %.1fs", p.filePath, p.data.BestHoldSeconds)
}

func (p *PersonalBestStore) save() {
	if err := os.MkdirAll(filepath.Dir(p.filePath), 0755); err != nil {
		p.logger.Printf("PersonalBestStore: save mkdir failed: %v", err)
		return
	}
	raw, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		p.logger.Printf("PersonalBestStore: save marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(p.filePath, raw, 0644); err != nil {
		p.logger.Printf("PersonalBestStore: save %s failed: %v", p.filePath, err)
		return
	}
	p.logger.Printf("PersonalBestStore: save %s -> %.1fs", p.filePath, p.data.BestHoldSeconds)
}
