package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// State is the crawler's persisted progress: which prefix it will resume
// from, and when the last full cycle finished. Written after every
// prefix so a crash mid-cycle loses at most one prefix's work, not the
// whole cycle.
//
// CycleID is a fresh UUID minted at the start of every cycle. It has no
// bearing on reconciliation itself; it exists so an operator can grep the
// logs for one cycle's "crawler: reconcile prefix failed"/"cycle
// complete" lines and match them against the state file that was current
// while they were emitted, across restarts where CycleNumber alone is
// ambiguous (a resumed process keeps the prior CycleNumber).
type State struct {
	CycleID           string    `json:"cycle_id"`
	CycleNumber       int       `json:"cycle_number"`
	NextPrefixIndex   int       `json:"next_prefix_index"`
	LastCycleFinished time.Time `json:"last_cycle_finished"`
	LastCycleStarted  time.Time `json:"last_cycle_started"`
}

func loadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{CycleNumber: 1, CycleID: uuid.New().String()}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("crawler: load state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("crawler: parse state %s: %w", path, err)
	}
	if s.CycleID == "" {
		s.CycleID = uuid.New().String()
	}
	return s, nil
}

// save writes state atomically: write to a temp file in the same
// directory, then rename over the target, so a crash never leaves a
// half-written state file.
func saveState(path string, s State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("crawler: save state: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("crawler: marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("crawler: save state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("crawler: save state: %w", err)
	}
	return nil
}
