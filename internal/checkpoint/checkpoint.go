// Package checkpoint persists the resume cursor between runs.
package checkpoint

import (
	"encoding/json"
	"os"
)

// State is the sole cross-run persistence: the index into the input record
// list where the next run should resume.
type State struct {
	LastProcessedIndex int `json:"lastProcessedIndex"`
}

// Load reads the checkpoint at path. A missing, unreadable, or corrupt file
// yields the zero state so a fresh run starts from the top; it is never an
// error that stops a run.
func Load(path string) State {
	b, err := os.ReadFile(path)
	if err != nil {
		return State{}
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}
	}
	if s.LastProcessedIndex < 0 {
		return State{}
	}
	return s
}

// Save overwrites the checkpoint at path.
func Save(path string, s State) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

// ResetIfComplete rewinds the checkpoint when the cursor has consumed the
// whole input: a cursor at or past total is persisted back as zero so the
// next invocation starts a fresh cycle. Returns true when a reset was
// written; a cursor still inside the input leaves the file untouched.
func ResetIfComplete(path string, s State, total int) (bool, error) {
	if s.LastProcessedIndex < total {
		return false, nil
	}
	if err := Save(path, State{}); err != nil {
		return false, err
	}
	return true, nil
}
