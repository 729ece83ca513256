package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON writes the run record to path as indented JSON, creating parent
// directories as needed. An existing file is overwritten.
func WriteJSON(path string, run *Run) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	return nil
}

// ReadJSON loads a run record written by WriteJSON.
func ReadJSON(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	run := &Run{}
	if err := json.NewDecoder(f).Decode(run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}

	return run, nil
}
