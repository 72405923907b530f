package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

// FileState persists the counters as a single JSON document using
// write-temp-then-rename, so a crash mid-write leaves the previous state
// intact. The file is the only durable artifact of the whole process.
type FileState struct {
	path string
}

func NewFileState(path string) (*FileState, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileState{path: path}, nil
}

func (f *FileState) Load() (domain.ProductionCounters, bool, error) {
	var c domain.ProductionCounters
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, false, nil
		}
		return c, false, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.ProductionCounters{}, false, fmt.Errorf("parse state file: %w", err)
	}
	return c, true, nil
}

func (f *FileState) Save(c domain.ProductionCounters) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

var _ StatePersister = (*FileState)(nil)
