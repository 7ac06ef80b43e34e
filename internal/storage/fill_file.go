package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
)

// FillFile appends one JSON line per fill. The file is opened per write so
// that external tools may rotate it while the maker is running.
type FillFile struct {
	path string
	mu   sync.Mutex
}

func NewFillFile(path string) *FillFile {
	return &FillFile{path: path}
}

func (f *FillFile) Path() string { return f.path }

func (f *FillFile) RecordFill(ctx context.Context, rec domain.FillRecord) error {
	line, err := json.Marshal(NewFillLine(rec))
	if err != nil {
		return fmt.Errorf("failed to marshal fill: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open fill file: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("failed to write fill: %w", err)
	}
	return file.Close()
}
