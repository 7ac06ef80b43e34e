package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
)

// Snapshot is the price book as it stood when a session ended.
// It is informational: a new session always requotes from scratch.
type Snapshot struct {
	TakenAt time.Time                    `json:"taken_at"`
	Prices  map[string]domain.PriceState `json:"prices"`
}

// SnapshotManager saves and loads price book snapshots in one directory.
type SnapshotManager struct {
	dir string
}

func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

const snapshotPattern = "snapshot_%d.json"

// Save writes snap as snapshot_<unix-nanos>.json.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	path := filepath.Join(sm.dir, fmt.Sprintf(snapshotPattern, snap.TakenAt.UnixNano()))

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved", slog.String("path", path), slog.Int("instruments", len(snap.Prices)))
	return nil
}

type snapFile struct {
	path  string
	nanos int64
}

func (sm *SnapshotManager) list() ([]snapFile, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var files []snapFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var nanos int64
		if _, err := fmt.Sscanf(entry.Name(), snapshotPattern, &nanos); err != nil {
			continue
		}
		files = append(files, snapFile{path: filepath.Join(sm.dir, entry.Name()), nanos: nanos})
	}

	// newest first
	sort.Slice(files, func(i, j int) bool { return files[i].nanos > files[j].nanos })
	return files, nil
}

// LoadLatest returns the newest snapshot, or nil if there is none.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	files, err := sm.list()
	if err != nil || len(files) == 0 {
		return nil, err
	}

	data, err := os.ReadFile(files[0].path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", files[0].path, err)
	}
	return &snap, nil
}

// CreateSnapshot copies prices so later book updates do not leak into it.
func CreateSnapshot(prices map[string]domain.PriceState) *Snapshot {
	cp := make(map[string]domain.PriceState, len(prices))
	for k, v := range prices {
		cp[k] = v
	}
	return &Snapshot{TakenAt: time.Now(), Prices: cp}
}

// Cleanup removes old snapshots, keeping only the latest keepCount.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	files, err := sm.list()
	if err != nil {
		return err
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path), slog.Any("error", err))
		}
	}
	return nil
}
