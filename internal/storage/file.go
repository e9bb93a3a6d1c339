package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spiceEngine/internal/model"
)

// File is a Memory store mirrored to a JSON snapshot on every commit.
type File struct {
	*Memory
	path string
}

type snapshot struct {
	Settings  *model.Settings  `json:"settings,omitempty"`
	Pools     []model.Pool     `json:"pools"`
	Providers []model.Provider `json:"providers"`
	UpdatedAt string           `json:"updated_at"`
}

// OpenFile loads the snapshot at path. A missing file yields an empty store.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	f := &File{Memory: NewMemory(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	f.Memory.apply(ChangeSet{Settings: snap.Settings, Pools: snap.Pools, Providers: snap.Providers})
	return f, nil
}

// Commit writes the next snapshot to a temporary file, settles, and then
// moves the snapshot into place.
func (f *File) Commit(ctx context.Context, changes ChangeSet, settle SettleFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := NewMemory()
	next.settings = f.settings
	for k, v := range f.pools {
		next.pools[k] = v
	}
	for k, v := range f.providers {
		next.providers[k] = v
	}
	next.apply(changes)

	tmp, err := f.writeTmp(next)
	if err != nil {
		return err
	}
	if settle != nil {
		if err := settle(ctx); err != nil {
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}

	f.Memory.apply(changes)
	return nil
}

func (f *File) writeTmp(state *Memory) (string, error) {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create state dir: %w", err)
		}
	}

	snap := snapshot{
		Settings:  state.settings,
		Pools:     state.sortedPools(),
		Providers: state.sortedProviders(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write state tmp: %w", err)
	}
	return tmp, nil
}
