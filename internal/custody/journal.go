package custody

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spiceEngine/internal/model"
)

// JournalEntry is one transfer request as written to the journal.
type JournalEntry struct {
	Time     time.Time      `json:"time"`
	Batch    uint64         `json:"batch"`
	Transfer model.Transfer `json:"transfer"`
}

// Journal records transfer batches as JSON lines for an external executor.
type Journal struct {
	path  string
	mu    sync.Mutex
	batch uint64
	now   func() time.Time
}

func NewJournal(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

// Settle appends the batch to the journal file.
func (j *Journal) Settle(ctx context.Context, transfers []model.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	j.batch++
	ts := j.now().UTC()
	writer := bufio.NewWriter(file)
	for _, t := range transfers {
		line, err := json.Marshal(JournalEntry{Time: ts, Batch: j.batch, Transfer: t})
		if err != nil {
			return fmt.Errorf("marshal transfer: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write transfer: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return file.Sync()
}
