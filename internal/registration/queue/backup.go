package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"promoreg/internal/registration/models"
)

// BackupWriter appends records that exhausted their retries to a local file,
// one JSON object per line. It is the last-resort durability for a process
// restart, not a delivery guarantee; an operator replays the file by hand.
type BackupWriter struct {
	mu   sync.Mutex
	path string
}

// NewBackupWriter creates a writer targeting path. The file is created on
// first append.
func NewBackupWriter(path string) *BackupWriter {
	return &BackupWriter{path: path}
}

// backupLine is the serialized form of one abandoned record.
type backupLine struct {
	Record  []string `json:"record"`
	Reason  string   `json:"reason"`
	Attempt int      `json:"attempts"`
}

// Append writes one record as a JSON line.
func (w *BackupWriter) Append(record *models.Record, reason string, attempts int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(backupLine{
		Record:  record.Columns(),
		Reason:  reason,
		Attempt: attempts,
	})
	if err != nil {
		return fmt.Errorf("marshal backup line: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write backup line: %w", err)
	}
	return nil
}
