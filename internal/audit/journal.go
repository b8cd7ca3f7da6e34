// Package audit keeps a human-readable trail of dispatch decisions alongside
// the structured store: one markdown block appended per completed request.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one dispatched request's outcome.
type Entry struct {
	Instruction   string
	State         string
	HaltReason    string
	RiskLevel     string
	RiskScore     int
	RoutedWorkers []string
	CheckpointID  string
	CreatedAt     time.Time
}

// Journal appends entries to <home>/journal.md. The file is append-only;
// entries are never edited after being written.
type Journal struct {
	Home string
}

// Path returns the journal file location.
func (j *Journal) Path() string { return filepath.Join(j.Home, "journal.md") }

// Append adds an entry to the journal, creating the home directory and the
// file if they do not exist.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if err := os.MkdirAll(j.Home, 0o755); err != nil {
		return fmt.Errorf("create home dir: %w", err)
	}
	f, err := os.OpenFile(j.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(formatEntry(entry)); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func formatEntry(e Entry) string {
	var b strings.Builder
	b.WriteString("\n---\n\n")
	b.WriteString("## ")
	b.WriteString(e.CreatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(" - ")
	b.WriteString(e.State)
	b.WriteString("\n\n")
	b.WriteString("- **Instruction:** ")
	b.WriteString(e.Instruction)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("- **Risk:** %s (%d)\n", e.RiskLevel, e.RiskScore))
	if e.HaltReason != "" {
		b.WriteString("- **Halt reason:** ")
		b.WriteString(e.HaltReason)
		b.WriteString("\n")
	}
	if len(e.RoutedWorkers) > 0 {
		b.WriteString("- **Routed:** ")
		b.WriteString(strings.Join(e.RoutedWorkers, ", "))
		b.WriteString("\n")
	}
	if e.CheckpointID != "" {
		b.WriteString("- **Checkpoint:** ")
		b.WriteString(e.CheckpointID)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Read returns up to limitBytes from the end of the journal. A limit of 0
// returns the whole file; a missing file reads as empty.
func (j *Journal) Read(ctx context.Context, limitBytes int) (string, error) {
	data, err := os.ReadFile(j.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	s := string(data)
	if limitBytes <= 0 || len(s) <= limitBytes {
		return s, nil
	}
	return s[len(s)-limitBytes:], nil
}
