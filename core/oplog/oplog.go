package oplog

import (
	"fmt"
	"os"
	"strings"
)

// Store is the durable decision log consulted and written during
// reconciliation. A row maps a source tweet id to the Mastodon status id it
// produced; a row with an empty value is a tombstone ("reviewed, rejected,
// permanent"); a missing row means the tweet was never decided.
type Store interface {
	// Contains reports whether a row for the id exists, tombstone or not.
	Contains(id string) (bool, error)
	// Get returns the status id for a row. The second result is false when
	// no row exists. An empty status id with a true second result is a
	// tombstone.
	Get(id string) (string, bool, error)
	// Set appends a row. An empty statusID records a tombstone.
	Set(id, statusID string) error
	// Remove rewrites the log without any rows for the id. It is used only
	// by the deleted-on-destination repair path.
	Remove(id string) error
}

// Log is a Store backed by an append-only text file. Every query re-reads the
// file so a restarted process observes exactly the decisions that were durably
// committed before the previous exit.
//
// Wire format is one decision per line: "<tweetId>[ <statusId>]\n". The
// absence of a second token denotes a tombstone.
type Log struct {
	path string
}

// New returns a Log backed by the file at path. The file is created lazily on
// the first Set.
func New(path string) *Log {
	return &Log{path: path}
}

func (l *Log) rows() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

// Contains implements Store.
func (l *Log) Contains(id string) (bool, error) {
	lines, err := l.rows()
	if err != nil {
		return false, err
	}
	prefix := id + " "
	for _, line := range lines {
		if line == id || strings.HasPrefix(line, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Get implements Store.
func (l *Log) Get(id string) (string, bool, error) {
	lines, err := l.rows()
	if err != nil {
		return "", false, err
	}
	prefix := id + " "
	for _, line := range lines {
		if line == id {
			return "", true, nil
		}
		if strings.HasPrefix(line, prefix) {
			return line[len(prefix):], true, nil
		}
	}
	return "", false, nil
}

// Set implements Store. The row is flushed to stable storage before Set
// returns so that a crash immediately afterwards cannot lose the decision.
func (l *Log) Set(id, statusID string) error {
	line := id
	if statusID != "" {
		line += " " + statusID
	}
	line += "\n"

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open operation log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to operation log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync operation log: %w", err)
	}
	return f.Close()
}

// Remove implements Store. The log is rewritten atomically via a temporary
// file and rename.
func (l *Log) Remove(id string) error {
	lines, err := l.rows()
	if err != nil {
		return err
	}

	var b strings.Builder
	prefix := id + " "
	for _, line := range lines {
		if line == id || strings.HasPrefix(line, prefix) {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temporary log: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temporary log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temporary log: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace operation log: %w", err)
	}
	return nil
}
