// Package pidfile records the running host so CLI commands can find it.
package pidfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/process"
)

// Record is the content of the pid file.
type Record struct {
	PID       int       `json:"pid"`
	Listen    string    `json:"listen"`
	HTTPAddr  string    `json:"http_addr,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Acquire writes rec for the current process. It fails when another live
// host already owns the file; a stale file is replaced.
func Acquire(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create pid directory")
	}

	if existing, err := Read(path); err == nil {
		if existing.PID != os.Getpid() && process.IsProcessAlive(existing.PID) {
			return errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("host already running with PID %d", existing.PID)).
				WithDetail("listen", existing.Listen)
		}
		_ = os.Remove(path)
	}

	rec.PID = os.Getpid()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode pid file")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write pid file")
	}
	return nil
}

// Release removes the pid file if it still belongs to this process.
func Release(path string) error {
	rec, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if rec.PID != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read parses the pid file. A bare integer is accepted as a PID-only record.
func Read(path string) (Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	trimmed := strings.TrimSpace(string(content))

	var rec Record
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
			return Record{}, errors.Wrap(err, errors.ErrCodeInternal, "malformed pid file")
		}
		return rec, nil
	}
	pid, err := strconv.Atoi(trimmed)
	if err != nil {
		return Record{}, errors.Wrap(err, errors.ErrCodeInternal, "malformed pid file")
	}
	return Record{PID: pid}, nil
}

// IsRunning reports whether the host described by the pid file is alive.
func IsRunning(path string) (bool, Record, error) {
	rec, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, Record{}, nil
		}
		return false, Record{}, err
	}
	return process.IsProcessAlive(rec.PID), rec, nil
}
