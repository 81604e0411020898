package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/pkg/models"
)

const traceExt = ".json"

// TraceStore reads and writes run traces in one directory.
type TraceStore struct {
	dir    string
	logger *slog.Logger
}

// NewTraceStore creates a store rooted at dir.
func NewTraceStore(dir string, logger *slog.Logger) *TraceStore {
	return &TraceStore{dir: dir, logger: logging.OrNop(logger)}
}

// Dir returns the runs directory.
func (s *TraceStore) Dir() string { return s.dir }

// Path returns the file path for runID.
func (s *TraceStore) Path(runID string) string {
	return filepath.Join(s.dir, runID+traceExt)
}

// Write persists trace as indented JSON. An existing trace is never replaced.
func (s *TraceStore) Write(trace models.RunTrace) (string, error) {
	path := s.Path(trace.RunID)

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return path, &TraceWriteError{Path: path, Err: fmt.Errorf("encode trace: %w", err)}
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return path, &TraceWriteError{Path: path, Err: fmt.Errorf("create runs directory: %w", err)}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return path, &TraceWriteError{Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return path, &TraceWriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return path, &TraceWriteError{Path: path, Err: err}
	}
	return path, nil
}

// Read loads the trace for runID.
func (s *TraceStore) Read(runID string) (*models.RunTrace, error) {
	return ReadTrace(s.Path(runID))
}

// List returns every readable trace, newest first. Unreadable files are
// skipped with a warning. A missing directory yields no traces.
func (s *TraceStore) List() ([]models.RunTrace, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs directory: %w", err)
	}

	var traces []models.RunTrace
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), traceExt) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		trace, err := ReadTrace(path)
		if err != nil {
			s.logger.Warn("skipping unreadable run trace", "path", path, "error", err)
			continue
		}
		traces = append(traces, *trace)
	}

	sort.SliceStable(traces, func(i, j int) bool {
		if !traces[i].StartedAt.Equal(traces[j].StartedAt) {
			return traces[i].StartedAt.After(traces[j].StartedAt)
		}
		return traces[i].RunID < traces[j].RunID
	})
	return traces, nil
}

// ReadTrace loads a run trace file.
func ReadTrace(path string) (*models.RunTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run trace: %w", err)
	}
	var trace models.RunTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("decode run trace %s: %w", path, err)
	}
	return &trace, nil
}
