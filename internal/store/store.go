// Package store persists experiment output under a results directory.
// Each experiment owns three files keyed by its identifier:
//
//	<id>.jsonl         append-only per-attempt record log
//	<id>_status.json   resumable progress state, rewritten atomically
//	<id>_final.json.gz consolidated artifact written on finalize
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/shuffleval/shuffleval/internal/models"
)

// Store is the on-disk state of one experiment.
type Store struct {
	mu           sync.Mutex
	root         string
	experimentID string
	file         *os.File
	enc          *json.Encoder
}

// Open creates or reopens the record log for an experiment. The results
// directory is created if needed.
func Open(root, experimentID string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("store: create results directory: %w", err)
	}

	path := filepath.Join(root, experimentID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("store: open record log: %w", err)
	}

	return &Store{
		root:         root,
		experimentID: experimentID,
		file:         f,
		enc:          json.NewEncoder(f),
	}, nil
}

// Append writes one record as a JSON line.
func (s *Store) Append(record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("store: append record: %w", err)
	}
	return nil
}

// Close closes the record log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// RecordPath returns the experiment's JSONL log path.
func (s *Store) RecordPath() string {
	return filepath.Join(s.root, s.experimentID+".jsonl")
}

func (s *Store) statusPath() string {
	return filepath.Join(s.root, s.experimentID+"_status.json")
}

func (s *Store) finalPath() string {
	return filepath.Join(s.root, s.experimentID+"_final.json.gz")
}

// WriteStatus persists progress state via a temp file and rename, so a
// crash mid-write never leaves a torn status file.
func (s *Store) WriteStatus(status *models.ExperimentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal status: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, s.experimentID+"_status_*.tmp")
	if err != nil {
		return fmt.Errorf("store: create status temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return fmt.Errorf("store: write status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("store: close status temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.statusPath()); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("store: replace status file: %w", err)
	}
	return nil
}

// LoadStatus reads the persisted progress state. A missing file is not an
// error: it returns (nil, nil) and means the experiment has not started.
func (s *Store) LoadStatus() (*models.ExperimentStatus, error) {
	return readStatus(s.statusPath())
}

func readStatus(path string) (*models.ExperimentStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read status: %w", err)
	}

	var status models.ExperimentStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("store: parse status %s: %w", path, err)
	}
	return &status, nil
}

// FinalReport is the consolidated artifact written when a run finishes.
// Records holds one line per trial, the latest attempt winning.
type FinalReport struct {
	ExperimentID string            `json:"experiment_id"`
	FinalizedAt  time.Time         `json:"finalized_at"`
	Total        int               `json:"total"`
	Completed    int               `json:"completed"`
	Abandoned    int               `json:"abandoned"`
	Correct      int               `json:"correct"`
	Accuracy     float64           `json:"accuracy"`
	Records      []json.RawMessage `json:"records"`
}

// recordProbe pulls out the fields consolidation needs from a raw line.
type recordProbe struct {
	TrialID   string `json:"trial_id"`
	Correct   bool   `json:"is_correct"`
	Error     string `json:"error"`
	Abandoned bool   `json:"abandoned"`
}

// Finalize consolidates the record log into the gzipped final artifact.
// Later lines for the same trial supersede earlier ones, so a retried
// trial contributes only its terminal record. A torn trailing line (crash
// mid-append) is skipped.
func (s *Store) Finalize() (*FinalReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.RecordPath())
	if err != nil {
		return nil, fmt.Errorf("store: open record log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	order := []string{}
	latest := map[string]json.RawMessage{}
	probes := map[string]recordProbe{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var probe recordProbe
		if err := json.Unmarshal([]byte(line), &probe); err != nil || probe.TrialID == "" {
			// Torn or foreign line.
			continue
		}
		if _, seen := latest[probe.TrialID]; !seen {
			order = append(order, probe.TrialID)
		}
		latest[probe.TrialID] = json.RawMessage(line)
		probes[probe.TrialID] = probe
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: scan record log: %w", err)
	}

	report := &FinalReport{
		ExperimentID: s.experimentID,
		FinalizedAt:  time.Now().UTC(),
		Records:      make([]json.RawMessage, 0, len(order)),
	}
	for _, id := range order {
		probe := probes[id]
		report.Total++
		switch {
		case probe.Abandoned:
			report.Abandoned++
		default:
			report.Completed++
			if probe.Correct {
				report.Correct++
			}
		}
		report.Records = append(report.Records, latest[id])
	}
	if report.Completed > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Completed)
	}

	out, err := os.Create(s.finalPath())
	if err != nil {
		return nil, fmt.Errorf("store: create final artifact: %w", err)
	}
	gz := gzip.NewWriter(out)
	if err := json.NewEncoder(gz).Encode(report); err != nil {
		gz.Close()  //nolint:errcheck
		out.Close() //nolint:errcheck
		return nil, fmt.Errorf("store: write final artifact: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close() //nolint:errcheck
		return nil, fmt.Errorf("store: flush final artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("store: close final artifact: %w", err)
	}
	return report, nil
}

// ReadFinal loads a previously written final artifact.
func (s *Store) ReadFinal() (*FinalReport, error) {
	f, err := os.Open(s.finalPath())
	if err != nil {
		return nil, fmt.Errorf("store: open final artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("store: decompress final artifact: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	var report FinalReport
	if err := json.NewDecoder(gz).Decode(&report); err != nil {
		return nil, fmt.Errorf("store: parse final artifact: %w", err)
	}
	return &report, nil
}

// Reset deletes all persisted state for the experiment. The caller must
// reopen the store afterwards.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.file.Close() //nolint:errcheck
	for _, path := range []string{s.RecordPath(), s.statusPath(), s.finalPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: remove %s: %w", path, err)
		}
	}
	return nil
}

// ListStatuses loads every experiment status file under root, sorted by
// experiment identifier. A missing root yields an empty list.
func ListStatuses(root string) ([]*models.ExperimentStatus, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*_status.json"))
	if err != nil {
		return nil, fmt.Errorf("store: glob statuses: %w", err)
	}
	sort.Strings(matches)

	statuses := make([]*models.ExperimentStatus, 0, len(matches))
	for _, path := range matches {
		status, err := readStatus(path)
		if err != nil {
			return nil, err
		}
		if status != nil {
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}
