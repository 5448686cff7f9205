// Package checkpoint persists verification progress so an interrupted
// run can resume without re-checking candidates.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"seedsleuth/engine"
	"seedsleuth/mnemonic"
)

const (
	filePrefix = "checkpoint-"
	fileSuffix = ".jsonl"

	// timeLayout keeps checkpoint filenames lexicographically ordered
	// by creation time.
	timeLayout = "20060102T150405Z"
)

// Record is one checkpoint line. The sentence appears only as its
// short hash; the plaintext never reaches this file.
type Record struct {
	MnemonicHash     string `json:"mnemonicHash"`
	Found            bool   `json:"found"`
	AddressesChecked int    `json:"addressesChecked"`
	DurationMs       int64  `json:"durationMs"`
	Timestamp        string `json:"timestampISO8601"`
}

// Store is the run's result sink and resume filter: it appends one
// record per verified sentence to an append-only checkpoint file and,
// at startup, loads the most recent previous checkpoint to skip
// already-checked sentences. All writes happen on the orchestrator's
// single supervisory path, so the store needs no locking.
type Store struct {
	dir   string
	runID string
	log   *zap.Logger

	file *os.File
	path string
	seen map[string]struct{}
}

var (
	_ engine.ResultSink   = (*Store)(nil)
	_ engine.ResumeFilter = (*Store)(nil)
)

// NewStore opens a fresh checkpoint file under dir and loads the
// hashes of the most recent earlier checkpoint, if any.
func NewStore(dir, runID string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint dir: %w", err)
	}

	seen, previous, err := loadLatest(dir, log)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s%s-%s%s", filePrefix, time.Now().UTC().Format(timeLayout), runID, fileSuffix)
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}

	if previous != "" {
		log.Info("resuming from checkpoint",
			zap.String("file", previous),
			zap.Int("already_checked", len(seen)))
	}

	return &Store{
		dir:   dir,
		runID: runID,
		log:   log,
		file:  file,
		path:  path,
		seen:  seen,
	}, nil
}

// loadLatest reads the newest earlier checkpoint file. Only that one
// file is consulted; older history is ignored to bound startup cost.
func loadLatest(dir string, log *zap.Logger) (map[string]struct{}, string, error) {
	seen := make(map[string]struct{})

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, "", nil
		}
		return nil, "", fmt.Errorf("listing checkpoints: %w", err)
	}

	latest := ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if name > latest {
			latest = name
		}
	}
	if latest == "" {
		return seen, "", nil
	}

	f, err := os.Open(filepath.Join(dir, latest))
	if err != nil {
		return nil, "", fmt.Errorf("opening checkpoint %s: %w", latest, err)
	}
	defer f.Close()

	malformed := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.MnemonicHash == "" {
			malformed++
			continue
		}
		seen[rec.MnemonicHash] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("reading checkpoint %s: %w", latest, err)
	}
	if malformed > 0 {
		log.Warn("skipped malformed checkpoint lines",
			zap.String("file", latest),
			zap.Int("lines", malformed))
	}
	return seen, latest, nil
}

// Seen reports whether a sentence was verified by the run this store
// resumed from, or earlier in the current run.
func (s *Store) Seen(sentence string) bool {
	_, ok := s.seen[mnemonic.ShortHash(sentence)]
	return ok
}

// SeenCount returns how many distinct sentence hashes are known.
func (s *Store) SeenCount() int {
	return len(s.seen)
}

// Path returns the checkpoint file this run writes to.
func (s *Store) Path() string {
	return s.path
}

// FoundPath returns where a found-wallet record for this run lands.
func (s *Store) FoundPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("found-wallet-%s.json", s.runID))
}

// AppendResult writes one checkpoint line for a verified sentence.
func (s *Store) AppendResult(res *engine.VerificationResult) error {
	hash := mnemonic.ShortHash(res.Mnemonic)
	rec := Record{
		MnemonicHash:     hash,
		Found:            res.Found,
		AddressesChecked: res.AddressesChecked,
		DurationMs:       res.Duration.Milliseconds(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding checkpoint record: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing checkpoint record: %w", err)
	}

	s.seen[hash] = struct{}{}
	return nil
}

// WriteFound writes the found-wallet record. This is the one place
// the plaintext sentence is persisted, so the file is owner-only.
func (s *Store) WriteFound(w *engine.FoundWallet) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding found wallet: %w", err)
	}

	path := s.FoundPath()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing found wallet: %w", err)
	}

	s.log.Info("found-wallet record written", zap.String("file", path))
	return nil
}

// WriteSummary writes the run summary. The found wallet, if any, is
// redacted to its hash here; the plaintext lives only in the
// found-wallet record.
func (s *Store) WriteSummary(sum *engine.RunSummary) error {
	redacted := *sum
	if sum.Found != nil {
		found := *sum.Found
		found.Mnemonic = mnemonic.ShortHash(found.Mnemonic)
		redacted.Found = &found
	}

	data, err := json.MarshalIndent(&redacted, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("run-summary-%s.json", s.runID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// Close flushes and closes the checkpoint file.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
