package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stealth-swap/pkg/types"
)

const (
	DefaultStorageFileName = ".stealth-swap-history.json"
)

var (
	// ErrNotFound means no record matches the given ID.
	ErrNotFound = errors.New("history record not found")

	// ErrAmbiguousID means an ID prefix matches more than one record.
	ErrAmbiguousID = errors.New("ambiguous history record id")
)

// Storage persists submitted swap requests in a JSON file
type Storage struct {
	filePath string
	mu       sync.RWMutex
	records  map[string]*Record
	now      func() time.Time
	log      *zap.Logger
}

// recordFile represents the JSON structure for storage
type recordFile struct {
	Records map[string]*Record `json:"records"`
}

// NewStorage creates a new storage instance. An empty path selects a file in
// the home directory.
func NewStorage(filePath string, log *zap.Logger) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	s := &Storage{
		filePath: filePath,
		records:  make(map[string]*Record),
		now:      time.Now,
		log:      log.Named("history"),
	}

	// A missing file is created on first save
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return s, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var f recordFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	s.records = f.Records
	if s.records == nil {
		s.records = make(map[string]*Record)
	}

	s.log.Debug("loaded history", zap.String("path", s.filePath), zap.Int("records", len(s.records)))
	return nil
}

// saveLocked writes all records; the caller holds the write lock
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(recordFile{Records: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Add records a submission. The outcome may be nil when submission failed
// before a quote was issued.
func (s *Storage) Add(req types.SwapRequest, outcome *types.Outcome, submitErr error) (*Record, error) {
	now := s.now()
	rec := &Record{
		ID:      uuid.New().String(),
		Created: now,
		Updated: now,
		Request: req,
		Status:  StatusQuoted,
	}

	if outcome != nil {
		rec.Reference = outcome.Reference
		rec.TxHash = outcome.TxHash
		rec.AmountIn = outcome.AmountIn
		rec.AmountOut = outcome.AmountOut
		rec.EstimatedSeconds = outcome.EstimatedSeconds
		if outcome.TxHash != "" {
			rec.Status = StatusDeposited
		}
	}
	if submitErr != nil {
		rec.ErrorMessage = submitErr.Error()
		if outcome == nil {
			rec.Status = StatusFailed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec
	if err := s.saveLocked(); err != nil {
		delete(s.records, rec.ID)
		return nil, err
	}

	s.log.Info("recorded swap request", zap.String("id", rec.ID), zap.String("status", string(rec.Status)))
	copied := *rec
	return &copied, nil
}

// Get retrieves a record by ID or unique ID prefix
func (s *Storage) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	copied := *rec
	return &copied, nil
}

// FindByReference returns the most recent record for a deposit address
func (s *Storage) FindByReference(reference string) (*Record, error) {
	for _, rec := range s.List() {
		if strings.EqualFold(rec.Reference, reference) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, reference)
}

// UpdateSwapStatus stores the latest settlement status for a record
func (s *Storage) UpdateSwapStatus(id, swapStatus string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}

	prev := *rec
	rec.SwapStatus = swapStatus
	rec.Status = statusFromSwap(rec.Status, swapStatus)
	rec.Updated = s.now()

	if err := s.saveLocked(); err != nil {
		*rec = prev
		return nil, err
	}

	copied := *rec
	return &copied, nil
}

// List returns all records, newest first
func (s *Storage) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		copied := *rec
		records = append(records, &copied)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Created.Equal(records[j].Created) {
			return records[i].ID < records[j].ID
		}
		return records[i].Created.After(records[j].Created)
	})

	return records
}

// ListByStatus returns records filtered by status, newest first
func (s *Storage) ListByStatus(status Status) []*Record {
	var out []*Record
	for _, rec := range s.List() {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the total number of records
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// GetFilePath returns the storage file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}

func (s *Storage) findLocked(id string) (*Record, error) {
	if rec, ok := s.records[id]; ok {
		return rec, nil
	}

	var match *Record
	for key, rec := range s.records {
		if id != "" && strings.HasPrefix(key, id) {
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			match = rec
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}
