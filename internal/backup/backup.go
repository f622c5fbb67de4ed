// Package backup keeps a compressed copy of each run's recommendations on
// local disk.
package backup

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/guarzo/autopricing/internal/model"
)

const (
	DefaultDir = "data/backups"
	filePrefix = "recommendations_"
	fileSuffix = ".jsonl.br"
)

// ErrNoBackup is returned by Latest when the directory holds no backup.
var ErrNoBackup = errors.New("no backup found")

// Record is one line of a backup file.
type Record struct {
	RunID              string               `json:"run_id"`
	RunAt              time.Time            `json:"run_at"`
	Context            model.PricingContext `json:"context"`
	Strategy           string               `json:"strategy"`
	Change             model.Change         `json:"change"`
	RecomPrice         *float64             `json:"recom_price"`
	Path               model.Trace          `json:"path"`
	LastChangedDaysAgo int                  `json:"last_changed_days_ago"`
}

// Recommendation converts the record back.
func (r *Record) Recommendation() model.Recommendation {
	price := model.Undefined
	if r.RecomPrice != nil {
		price = *r.RecomPrice
	}
	return model.Recommendation{
		Context: r.Context,
		Decision: model.Decision{
			Strategy: r.Strategy,
			Change:   r.Change,
			Price:    price,
			Path:     r.Path,
		},
		LastChangedDaysAgo: r.LastChangedDaysAgo,
	}
}

// Store writes one file per day into Dir.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir}
}

// FileName is the backup file name for a run date.
func FileName(at time.Time) string {
	return filePrefix + at.UTC().Format("20060102") + fileSuffix
}

// Write stores recs as brotli-compressed JSON lines. A second run on the
// same day replaces the file.
func (s *Store) Write(runID string, at time.Time, recs []model.Recommendation) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(s.Dir, FileName(at))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	if err := encode(f, runID, at, recs); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}
	return path, nil
}

func encode(w io.Writer, runID string, at time.Time, recs []model.Recommendation) error {
	bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
	enc := json.NewEncoder(bw)
	for i := range recs {
		rec := &recs[i]
		line := Record{
			RunID:              runID,
			RunAt:              at.UTC(),
			Context:            rec.Context,
			Strategy:           rec.Decision.Strategy,
			Change:             rec.Decision.Change,
			Path:               rec.Decision.Path,
			LastChangedDaysAgo: rec.LastChangedDaysAgo,
		}
		if model.Defined(rec.Decision.Price) {
			p := rec.Decision.Price
			line.RecomPrice = &p
		}
		if err := enc.Encode(&line); err != nil {
			return fmt.Errorf("encode %s/%s: %w", rec.Context.Style, rec.Context.CountryCode, err)
		}
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("compress backup: %w", err)
	}
	return nil
}

// Read decodes a backup file.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(brotli.NewReader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []Record
	for line := 1; scanner.Scan(); line++ {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return records, nil
}

// Latest returns the path of the most recent backup.
func (s *Store) Latest() (string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoBackup
	}
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), fileSuffix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", ErrNoBackup
	}
	// dates sort lexically
	return filepath.Join(s.Dir, slices.Max(names)), nil
}
