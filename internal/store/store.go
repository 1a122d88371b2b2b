package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/jonathan/lead-scraper/internal/types"
)

// DefaultKey is the single key holding the full row sequence.
const DefaultKey = "scrapedData"

// ErrArity is returned when a row does not have one value per header column.
var ErrArity = errors.New("row arity does not match header")

// Store is the append-only row collection. When non-empty, row 0 is the header.
// All mutations go through one read-modify-write cycle guarded by a mutex.
type Store struct {
	kv      KV
	key     string
	header  []string
	verbose bool

	mu sync.Mutex
}

// Options configures a Store.
type Options struct {
	Key     string
	Verbose bool
}

// New creates a Store over kv.
func New(kv KV, opts *Options) *Store {
	s := &Store{kv: kv, key: DefaultKey, header: types.HeaderRow()}
	if opts != nil {
		if opts.Key != "" {
			s.key = opts.Key
		}
		s.verbose = opts.Verbose
	}
	return s
}

// Key returns the backend key rows are stored under.
func (s *Store) Key() string {
	return s.key
}

// Append adds one row.
func (s *Store) Append(ctx context.Context, row []string) error {
	return s.AppendAll(ctx, [][]string{row})
}

// AppendLead adds one lead row.
func (s *Store) AppendLead(ctx context.Context, row types.LeadRow) error {
	return s.Append(ctx, row.Values())
}

// AppendAll adds rows in order. An empty store gets the header first; a store
// whose first row is not the current header gets a fresh header prepended
// ahead of its existing content, which is kept.
func (s *Store) AppendAll(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	for i, row := range rows {
		if len(row) != len(s.header) {
			return fmt.Errorf("row %d has %d values, want %d: %w", i, len(row), len(s.header), ErrArity)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx)
	if err != nil {
		return err
	}

	var next [][]string
	switch {
	case len(existing) == 0:
		next = append([][]string{s.headerCopy()}, rows...)
	case slices.Equal(existing[0], s.header):
		next = append(existing, rows...)
	default:
		log.Printf("[STORE] Stored header does not match, prepending a fresh header to %d existing rows", len(existing))
		next = make([][]string, 0, len(existing)+len(rows)+1)
		next = append(next, s.headerCopy())
		next = append(next, existing...)
		next = append(next, rows...)
	}

	if err := s.save(ctx, next); err != nil {
		return err
	}
	if s.verbose {
		log.Printf("[STORE] Appended %d row(s), %d data rows stored", len(rows), len(next)-1)
	}
	return nil
}

// Clear removes every stored row.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(ctx, s.key); err != nil {
		return &Error{Op: "clear", Message: "failed to remove rows", Cause: err}
	}
	log.Printf("[STORE] Cleared stored rows")
	return nil
}

// Count returns the number of data rows, excluding the header. An empty store counts 0.
func (s *Store) Count(ctx context.Context) (int, error) {
	rows, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows) - 1, nil
}

// Snapshot returns every stored row, header first.
func (s *Store) Snapshot(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) headerCopy() []string {
	return append([]string(nil), s.header...)
}

func (s *Store) load(ctx context.Context) ([][]string, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, &Error{Op: "load", Message: "failed to read rows", Cause: err}
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	if err := validateBlob(raw); err != nil {
		return nil, &Error{Op: "load", Message: "stored rows are malformed", Cause: err}
	}

	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &Error{Op: "load", Message: "failed to decode rows", Cause: err}
	}
	return rows, nil
}

func (s *Store) save(ctx context.Context, rows [][]string) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return &Error{Op: "save", Message: "failed to encode rows", Cause: err}
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return &Error{Op: "save", Message: "failed to write rows", Cause: err}
	}
	return nil
}
