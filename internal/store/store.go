// Package store persists the mapping from external identity ids to identity records.
//
// The whole mapping lives in one JSON object keyed by external id. Every call
// reloads the file under a per-file mutex and every mutation rewrites it
// atomically, so readers never observe a partial write. Multiple processes
// sharing one file are not coordinated.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/fsutil"
)

const (
	filePerm = 0o600
	dirPerm  = 0o755
)

var (
	// ErrRecordNotFound is returned when no record matches the lookup.
	ErrRecordNotFound = errors.New("identity record not found")
	// ErrEmptyExternalID is returned when a record is written without an external id.
	ErrEmptyExternalID = errors.New("external id can not be empty")
	// ErrCorruptStore is returned when the backing file can not be decoded.
	ErrCorruptStore = errors.New("mapping store file is corrupt")
)

// locks holds one mutex per store file, shared by every Store opened on it.
var locks sync.Map //nolint:gochecknoglobals

func lockFor(path string) *sync.Mutex {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	mu, _ := locks.LoadOrStore(key, &sync.Mutex{})

	return mu.(*sync.Mutex) //nolint:forcetypeassert
}

// Store is a file backed mapping store, safe for concurrent use.
// Stores opened on the same path within one process share a lock.
type Store struct {
	path string
	mu   *sync.Mutex
}

// New opens the store at path, creating an empty one if the file does not exist.
func New(path string) (*Store, error) {
	s := &Store{path: path, mu: lockFor(path)}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create mapping store directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load()
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := s.save(t); err != nil {
			return nil, err
		}

		log.Info().Str("path", path).Msg("created empty mapping store")
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Put inserts or fully replaces the record for externalID.
func (s *Store) Put(externalID, displayName, filename string, attrs map[string]any) error {
	if externalID == "" {
		return ErrEmptyExternalID
	}

	rec := Record{
		ExternalID:  externalID,
		DisplayName: displayName,
		Filename:    filename,
		Attributes:  attrs,
	}

	return s.mutate(func(t *table) bool {
		t.set(rec)
		return true
	})
}

// Get returns the record for externalID.
func (s *Store) Get(externalID string) (Record, error) {
	return s.find(func(r Record) bool { return r.ExternalID == externalID })
}

// Exists reports whether a record for externalID exists.
func (s *Store) Exists(externalID string) (bool, error) {
	_, err := s.Get(externalID)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Delete removes the record for externalID and reports whether it existed.
func (s *Store) Delete(externalID string) (bool, error) {
	var existed bool

	err := s.mutate(func(t *table) bool {
		existed = t.remove(externalID)
		return existed
	})

	return existed, err
}

// List returns every record in file order.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load()
	if err != nil {
		return nil, err
	}

	return t.records(), nil
}

// FindByDisplayName returns the first record whose display name matches name, ignoring case.
func (s *Store) FindByDisplayName(name string) (Record, error) {
	return s.find(func(r Record) bool { return strings.EqualFold(r.DisplayName, name) })
}

// FindByFilename returns the first record owning filename.
func (s *Store) FindByFilename(filename string) (Record, error) {
	return s.find(func(r Record) bool { return r.Filename == filename })
}

func (s *Store) find(match func(Record) bool) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load()
	if err != nil {
		return Record{}, err
	}

	for _, r := range t.records() {
		if match(r) {
			return r, nil
		}
	}

	return Record{}, ErrRecordNotFound
}

// mutate runs fn against a freshly loaded table and saves it when fn reports a change.
func (s *Store) mutate(fn func(*table) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load()
	if err != nil {
		return err
	}

	if !fn(t) {
		return nil
	}

	return s.save(t)
}

func (s *Store) load() (*table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newTable(), nil
		}

		return nil, fmt.Errorf("read mapping store: %w", err)
	}

	t, err := decodeTable(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptStore, s.path, err)
	}

	return t, nil
}

func (s *Store) save(t *table) error {
	data, err := t.encode()
	if err != nil {
		return fmt.Errorf("encode mapping store: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.path, data, filePerm); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to write mapping store")
		return err
	}

	return nil
}

// table is the decoded store content in file order.
type table struct {
	keys []string
	byID map[string]Record
}

func newTable() *table {
	return &table{byID: make(map[string]Record)}
}

func (t *table) set(r Record) {
	if _, ok := t.byID[r.ExternalID]; !ok {
		t.keys = append(t.keys, r.ExternalID)
	}

	t.byID[r.ExternalID] = r
}

func (t *table) remove(id string) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}

	delete(t.byID, id)

	for i, k := range t.keys {
		if k == id {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}

	return true
}

func (t *table) records() []Record {
	out := make([]Record, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.byID[k])
	}

	return out
}

// decodeTable reads the top level object token by token to keep key order.
func decodeTable(data []byte) (*table, error) {
	t := newTable()

	if len(bytes.TrimSpace(data)) == 0 {
		return t, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}

		var r Record
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}

		// the object key is authoritative
		r.ExternalID = key
		t.set(r)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after object")
	}

	return t, nil
}

func (t *table) encode() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("{")

	for i, k := range t.keys {
		if i > 0 {
			buf.WriteString(",")
		}

		key, err := marshal(k)
		if err != nil {
			return nil, err
		}

		value, err := marshal(t.byID[k])
		if err != nil {
			return nil, err
		}

		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")

		var indented bytes.Buffer
		if err := json.Indent(&indented, value, "  ", "  "); err != nil {
			return nil, err
		}

		buf.Write(indented.Bytes())
	}

	if len(t.keys) > 0 {
		buf.WriteString("\n")
	}

	buf.WriteString("}\n")

	return buf.Bytes(), nil
}
