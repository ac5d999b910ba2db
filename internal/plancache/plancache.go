// Package plancache stores raw planner solutions in LevelDB, keyed by a
// digest of the generated PDDL domain and problem. A hit lets Solve skip
// grounding and search; decoding always runs against the live problem.
package plancache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB key prefix scheme, "|" separated so problem names with colons are safe.
//
//	p|<key>             → Entry JSON   (primary record)
//	n|<problem>|<key>   → nil          (per-problem index)
const (
	prefixPlan    = "p|"
	prefixProblem = "n|"
)

// Entry is one stored planner outcome. Found false records a proven
// unsolvable task so the search is not repeated.
type Entry struct {
	ID       string   `json:"id"`
	Key      string   `json:"key"`
	Problem  string   `json:"problem"`
	Found    bool     `json:"found"`
	Lines    []string `json:"lines,omitempty"`
	StoredAt string   `json:"stored_at"`
}

// Store is the LevelDB-backed plan cache. Safe for concurrent use; LevelDB
// itself is single-process, so a second Open on the same dir fails.
type Store struct {
	db  *leveldb.DB
	dir string
}

// Open opens (or creates) the cache database at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open plan cache at %s: %w", dir, err)
	}
	return &Store{db: db, dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key digests the search configuration together with the PDDL rendering of a
// converted domain and problem. Outcomes of different searches never share a key.
func Key(search, domainPDDL, problemPDDL string) string {
	h := sha256.New()
	h.Write([]byte(search))
	h.Write([]byte{0})
	h.Write([]byte(domainPDDL))
	h.Write([]byte{0})
	h.Write([]byte(problemPDDL))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the entry stored under key.
//
// Expectations:
//   - returns ok=false and nil error when the key is absent
//   - returns an error only on LevelDB or decode failure
func (s *Store) Lookup(key string) (Entry, bool, error) {
	data, err := s.db.Get([]byte(prefixPlan+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("plan cache lookup %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("plan cache decode %s: %w", key, err)
	}
	return e, true, nil
}

// Save stores e under key, replacing any previous entry.
//
// Expectations:
//   - assigns ID and StoredAt if missing
//   - writes the record and its problem index in one batch
func (s *Store) Save(key string, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StoredAt == "" {
		e.StoredAt = time.Now().UTC().Format(time.RFC3339)
	}
	e.Key = key
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("plan cache encode %s: %w", key, err)
	}
	batch := new(leveldb.Batch)
	batch.Put([]byte(prefixPlan+key), data)
	batch.Put([]byte(problemKey(e.Problem, key)), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("plan cache save %s: %w", key, err)
	}
	slog.Debug("[PLANCACHE] stored", "key", key, "problem", e.Problem, "found", e.Found, "lines", len(e.Lines))
	return nil
}

// Entries lists the entries stored for a problem name.
func (s *Store) Entries(problem string) ([]Entry, error) {
	prefix := problemPrefix(problem)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var out []Entry
	for iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), prefix)
		e, ok, err := s.Lookup(key)
		if err != nil || !ok {
			continue
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

// Purge deletes every entry and returns how many records were removed.
func (s *Store) Purge() (int, error) {
	iter := s.db.NewIterator(nil, nil)
	batch := new(leveldb.Batch)
	n := 0
	for iter.Next() {
		k := append([]byte(nil), iter.Key()...)
		if strings.HasPrefix(string(k), prefixPlan) {
			n++
		}
		batch.Delete(k)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("plan cache scan: %w", err)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("plan cache purge: %w", err)
	}
	slog.Info("[PLANCACHE] purged", "dir", s.dir, "entries", n)
	return n, nil
}

func problemPrefix(problem string) string {
	return prefixProblem + safeKeyPart(problem) + "|"
}

func problemKey(problem, key string) string {
	return problemPrefix(problem) + key
}

// safeKeyPart replaces "|" with "_" so LevelDB keys parse unambiguously.
func safeKeyPart(s string) string {
	return strings.ReplaceAll(s, "|", "_")
}
