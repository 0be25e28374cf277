// Package cache provides a content-addressed memo store for agent call
// results. Entries persist on the filesystem so identical calls hit the
// same entry across process restarts.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/paramind/paramind/internal/llm"
)

// Entry is the stored value for one cache key.
type Entry struct {
	// Model is the model identifier the call targeted.
	Model string `json:"model"`
	// Response is the stored model output.
	Response string `json:"response"`
	// Tokens is the token usage of the original call.
	Tokens int `json:"tokens"`
	// LatencySeconds is the latency of the original call.
	LatencySeconds float64 `json:"latency_seconds"`
}

// Store is a filesystem-backed memo store. Keys are derived from the
// request's content identity; a stored entry always returns the same
// value for the same key. Concurrent misses for the same key may each perform
// the underlying call; the last write wins, which is harmless because
// both writes hold a valid result for the same inputs.
type Store struct {
	dir        string
	maxEntries int
	mu         sync.Mutex
}

// Options configures a Store.
type Options struct {
	// Dir is the directory that holds cache entries.
	Dir string
	// MaxEntries bounds the number of stored entries; the oldest entries
	// by modification time are evicted when the bound is exceeded.
	// Zero means unbounded.
	MaxEntries int
}

// Open creates the cache directory if needed and returns a Store.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("cache directory not set")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{dir: opts.Dir, maxEntries: opts.MaxEntries}, nil
}

// Key derives the content address for a call. The hash covers every
// request field that changes what the model would answer: model, prompt,
// injected context, system instruction, and the token cap. Timeout is
// excluded because it does not alter the response content. Fields are
// separated by NUL bytes so boundaries cannot collide.
func Key(req llm.Request) string {
	hasher := blake3.New()
	hasher.Write([]byte(req.Model))
	hasher.Write([]byte{0})
	hasher.Write([]byte(req.Prompt))
	hasher.Write([]byte{0})
	hasher.Write([]byte(req.Context))
	hasher.Write([]byte{0})
	hasher.Write([]byte(req.System))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(req.MaxTokens)))
	return hex.EncodeToString(hasher.Sum(nil))
}

// Get returns the stored entry for the request, or false if there is no
// entry.
func (s *Store) Get(req llm.Request) (*Entry, bool) {
	path := s.entryPath(Key(req))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is treated as a miss and removed so the next
		// call repopulates it.
		_ = os.Remove(path)
		return nil, false
	}
	return &entry, true
}

// Put stores an entry for the request. The write goes through a temp
// file and rename so readers never observe a partial entry.
func (s *Store) Put(req llm.Request, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	path := s.entryPath(Key(req))

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store cache entry: %w", err)
	}

	s.pruneLocked()
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0
	}
	return len(matches)
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// pruneLocked evicts the oldest entries when the store exceeds its bound.
// Caller must hold s.mu.
func (s *Store) pruneLocked() {
	if s.maxEntries <= 0 {
		return
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil || len(matches) <= s.maxEntries {
		return
	}

	type aged struct {
		path string
		mod  int64
	}
	entries := make([]aged, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, aged{path: path, mod: info.ModTime().UnixNano()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].mod < entries[j].mod })

	excess := len(entries) - s.maxEntries
	for i := 0; i < excess; i++ {
		_ = os.Remove(entries[i].path)
	}
}
