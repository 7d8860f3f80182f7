// Package cache persists transform results on disk so repeated protect runs
// over unchanged inputs can skip re-transforming. Entries are keyed by a
// digest of the source, function name, and options; since transforms are
// deterministic for a fixed seed, a hit reproduces the run exactly.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Result is one cached transform output.
type Result struct {
	Function           string    `msgpack:"function"`
	Output             string    `msgpack:"output"`
	TotalBlocks        int       `msgpack:"total_blocks"`
	FakeBlocks         int       `msgpack:"fake_blocks"`
	PredicatesInjected int       `msgpack:"predicates_injected"`
	CreatedAt          time.Time `msgpack:"created_at"`
}

// Store is a directory of msgpack-encoded results.
type Store struct {
	dir string
}

// New opens (creating if needed) a store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Key digests the given parts into a cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key, if present and decodable.
func (s *Store) Get(key string) (*Result, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}

	var r Result
	if err := msgpack.Unmarshal(data, &r); err != nil {
		// Corrupt entry; drop it so the next Put rewrites cleanly.
		_ = os.Remove(s.path(key))
		return nil, false
	}
	return &r, true
}

// Put stores a result under key.
func (s *Store) Put(key string, r *Result) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the store.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading cache dir %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".msgpack") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Len counts the entries in the store.
func (s *Store) Len() int {
	n, _ := s.Stats()
	return n
}

// Stats reports the entry count and their total size in bytes.
func (s *Store) Stats() (int, int64) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0
	}
	var n int
	var size int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".msgpack") {
			continue
		}
		n++
		if info, err := e.Info(); err == nil {
			size += info.Size()
		}
	}
	return n, size
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".msgpack")
}
