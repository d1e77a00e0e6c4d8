// Package cache keeps reconstructed file contents so repeated replays of the
// same history at the same cursor are served without re-applying every change.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Cache stores content by key. Misses and storage failures are never fatal.
type Cache interface {
	Get(key string) ([]byte, bool)
	Add(key string, content []byte)
	Close() error
}

// Key identifies the content of a history, by its fingerprint, at a cursor.
func Key(fingerprint string, cursor uint64) string {
	return fmt.Sprintf("content:%s:%d", fingerprint, cursor)
}

// Options selects and sizes the cache.
type Options struct {
	// Number of entries held in memory, 0 disables caching
	Size int
	// Keep entries on disk in Dir across runs
	Persistent bool
	Dir        string
}

// New builds the cache described by opts. A persistent cache whose database
// cannot be opened, for example because another process holds it, degrades to
// a memory cache.
func New(opts Options, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Size <= 0 {
		return Nop{}, nil
	}
	if !opts.Persistent {
		return NewMemory(opts.Size)
	}

	p, err := OpenPersistent(PersistentOptions{Dir: opts.Dir, Size: opts.Size}, logger)
	if err != nil {
		logger.Warn("Persistent cache unavailable, using memory", zap.String("dir", opts.Dir), zap.Error(err))
		return NewMemory(opts.Size)
	}
	return p, nil
}

// Nop never holds anything.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Add(string, []byte)        {}
func (Nop) Close() error              { return nil }

// Memory is an LRU cache of bounded entry count.
type Memory struct {
	lru *lru.Cache[string, []byte]
}

func NewMemory(size int) (*Memory, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Memory{lru: c}, nil
}

// Get returns a copy of the cached content.
func (m *Memory) Get(key string) ([]byte, bool) {
	content, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]byte{}, content...), true
}

func (m *Memory) Add(key string, content []byte) {
	m.lru.Add(key, append([]byte{}, content...))
}

func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
