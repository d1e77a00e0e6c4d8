package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long an entry survives on disk without being rewritten.
const DefaultTTL = 30 * 24 * time.Hour

// PersistentOptions configures a Persistent cache.
type PersistentOptions struct {
	Dir  string
	Size int
	TTL  time.Duration
	// InMemory keeps the badger store in memory, Dir is ignored
	InMemory bool
}

// Persistent fronts a badger store with a memory LRU.
type Persistent struct {
	mem    *Memory
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

func OpenPersistent(opts PersistentOptions, logger *zap.Logger) (*Persistent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else if opts.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	dbOpts.Logger = nil

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	mem, err := NewMemory(opts.Size)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Persistent{mem: mem, db: db, ttl: opts.TTL, logger: logger}, nil
}

func (p *Persistent) Get(key string) ([]byte, bool) {
	if content, ok := p.mem.Get(key); ok {
		return content, true
	}

	var content []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		content, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		p.logger.Warn("Reading cache entry failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	if content == nil {
		content = []byte{}
	}
	p.mem.Add(key, content)
	return content, true
}

func (p *Persistent) Add(key string, content []byte) {
	p.mem.Add(key, content)

	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), content).WithTTL(p.ttl))
	})
	if err != nil {
		p.logger.Warn("Writing cache entry failed", zap.String("key", key), zap.Error(err))
	}
}

func (p *Persistent) Close() error {
	p.mem.Close()
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing cache database: %w", err)
	}
	return nil
}
