// Package kv provides a fast key-value store backed by BadgerDB, used to
// cache tool results between turns.
package kv

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// ErrNotFound is returned by Get for missing or expired keys
var ErrNotFound = errors.New("kv: key not found")

// ErrClosed is returned after Close
var ErrClosed = errors.New("kv: store is closed")

type KV struct {
	db       *badger.DB
	opts     badger.Options
	closed   bool
	closedMu sync.RWMutex
}

// Options for KV store
type Options struct {
	Dir           string // Data directory
	SyncWrites    bool   // Sync writes to disk
	Compression   bool   // Enable compression
	MemoryMode    bool   // In-memory only (no persistence)
	ValueLogMaxMB int64  // Max value log size in MB
}

// DefaultOptions returns default options. An empty dir selects memory mode.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:           dir,
		SyncWrites:    false, // Async for performance
		Compression:   true,
		MemoryMode:    dir == "",
		ValueLogMaxMB: 64,
	}
}

// Open opens a KV store
func Open(opt Options) (*KV, error) {
	if !opt.MemoryMode && opt.Dir == "" {
		return nil, fmt.Errorf("kv: dir is required unless memory mode is set")
	}

	dir := opt.Dir
	if opt.MemoryMode {
		dir = ""
	}
	opts := badger.DefaultOptions(dir)
	opts.SyncWrites = opt.SyncWrites
	opts.Logger = nil

	if opt.Compression && !opt.MemoryMode {
		opts.Compression = options.ZSTD
	}

	if !opt.MemoryMode && opt.ValueLogMaxMB > 0 {
		opts.ValueLogFileSize = opt.ValueLogMaxMB * 1024 * 1024
	}

	if opt.MemoryMode {
		opts.InMemory = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger failed: %w", err)
	}

	log.Printf("[KV] Opened: %s (memory: %v)", opt.Dir, opt.MemoryMode)
	return &KV{db: db, opts: opts}, nil
}

// Close closes the KV store
func (k *KV) Close() error {
	k.closedMu.Lock()
	defer k.closedMu.Unlock()

	if k.closed {
		return nil
	}

	k.closed = true
	return k.db.Close()
}

// SetWithTTL sets a key-value pair that expires after ttl; zero means never
func (k *KV) SetWithTTL(key, value string, ttl time.Duration) error {
	k.closedMu.RLock()
	defer k.closedMu.RUnlock()

	if k.closed {
		return ErrClosed
	}

	return k.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get gets a value by key
func (k *KV) Get(key string) (string, error) {
	k.closedMu.RLock()
	defer k.closedMu.RUnlock()

	if k.closed {
		return "", ErrClosed
	}

	var result string
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		result = string(val)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	return result, err
}

// Keys returns all live keys with the given prefix
func (k *KV) Keys(prefix string) ([]string, error) {
	k.closedMu.RLock()
	defer k.closedMu.RUnlock()

	if k.closed {
		return nil, ErrClosed
	}

	var keys []string
	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// ===== Tool result cache =====

// PrefixCache namespaces cached tool results
const PrefixCache = "cache:"

// CacheKey builds the key for a tool invocation. The input is hashed so
// arbitrary user text stays a short, fixed-size key.
func CacheKey(tool, input string) string {
	sum := sha256.Sum256([]byte(input))
	return PrefixCache + tool + ":" + hex.EncodeToString(sum[:16])
}

// Cache stores tool results with a fixed TTL
type Cache struct {
	kv  *KV
	ttl time.Duration
}

// NewCache wraps a store. A nil store yields a cache that never hits.
func NewCache(store *KV, ttl time.Duration) *Cache {
	return &Cache{kv: store, ttl: ttl}
}

// Lookup returns the cached result for a tool input
func (c *Cache) Lookup(tool, input string) (string, bool) {
	if c == nil || c.kv == nil || c.ttl <= 0 {
		return "", false
	}
	v, err := c.kv.Get(CacheKey(tool, input))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[KV] cache lookup %s failed: %v", tool, err)
		}
		return "", false
	}
	return v, true
}

// Len counts the cached results that have not expired
func (c *Cache) Len() int {
	if c == nil || c.kv == nil {
		return 0
	}
	keys, err := c.kv.Keys(PrefixCache)
	if err != nil {
		log.Printf("[KV] cache count failed: %v", err)
		return 0
	}
	return len(keys)
}

// Store records a tool result
func (c *Cache) Store(tool, input, result string) {
	if c == nil || c.kv == nil || c.ttl <= 0 {
		return
	}
	if err := c.kv.SetWithTTL(CacheKey(tool, input), result, c.ttl); err != nil {
		log.Printf("[KV] cache store %s failed: %v", tool, err)
	}
}
