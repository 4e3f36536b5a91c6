// Package memory keeps the agent's experience notes as dated text files
package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Prefix introduces loaded memory in prompts
const Prefix = "Please refer to the following past experiences: "

// Store reads and appends memory files in one directory
type Store struct {
	dir string
	now func() time.Time
	mu  sync.RWMutex
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used to name save files
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store rooted at dir
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dir returns the memory directory
func (s *Store) Dir() string { return s.dir }

// Load concatenates every file in name order. An empty or missing
// directory yields "".
func (s *Store) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read memory dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sb strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return "", fmt.Errorf("read memory file %s: %w", e.Name(), err)
		}
		sb.Write(data)
	}
	if sb.Len() == 0 {
		return "", nil
	}
	return Prefix + sb.String(), nil
}

// Save appends text to today's file (YYYYMMDD.txt)
func (s *Store) Save(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	name := s.now().Format("20060102") + ".txt"
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open memory file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("write memory file: %w", err)
	}
	log.Printf("[Memory] saved %d bytes to %s", len(text), name)
	return nil
}
