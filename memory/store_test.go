package memory

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(day string) func() time.Time {
	t, _ := time.Parse("2006-01-02", day)
	return func() time.Time { return t }
}

func TestLoadEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)

	missing := NewStore(filepath.Join(t.TempDir(), "nope"))
	got, err = missing.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "memories")
	s := NewStore(dir, WithClock(fixedClock("2024-03-05")))

	require.NoError(t, s.Save("first."))
	require.NoError(t, s.Save("second."))

	data, err := os.ReadFile(filepath.Join(dir, "20240305.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first.second.", string(data))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Prefix+"first.second.", got)
}

func TestLoadOrdersFilesByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240102.txt"), []byte("B"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240101.txt"), []byte("A"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	got, err := NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, Prefix+"AB", got)
}

func TestConcurrentSave(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, WithClock(fixedClock("2024-01-01")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save("x"))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(dir, "20240101.txt"))
	require.NoError(t, err)
	assert.Len(t, data, 20)
}
