// Package storage provides the small string key-value store that holds
// favorites and the theme preference.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend names a KV implementation.
type Backend string

const (
	BoltBackend   Backend = "bolt"
	SQLiteBackend Backend = "sqlite"
	MemoryBackend Backend = "memory"
)

// KV is an opaque string store. Get reports ok=false for a missing key.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// DefaultDir returns the per-user directory the database files live in.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config dir: %w", err)
	}
	return filepath.Join(configDir, "fygallery"), nil
}

// Open opens the KV for backend at path. An empty path uses the default
// file name inside DefaultDir. The memory backend ignores path.
func Open(backend Backend, path string) (KV, error) {
	if backend == MemoryBackend {
		return NewMemory(), nil
	}
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		name := "fygallery.db"
		if backend == SQLiteBackend {
			name = "fygallery.sqlite"
		}
		path = filepath.Join(dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	switch backend {
	case BoltBackend, "":
		return OpenBolt(path)
	case SQLiteBackend:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Memory is a KV that lives only as long as the process.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
	// FailWrites makes Set fail. Tests use it to exercise write-failure paths.
	FailWrites bool
	// FailReads makes Get fail.
	FailReads bool
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return "", false, fmt.Errorf("reading %s: storage unavailable", key)
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("writing %s: storage unavailable", key)
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }
