// Package probe measures general-purpose compressors over a byte buffer.
package probe

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/pcapbench/internal/core"
)

// Backend is a black-box compressor.
type Backend interface {
	// Name is the method name used in reports and metrics.
	Name() string
	// DefaultLevel is used when the caller has no preference.
	DefaultLevel() int
	// Compress returns the compressed form of data at the given level.
	Compress(data []byte, level int) ([]byte, error)
}

var (
	mu       sync.RWMutex
	backends = make(map[string]Backend)
)

func init() {
	Register(Gzip{})
	Register(Zstd{})
}

// Register adds a backend, replacing any previous backend with the same name.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownBackend, name)
	}
	return b, nil
}

// Names returns the registered backend names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
