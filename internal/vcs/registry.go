package vcs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pipkit/internal/ports"
)

// Registry indexes backends by name and URL scheme.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: map[string]Backend{}}
	for _, backend := range backends {
		r.Register(backend)
	}
	return r
}

// NewDefaultRegistry wires the four supported backends to the given
// collaborators. Either may be nil when only URL parsing is needed.
func NewDefaultRegistry(repo ports.GitRepositoryPort, exec ports.CommandExecutorPort) *Registry {
	return NewRegistry(NewGit(repo, exec), NewMercurial(exec), NewBazaar(), NewSubversion())
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry is a parse-only registry of the built-in backends.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewDefaultRegistry(nil, nil)
	})
	return defaultRegistry
}

func (r *Registry) Register(backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[backend.Name()] = backend
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, name)
}

func (r *Registry) Backend(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	backend, ok := r.backends[strings.ToLower(name)]
	return backend, ok
}

// BackendForScheme finds the backend owning scheme, e.g. "git+https".
func (r *Registry) BackendForScheme(scheme string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scheme = strings.ToLower(scheme)
	for _, backend := range r.backends {
		for _, candidate := range backend.Schemes() {
			if candidate == scheme {
				return backend, true
			}
		}
	}
	return nil, false
}

// BackendForURL picks the backend from the "vcs+" prefix of a URL.
func (r *Registry) BackendForURL(rawURL string) (Backend, bool) {
	scheme := SplitURL(rawURL).Scheme
	if backend, ok := r.BackendForScheme(scheme); ok {
		return backend, true
	}
	name, _, _ := strings.Cut(scheme, "+")
	return r.Backend(name)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var schemes []string
	for _, backend := range r.backends {
		schemes = append(schemes, backend.Schemes()...)
	}
	sort.Strings(schemes)
	return schemes
}

func (r *Registry) DirNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var dirs []string
	for _, backend := range r.backends {
		dirs = append(dirs, backend.DirName())
	}
	sort.Strings(dirs)
	return dirs
}

// BackendForLocation returns the backend whose metadata directory exists
// directly under dir.
func (r *Registry) BackendForLocation(dir string) (Backend, bool) {
	for _, name := range r.Names() {
		backend, _ := r.Backend(name)
		if info, err := os.Stat(filepath.Join(dir, backend.DirName())); err == nil && info.IsDir() {
			return backend, true
		}
	}
	return nil, false
}

// IsVCSScheme reports whether scheme belongs to a built-in backend.
func IsVCSScheme(scheme string) bool {
	_, ok := DefaultRegistry().BackendForScheme(scheme)
	return ok
}

func allSchemes() []string {
	var schemes []string
	for _, backend := range []Backend{NewGit(nil, nil), NewMercurial(nil), NewBazaar(), NewSubversion()} {
		schemes = append(schemes, backend.Schemes()...)
	}
	return schemes
}
