// Package configtest sets up isolated pip configurations for tests.
package configtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pipkit/internal/adapters"
	"pipkit/internal/core"
	"pipkit/internal/types"
)

// Fixture owns a Configuration whose file locations live under a temp
// directory, so the host's pip.conf files are never read.
type Fixture struct {
	T             *testing.T
	Configuration *core.Configuration
	Dir           string
}

// New returns a non-isolated Configuration with no load-only variant.
func New(t *testing.T) *Fixture {
	t.Helper()
	return NewWithLoadOnly(t, "")
}

func NewWithLoadOnly(t *testing.T, loadOnly types.ConfigKind) *Fixture {
	t.Helper()
	dir := t.TempDir()
	cfg, err := core.NewConfiguration(adapters.NewINIConfigFileAdapter(), false, loadOnly)
	require.NoError(t, err)
	cfg.Locations = core.ConfigLocations{
		Site: []string{filepath.Join(dir, "site", "pip.conf")},
		User: []string{
			filepath.Join(dir, "home", ".pip", "pip.conf"),
			filepath.Join(dir, "home", ".config", "pip", "pip.conf"),
		},
	}
	for _, entry := range os.Environ() {
		key, _, _ := strings.Cut(entry, "=")
		if strings.HasPrefix(key, "PIP_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	return &Fixture{T: t, Configuration: cfg, Dir: dir}
}

// Patch overlays values onto the given variant when the configuration
// is loaded.
func (f *Fixture) Patch(kind types.ConfigKind, values map[string]string) {
	f.Configuration.Overlay(kind, values)
}

// TempFile writes dedented contents to a new INI file and returns its path.
func (f *Fixture) TempFile(contents string) string {
	f.T.Helper()
	file, err := os.CreateTemp(f.Dir, "pip_*_config.ini")
	require.NoError(f.T, err)
	_, err = file.WriteString(strings.TrimLeft(Dedent(contents), "\n"))
	require.NoError(f.T, err)
	require.NoError(f.T, file.Close())
	return file.Name()
}

// Dedent removes the whitespace prefix shared by every non-blank line.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
