package adapters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipkit/internal/types"
)

type fakeExecutor struct {
	output   string
	err      error
	lookErr  error
	commands [][]string
}

func (f *fakeExecutor) LookPath(name string) (string, error) {
	if f.lookErr != nil {
		return "", f.lookErr
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeExecutor) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	f.commands = append(f.commands, append([]string{name}, args...))
	return []byte(f.output), f.err
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newSitePackages(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "requests-2.31.0.dist-info", "METADATA"),
		"Metadata-Version: 2.1\nName: requests\nVersion: 2.31.0\n"+
			"Requires-Dist: idna (<4,>=2.5)\nRequires-Dist: PySocks (!=1.5.7,>=1.5.6) ; extra == 'socks'\n\nLong description.\n")
	writeFile(t, filepath.Join(dir, "idna-3.6.dist-info", "METADATA"),
		"Metadata-Version: 2.1\nName: idna\nVersion: 3.6\n")
	writeFile(t, filepath.Join(dir, "legacy-1.0.egg-info", "PKG-INFO"),
		"Metadata-Version: 1.0\nName: legacy\nVersion: 1.0\n")
	writeFile(t, filepath.Join(dir, "legacy-1.0.egg-info", "requires.txt"),
		"six>=1.0\n\n[:python_version < \"3\"]\nfutures\n\n[test]\npytest\n")
	writeFile(t, filepath.Join(dir, "broken.dist-info", "METADATA"), "Version: 1.0\n")
	writeFile(t, filepath.Join(dir, "module.py"), "")
	return dir
}

func distNames(dists []types.Distribution) []string {
	names := make([]string, 0, len(dists))
	for _, dist := range dists {
		names = append(names, dist.Name)
	}
	sort.Strings(names)
	return names
}

func TestSitePackagesAdapter_Distributions(t *testing.T) {
	dir := newSitePackages(t)
	adapter := NewSitePackagesAdapter([]string{dir}, "", nil)

	dists, err := adapter.Distributions(context.Background(), types.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"idna", "legacy", "requests"}, distNames(dists))

	byName := map[string]types.Distribution{}
	for _, dist := range dists {
		byName[dist.Name] = dist
	}
	assert.Equal(t, "2.31.0", byName["requests"].Version)
	assert.Equal(t, []string{
		"idna (<4,>=2.5)",
		"PySocks (!=1.5.7,>=1.5.6) ; extra == 'socks'",
	}, byName["requests"].Requires)
	assert.Equal(t, []string{"six>=1.0", `futures; python_version < "3"`}, byName["legacy"].Requires)
	assert.Equal(t, dir, byName["idna"].Location)
	assert.True(t, byName["idna"].Local)
}

func TestSitePackagesAdapter_FirstPathWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "six-1.16.0.dist-info", "METADATA"), "Name: six\nVersion: 1.16.0\n")
	writeFile(t, filepath.Join(second, "Six-1.10.0.dist-info", "METADATA"), "Name: Six\nVersion: 1.10.0\n")

	adapter := NewSitePackagesAdapter([]string{first, filepath.Join(first, "missing"), second}, "", nil)
	dists, err := adapter.Distributions(context.Background(), types.ListOptions{})
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.Equal(t, "1.16.0", dists[0].Version)
}

func TestSitePackagesAdapter_EggLink(t *testing.T) {
	dir := t.TempDir()
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "devpkg.egg-info", "PKG-INFO"), "Name: devpkg\nVersion: 0.1.dev0\n")
	writeFile(t, filepath.Join(project, "devpkg.egg-info", "requires.txt"), "click\n")
	writeFile(t, filepath.Join(dir, "devpkg.egg-link"), project+"\n.\n")

	adapter := NewSitePackagesAdapter([]string{dir}, "", nil)
	dists, err := adapter.Distributions(context.Background(), types.ListOptions{})
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.True(t, dists[0].Editable)
	assert.Equal(t, project, dists[0].Location)
	assert.Equal(t, []string{"click"}, dists[0].Requires)
}

func TestSitePackagesAdapter_ListOptions(t *testing.T) {
	venv := t.TempDir()
	inside := filepath.Join(venv, "lib", "site-packages")
	outside := t.TempDir()
	writeFile(t, filepath.Join(inside, "local_pkg-1.0.dist-info", "METADATA"), "Name: local_pkg\nVersion: 1.0\n")
	writeFile(t, filepath.Join(inside, "pip-24.0.dist-info", "METADATA"), "Name: pip\nVersion: 24.0\n")
	writeFile(t, filepath.Join(outside, "system-2.0.dist-info", "METADATA"), "Name: system\nVersion: 2.0\n")

	adapter := NewSitePackagesAdapter([]string{inside, outside}, venv, nil)

	t.Run("local only", func(t *testing.T) {
		dists, err := adapter.Distributions(context.Background(), types.ListOptions{LocalOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"local_pkg", "pip"}, distNames(dists))
	})

	t.Run("skip by canonical name", func(t *testing.T) {
		dists, err := adapter.Distributions(context.Background(), types.ListOptions{Skip: []string{"Local.Pkg", "PIP"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"system"}, distNames(dists))
	})
}

func TestSitePackagesAdapter_DiscoversSysPath(t *testing.T) {
	dir := newSitePackages(t)
	exec := &fakeExecutor{output: "/usr/lib/python312.zip\n" + dir + "\n"}
	adapter := NewSitePackagesAdapter(nil, "", exec)

	dists, err := adapter.Distributions(context.Background(), types.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, dists, 3)
	require.Len(t, exec.commands, 1)
	assert.Equal(t, []string{"python3", "-c", sysPathScript}, exec.commands[0])
}

func TestSitePackagesAdapter_DiscoveryErrors(t *testing.T) {
	t.Run("no paths and no executor", func(t *testing.T) {
		_, err := NewSitePackagesAdapter(nil, "", nil).Distributions(context.Background(), types.ListOptions{})
		require.Error(t, err)
	})

	t.Run("interpreter missing", func(t *testing.T) {
		exec := &fakeExecutor{lookErr: errors.New("not found")}
		_, err := NewSitePackagesAdapter(nil, "", exec).Distributions(context.Background(), types.ListOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "python interpreter not found")
	})

	t.Run("interpreter fails", func(t *testing.T) {
		exec := &fakeExecutor{output: "boom", err: errors.New("exit status 1")}
		_, err := NewSitePackagesAdapter(nil, "", exec).Distributions(context.Background(), types.ListOptions{})
		require.Error(t, err)
	})
}

func TestReadEggRequires(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requires.txt")
	writeFile(t, path, "# comment\nA\n[extra1]\nB\n[extra2:sys_platform == \"win32\"]\nC\n[:sys_platform == \"linux\"]\nD\n")
	assert.Equal(t, []string{"A", `D; sys_platform == "linux"`}, readEggRequires(path))
	assert.Nil(t, readEggRequires(filepath.Join(dir, "missing.txt")))
}
