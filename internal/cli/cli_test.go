package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipkit/internal/adapters"
	"pipkit/internal/app"
	"pipkit/internal/core"
	"pipkit/internal/types"
)

type fakeSearchIndex struct {
	hits []types.SearchHit
}

func (f fakeSearchIndex) Search(_ context.Context, _ string, _ []string) ([]types.SearchHit, error) {
	return f.hits, nil
}

// runCLI executes the root command against service and returns stdout.
func runCLI(t *testing.T, service app.Service, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	color.NoColor = true
	previous := newAppService
	newAppService = func() app.Service { return service }
	t.Cleanup(func() {
		newAppService = previous
		viper.Reset()
	})

	var stdout bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeSnapshot(t *testing.T, dists []types.Distribution) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "installed.yaml")
	require.NoError(t, adapters.WriteDistributionSnapshot(path, dists))
	return path
}

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{"check", "search", "config", "requirements", "vcs"}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestRootCommandPersistentFlags(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"config", "log-level", "no-color", "isolated", "timeout", "retries"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := newCheckCommand()
	for _, name := range []string{"path", "prefix", "snapshot", "local", "skip", "install", "marker"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestRequirementsCommandFlags(t *testing.T) {
	cmd := newRequirementsCommand()
	for _, name := range []string{"requirement", "constraint", "index-url", "extra-index-url", "skip-regex", "require-hashes", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
	assert.Equal(t, "r", cmd.Flags().Lookup("requirement").Shorthand)
	assert.Equal(t, "c", cmd.Flags().Lookup("constraint").Shorthand)
}

func TestConfigAndVCSSubcommands(t *testing.T) {
	subcommands := func(cmd *cobra.Command) []string {
		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		return names
	}
	assert.ElementsMatch(t, []string{"list", "get", "set", "unset"}, subcommands(newConfigCommand()))
	assert.ElementsMatch(t, []string{"inspect", "resolve", "freeze"}, subcommands(newVCSCommand()))
}

// ---------- Command runs ----------

func TestCheckCommand(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		snapshot := writeSnapshot(t, []types.Distribution{
			{Name: "pkga", Version: "1.0", Requires: []string{"pkgb>=1.0"}},
			{Name: "pkgb", Version: "1.2"},
		})
		out, err := runCLI(t, app.Service{}, "check", "--snapshot", snapshot)
		require.NoError(t, err)
		assert.Equal(t, "No broken requirements found.\n", out)
	})

	t.Run("missing dependency exits with error status", func(t *testing.T) {
		snapshot := writeSnapshot(t, []types.Distribution{
			{Name: "pkga", Version: "1.0", Requires: []string{"pkgb>=1.0"}},
		})
		out, err := runCLI(t, app.Service{}, "check", "--snapshot", snapshot)
		require.Error(t, err)
		assert.Equal(t, exitError, exitCodeForError(err))
		assert.Contains(t, out, "pkga 1.0 requires pkgb, which is not installed.")
	})

	t.Run("marker override hides conditional requirement", func(t *testing.T) {
		snapshot := writeSnapshot(t, []types.Distribution{
			{Name: "pkga", Version: "1.0", Requires: []string{`pkgb; python_version < "3"`}},
		})
		out, err := runCLI(t, app.Service{}, "check", "--snapshot", snapshot, "--marker", "python_version=3.11")
		require.NoError(t, err)
		assert.Equal(t, "No broken requirements found.\n", out)
	})
}

func TestSearchCommand(t *testing.T) {
	installed := writeSnapshot(t, []types.Distribution{{Name: "testlib1", Version: "1.0.3"}})
	service := app.Service{
		SearchIndex: fakeSearchIndex{hits: []types.SearchHit{
			{Name: "testlib1", Summary: "Test library 1.", Version: "1.0.5"},
			{Name: "testlib1", Summary: "Test library 1.", Version: "1.0.3"},
			{Name: "testlib2", Summary: "Test library 2.", Version: "2.0.3"},
		}},
		Distributions: adapters.NewDistributionSnapshotAdapter(installed),
	}

	out, err := runCLI(t, service, "search", "testlib")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "testlib1 (1.0.5)"), lines[0])
	assert.Equal(t, "  INSTALLED: 1.0.3", lines[1])
	assert.Equal(t, "  LATEST:    1.0.5", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "testlib2 (2.0.3)"), lines[3])
}

func TestSearchCommandExitStatuses(t *testing.T) {
	_, err := runCLI(t, app.Service{SearchIndex: fakeSearchIndex{}}, "search", "--installed=false", "nothing-matches")
	require.Error(t, err)
	assert.Equal(t, exitNoMatches, exitCodeForError(err))

	_, err = runCLI(t, app.Service{SearchIndex: fakeSearchIndex{}}, "search")
	require.Error(t, err)
	assert.Equal(t, exitError, exitCodeForError(err))
	assert.Equal(t, "Missing required argument (search query).", errorMessage(err))
}

func newConfigService(t *testing.T) (app.Service, core.ConfigLocations) {
	t.Helper()
	dir := t.TempDir()
	locations := core.ConfigLocations{
		Site: []string{filepath.Join(dir, "etc", "pip.conf")},
		User: []string{filepath.Join(dir, "home", ".config", "pip", "pip.conf")},
	}
	return app.Service{
		ConfigFiles:     adapters.NewINIConfigFileAdapter(),
		ConfigLocations: func() core.ConfigLocations { return locations },
		Environ:         func() []string { return nil },
	}, locations
}

func TestConfigCommand(t *testing.T) {
	service, locations := newConfigService(t)

	_, err := runCLI(t, service, "config", "get", "test.blah")
	require.Error(t, err)
	assert.Equal(t, exitError, exitCodeForError(err))

	for _, pair := range [][2]string{{"test.listing-beta", "2"}, {"test.listing-alpha", "1"}} {
		_, err = runCLI(t, service, "config", "set", pair[0], pair[1])
		require.NoError(t, err)
	}
	assert.FileExists(t, locations.User[0])

	out, err := runCLI(t, service, "config", "get", "test.listing-alpha")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = runCLI(t, service, "config", "list")
	require.NoError(t, err)
	assert.Equal(t, "test.listing-alpha='1'\ntest.listing-beta='2'\n", out)

	_, err = runCLI(t, service, "config", "--user", "unset", "test.listing-beta")
	require.NoError(t, err)
	out, err = runCLI(t, service, "config", "list")
	require.NoError(t, err)
	assert.Equal(t, "test.listing-alpha='1'\n", out)
}

func TestConfigCommandErrors(t *testing.T) {
	service, _ := newConfigService(t)

	_, err := runCLI(t, service, "config")
	require.Error(t, err)
	assert.Equal(t, exitError, exitCodeForError(err))

	_, err = runCLI(t, service, "config", "--user", "--global", "set", "global.timeout", "10")
	require.Error(t, err)
	assert.Equal(t, "Need exactly one file to operate upon (--user, --venv, --global) to perform.", errorMessage(err))
}

func TestRequirementsCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"--index-url https://mirror.example.com/simple\n"+
			"requests==2.0\n"+
			"#skipme\n"+
			"six>=1.16 ; python_version >= \"3\"\n"), 0o644))
	service := app.Service{Requirements: adapters.NewRequirementsSourceAdapter(adapters.HTTPOptions{})}

	out, err := runCLI(t, service, "requirements", "-r", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# index: https://mirror.example.com/simple", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "requests==2.0"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "six>=1.16"), lines[2])

	out, err = runCLI(t, service, "requirements", "-r", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "index_urls:\n  - https://mirror.example.com/simple\n")
	assert.Contains(t, out, "requirement: requests==2.0")
	assert.Contains(t, out, "markers:")

	_, err = runCLI(t, service, "requirements", "-r", path, "--format", "toml")
	require.Error(t, err)
	assert.Equal(t, exitError, exitCodeForError(err))
}

func TestVCSInspectCommand(t *testing.T) {
	out, err := runCLI(t, app.Service{}, "vcs", "inspect", "git+https://user@example.com/repo.git@v1.0#egg=repo&subdirectory=src")
	require.NoError(t, err)
	assert.Contains(t, out, "backend:      git\n")
	assert.Contains(t, out, "url:          https://user@example.com/repo.git\n")
	assert.Contains(t, out, "revision:     v1.0\n")
	assert.Contains(t, out, "rev-args:     v1.0\n")
	assert.Contains(t, out, "egg:          repo\n")
	assert.Contains(t, out, "subdirectory: src\n")

	_, err = runCLI(t, app.Service{}, "vcs", "inspect", "https://example.com/repo.git")
	require.Error(t, err)
	assert.Equal(t, exitError, exitCodeForError(err))
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveStrings(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		values   []string
		expected []string
	}{
		{
			name:     "nil cmd with values returns values",
			cmd:      nil,
			values:   []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "nil cmd empty returns empty",
			cmd:      nil,
			values:   nil,
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStrings(tt.cmd, tt.values, "test_key", "test-flag")
			if len(tt.expected) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("test_key", "from-config")
	viper.Set("test_map", map[string]string{"python_version": "3.8"})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("test-flag", "", "test flag")
	cmd.Flags().StringToString("test-map", nil, "test map")
	assert.Equal(t, "from-config", resolveString(cmd, "", "test_key", "test-flag"))
	assert.Equal(t, map[string]string{"python_version": "3.8"}, resolveStringMap(cmd, nil, "test_map", "test-map"))

	require.NoError(t, cmd.Flags().Set("test-flag", "explicit"))
	assert.Equal(t, "explicit", resolveString(cmd, "explicit", "test_key", "test-flag"))
}

func TestResolveBool(t *testing.T) {
	got := resolveBool(nil, true, "test_key", "test-flag")
	assert.True(t, got)

	got = resolveBool(nil, false, "test_key", "test-flag")
	assert.False(t, got)
}

func TestResolveInt(t *testing.T) {
	got := resolveInt(nil, 42, "test_key", "test-flag")
	assert.Equal(t, 42, got)
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
}

func TestFlagChangedAfterSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil",
			err:      nil,
			expected: exitSuccess,
		},
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: exitError,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("file missing"),
			expected: exitError,
		},
		{
			name: "internal error",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("boom"),
			expected: exitError,
		},
		{
			name:     "no matches",
			err:      exitStatus{code: exitNoMatches},
			expected: 23,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: exitUnknownError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "errbuilder with msg",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("something broke"),
			expected: "something broke",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPrintErrorWithoutColor(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printError(&buf, errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("Missing required argument (search query)."))
	assert.Equal(t, "ERROR: Missing required argument (search query).\n", buf.String())
}
