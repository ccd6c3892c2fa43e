package e2e

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipkit/tests/testutil"
)

// runPipkit runs the CLI from source and returns its combined output and
// exit status. go run reports any failing status as 1.
func runPipkit(t *testing.T, env []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "./cmd/pipkit"}, args...)...)
	cmd.Dir = testutil.RepoRoot(t)
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode()
	}
	require.NoError(t, err, string(out))
	return string(out), 0
}

func TestRequirementsCommandE2E(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"base.txt": "six==1.16.0\n",
		"requirements.txt": "-r base.txt\n" +
			"--index-url https://mirror.example.com/simple\n" +
			"requests>=2 \\\n" +
			"    ; python_version >= \"3.8\"\n",
	})

	out, code := runPipkit(t, []string{"PIP_CONFIG_FILE=" + os.DevNull}, "requirements", "--no-color", "-r", filepath.Join(dir, "requirements.txt"))
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "# index: https://mirror.example.com/simple")
	assert.Contains(t, out, "six==1.16.0")
	assert.Contains(t, out, "requests>=2")
}

func TestCheckCommandE2E(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"installed.yaml": "distributions:\n" +
			"  - name: pkga\n" +
			"    version: \"1.0\"\n" +
			"    requires: [\"pkgb>=2\"]\n" +
			"  - name: pkgb\n" +
			"    version: \"1.0\"\n",
	})

	out, code := runPipkit(t, nil, "check", "--no-color", "--snapshot", filepath.Join(dir, "installed.yaml"))
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "pkga 1.0 has requirement pkgb>=2, but you have pkgb 1.0.")
}

func TestConfigCommandE2E(t *testing.T) {
	configHome := t.TempDir()
	env := []string{"XDG_CONFIG_HOME=" + configHome}

	_, code := runPipkit(t, env, "config", "set", "global.timeout", "60")
	require.Equal(t, 0, code)
	require.FileExists(t, filepath.Join(configHome, "pip", "pip.conf"))

	out, code := runPipkit(t, env, "config", "get", "global.timeout")
	require.Equal(t, 0, code, out)
	assert.Equal(t, "60", strings.TrimSpace(out))

	out, code = runPipkit(t, env, "--no-color", "search")
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "ERROR: Missing required argument (search query).")
}
