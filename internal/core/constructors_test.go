package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallReqFromLine_Specifier(t *testing.T) {
	ireq, err := InstallReqFromLine(context.Background(), "SomeProject>=1.0", LineOptions{ComesFrom: "-r reqs.txt (line 1)"})
	require.NoError(t, err)
	require.NotNil(t, ireq.Req)
	assert.Equal(t, "SomeProject", ireq.Name())
	assert.Equal(t, ">=1.0", ireq.Req.Specifier)
	assert.Nil(t, ireq.Link)
	assert.Equal(t, "SomeProject>=1.0 (from -r reqs.txt (line 1))", ireq.String())
}

func TestInstallReqFromLine_Markers(t *testing.T) {
	ireq, err := InstallReqFromLine(context.Background(), "pkg==1.0 ; python_version < '3'", LineOptions{})
	require.NoError(t, err)
	assert.Equal(t, `python_version < "3"`, ireq.Markers)

	ok, err := MatchMarkers(ireq, DefaultMarkerEnvironment())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstallReqFromLine_URLs(t *testing.T) {
	t.Run("egg fragment names the requirement", func(t *testing.T) {
		ireq, err := InstallReqFromLine(context.Background(), "https://example.com/pkg-1.0.tar.gz#egg=pkg", LineOptions{})
		require.NoError(t, err)
		require.NotNil(t, ireq.Link)
		assert.Equal(t, "pkg", ireq.Name())
	})

	t.Run("wheel filename names the requirement", func(t *testing.T) {
		ireq, err := InstallReqFromLine(context.Background(), "https://example.com/simple_pkg-1.0-py3-none-any.whl", LineOptions{})
		require.NoError(t, err)
		require.NotNil(t, ireq.Req)
		assert.Equal(t, "simple-pkg", ireq.Req.Name)
		assert.Equal(t, "==1.0", ireq.Req.Specifier)
	})

	t.Run("url marker needs a spaced separator", func(t *testing.T) {
		ireq, err := InstallReqFromLine(context.Background(), `https://example.com/pkg.zip#egg=pkg; sys_platform == "win32"`, LineOptions{})
		require.NoError(t, err)
		assert.Equal(t, `sys_platform == "win32"`, ireq.Markers)
		assert.Equal(t, "https://example.com/pkg.zip#egg=pkg", ireq.Link.URL)
	})
}

func TestInstallReqFromLine_LocalDirectory(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "setup.py"), []byte("from setuptools import setup\n"), 0o644))

	ireq, err := InstallReqFromLine(context.Background(), project+"[extra1]", LineOptions{})
	require.NoError(t, err)
	require.NotNil(t, ireq.Link)
	assert.Equal(t, PathToURL(project), ireq.Link.URL)
	assert.Equal(t, []string{"extra1"}, ireq.Extras)
	assert.Nil(t, ireq.Req)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	_, err = InstallReqFromLine(context.Background(), empty, LineOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not installable")
}

func TestInstallReqFromLine_InvalidHints(t *testing.T) {
	t.Run("single equals", func(t *testing.T) {
		_, err := InstallReqFromLine(context.Background(), "pkg=1.0", LineOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid requirement: 'pkg=1.0'")
		assert.Contains(t, err.Error(), "= is not a valid operator. Did you mean == ?")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := InstallReqFromLine(context.Background(), "./missing/req", LineOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "It looks like a path. File './missing/req' does not exist.")
	})

	t.Run("requirements file", func(t *testing.T) {
		reqs := filepath.Join(t.TempDir(), "requirements.txt")
		require.NoError(t, os.WriteFile(reqs, []byte("# pinned\nrequests==2.31.0\n"), 0o644))
		_, err := InstallReqFromLine(context.Background(), reqs, LineOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "It does exist.")
		assert.Contains(t, err.Error(), "use the '-r' flag")
	})
}

func TestParseEditable(t *testing.T) {
	t.Run("vcs url", func(t *testing.T) {
		name, url, extras, err := ParseEditable("git+https://github.com/pypa/pip.git#egg=pip")
		require.NoError(t, err)
		assert.Equal(t, "pip", name)
		assert.Equal(t, "git+https://github.com/pypa/pip.git#egg=pip", url)
		assert.Nil(t, extras)
	})

	t.Run("bare backend scheme gets prefixed", func(t *testing.T) {
		_, url, _, err := ParseEditable("git://github.com/pypa/pip.git#egg=pip")
		require.NoError(t, err)
		assert.Equal(t, "git+git://github.com/pypa/pip.git#egg=pip", url)
	})

	t.Run("local project with extras", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\n"), 0o644))
		name, url, extras, err := ParseEditable(dir + "[Security]")
		require.NoError(t, err)
		assert.Empty(t, name)
		assert.Equal(t, PathToURL(dir), url)
		assert.Equal(t, []string{"security"}, extras)
	})

	errorsByInput := map[string]string{
		"https://example.com/pkg":            "should either be a path to a local project or a VCS url beginning with svn+, git+, hg+, or bzr+",
		"foo+https://example.com/pkg":        "For --editable=foo+https://example.com/pkg only",
		"git+https://github.com/pypa/pip.git": "Could not detect requirement name for 'git+https://github.com/pypa/pip.git'",
	}
	for input, msg := range errorsByInput {
		t.Run(input, func(t *testing.T) {
			_, _, _, err := ParseEditable(input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), msg)
		})
	}
}

func TestInstallReqFromEditable(t *testing.T) {
	ireq, err := InstallReqFromEditable("hg+https://hg.example.com/repo#egg=Repo", LineOptions{ComesFrom: "-r x (line 2)", Constraint: true})
	require.NoError(t, err)
	assert.True(t, ireq.Editable)
	assert.True(t, ireq.Constraint)
	assert.Equal(t, "Repo", ireq.Name())
	assert.True(t, IsVCSLink(*ireq.Link))
}
