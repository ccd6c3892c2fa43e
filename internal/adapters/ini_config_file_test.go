package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipkit/internal/types"
)

func TestINIConfigFileAdapter_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pip.conf")
	content := `[DEFAULT]
timeout = 30

[global]
index-url = https://example.com/simple
Find-Links =
    https://one.example.com
    https://two.example.com

[install]
no-compile = yes ; trailing comment
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	file, err := NewINIConfigFileAdapter().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
	assert.Equal(t, "https://example.com/simple", file.Sections["global"]["index-url"])
	assert.Equal(t, "30", file.Sections["global"]["timeout"])
	assert.Equal(t, "30", file.Sections["install"]["timeout"])
	assert.Equal(t, "yes", file.Sections["install"]["no-compile"])
	assert.Contains(t, file.Sections["global"]["find-links"], "https://two.example.com")
	assert.NotContains(t, file.Sections, "DEFAULT")
}

func TestINIConfigFileAdapter_ReadMissingFile(t *testing.T) {
	file, err := NewINIConfigFileAdapter().Read(context.Background(), filepath.Join(t.TempDir(), "missing.conf"))
	require.NoError(t, err)
	assert.Empty(t, file.Sections)
}

func TestINIConfigFileAdapter_ReadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pip.conf")
	require.NoError(t, os.WriteFile(path, []byte("[global\nkey = value\n"), 0o644))

	_, err := NewINIConfigFileAdapter().Read(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Configuration file could not be loaded.")
}

func TestINIConfigFileAdapter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pip.conf")
	adapter := NewINIConfigFileAdapter()

	file := types.NewConfigFile(path)
	file.Sections["global"] = map[string]string{"timeout": "60", "index-url": "https://example.com/simple"}
	file.Sections["install"] = map[string]string{"user": "true"}
	require.NoError(t, adapter.Write(context.Background(), file))

	reread, err := adapter.Read(context.Background(), path)
	require.NoError(t, err)
	if diff := cmp.Diff(file.Sections, reread.Sections); diff != "" {
		t.Fatalf("unexpected sections (-want +got):\n%s", diff)
	}

	delete(reread.Sections, "install")
	delete(reread.Sections["global"], "timeout")
	require.NoError(t, adapter.Write(context.Background(), reread))

	final, err := adapter.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"global": {"index-url": "https://example.com/simple"},
	}, final.Sections)
}
