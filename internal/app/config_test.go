package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipkit/internal/adapters"
	"pipkit/internal/core"
	"pipkit/internal/types"
)

func newConfigService(t *testing.T, environ ...string) (Service, core.ConfigLocations) {
	t.Helper()
	dir := t.TempDir()
	locations := core.ConfigLocations{
		Site: []string{filepath.Join(dir, "etc", "pip.conf")},
		User: []string{filepath.Join(dir, "home", ".config", "pip", "pip.conf")},
	}
	return Service{
		ConfigFiles:     adapters.NewINIConfigFileAdapter(),
		ConfigLocations: func() core.ConfigLocations { return locations },
		Environ:         func() []string { return environ },
	}, locations
}

func TestConfigApp_SetGetListUnset(t *testing.T) {
	service, locations := newConfigService(t, "PIP_TIMEOUT=60")
	ctx := context.Background()
	userFile := locations.User[0]

	edited, err := service.ConfigSet(ctx, ConfigRequest{LoadOnly: types.ConfigKindUser, Key: "global.index-url", Value: "https://mirror.example.com/simple"})
	require.NoError(t, err)
	assert.Equal(t, userFile, edited.File)
	data, err := os.ReadFile(userFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "index-url")

	got, err := service.ConfigGet(ctx, ConfigRequest{Key: "global.index-url"})
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/simple", got.Value)

	listed, err := service.ConfigList(ctx, ConfigRequest{})
	require.NoError(t, err)
	assert.Equal(t, []ConfigItem{
		{Key: ":env:.timeout", Value: "60"},
		{Key: "global.index-url", Value: "https://mirror.example.com/simple"},
	}, listed.Items)

	isolated, err := service.ConfigList(ctx, ConfigRequest{Isolated: true})
	require.NoError(t, err)
	assert.Empty(t, isolated.Items)

	_, err = service.ConfigUnset(ctx, ConfigRequest{LoadOnly: types.ConfigKindUser, Key: "global.index-url"})
	require.NoError(t, err)
	_, err = service.ConfigGet(ctx, ConfigRequest{Key: "global.index-url"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "No such key - global.index-url")
}

func TestConfigApp_Errors(t *testing.T) {
	service, _ := newConfigService(t)
	ctx := context.Background()

	t.Run("set without file", func(t *testing.T) {
		_, err := service.ConfigSet(ctx, ConfigRequest{Key: "global.timeout", Value: "1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Needed a specific file to be modifying.")
	})

	t.Run("invalid load only", func(t *testing.T) {
		_, err := service.ConfigList(ctx, ConfigRequest{LoadOnly: "system"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Got invalid value for load_only")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := service.ConfigGet(ctx, ConfigRequest{})
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	})

	t.Run("unset unknown key", func(t *testing.T) {
		_, err := service.ConfigUnset(ctx, ConfigRequest{LoadOnly: types.ConfigKindGlobal, Key: "global.nope"})
		require.Error(t, err)
	})
}
