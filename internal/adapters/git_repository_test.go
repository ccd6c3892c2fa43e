package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T) (*gogit.Repository, string, plumbing.Hash) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "setup.py"), []byte("# setup\n"), 0o600))
	_, err = wt.Add("sub/setup.py")
	require.NoError(t, err)
	hash, err := wt.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return repo, dir, hash
}

func TestGitRepositoryAdapter_LocalRefs(t *testing.T) {
	repo, dir, hash := initGitRepo(t)
	_, err := repo.CreateTag("v1.0", hash, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference("refs/remotes/origin/develop", hash)))

	refs, err := NewGitRepositoryAdapter().LocalRefs(context.Background(), dir)
	require.NoError(t, err)

	byName := map[string]string{}
	for _, ref := range refs {
		byName[ref.Name] = ref.SHA
	}
	assert.Equal(t, hash.String(), byName["refs/tags/v1.0"])
	assert.Equal(t, hash.String(), byName["refs/remotes/origin/develop"])
	assert.NotContains(t, byName, "HEAD")
}

func TestGitRepositoryAdapter_Revision(t *testing.T) {
	_, dir, hash := initGitRepo(t)
	adapter := NewGitRepositoryAdapter()

	sha, err := adapter.Revision(context.Background(), filepath.Join(dir, "sub"), "HEAD")
	require.NoError(t, err)
	assert.Equal(t, hash.String(), sha)

	_, err = adapter.Revision(context.Background(), dir, "no-such-branch")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestGitRepositoryAdapter_OriginURLAndRoot(t *testing.T) {
	repo, dir, _ := initGitRepo(t)
	adapter := NewGitRepositoryAdapter()

	_, err := adapter.OriginURL(context.Background(), dir)
	require.Error(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "upstream", URLs: []string{"https://example.com/upstream.git"}})
	require.NoError(t, err)
	url, err := adapter.OriginURL(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/upstream.git", url)

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"https://example.com/project.git"}})
	require.NoError(t, err)
	url, err = adapter.OriginURL(context.Background(), filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/project.git", url)

	root, err := adapter.RootDir(context.Background(), filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestGitRepositoryAdapter_NotARepository(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGitRepositoryAdapter().LocalRefs(context.Background(), dir)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
