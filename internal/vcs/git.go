package vcs

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/ports"
	"pipkit/internal/types"
)

var gitVersionRe = regexp.MustCompile(`^git version (\S+)`)

type Git struct {
	base
	Repo ports.GitRepositoryPort
	Exec ports.CommandExecutorPort
}

func NewGit(repo ports.GitRepositoryPort, exec ports.CommandExecutorPort) Git {
	return Git{
		base: base{
			name:          "git",
			dirName:       ".git",
			repoName:      "clone",
			schemes:       []string{"git", "git+http", "git+https", "git+ssh", "git+git", "git+file"},
			defaultArgRev: "HEAD",
		},
		Repo: repo,
		Exec: exec,
	}
}

func (g Git) BaseRevArgs(rev string) []string {
	return []string{rev}
}

// URLRevAndAuth accepts scp-style stubs like "git+git@host:Project" by
// routing them through ssh:// and removing the prefix again afterwards.
// Paths of file URLs are unquoted.
func (g Git) URLRevAndAuth(rawURL string) (string, string, types.VCSAuth, error) {
	if strings.Contains(rawURL, "://") {
		return splitVCSURL(g, unquoteFileURL(rawURL))
	}
	stub := strings.Replace(rawURL, "git+", "git+ssh://", 1)
	repoURL, rev, auth, err := splitVCSURL(g, stub)
	if err != nil {
		return "", "", types.VCSAuth{}, err
	}
	return strings.Replace(repoURL, "ssh://", "", 1), rev, auth, nil
}

// unquoteFileURL decodes the path of a *file URL, keeping its leading
// slashes. Other URLs are returned unchanged.
func unquoteFileURL(rawURL string) string {
	parts := SplitURL(rawURL)
	if !strings.HasSuffix(parts.Scheme, "file") {
		return rawURL
	}
	trimmed := strings.TrimLeft(parts.Path, "/")
	slashes := parts.Path[:len(parts.Path)-len(trimmed)]
	unquoted, err := url.PathUnescape(trimmed)
	if err != nil {
		return rawURL
	}
	parts.Path = slashes + strings.TrimLeft(unquoted, "/")
	prefix, scheme, ok := strings.Cut(parts.Scheme, "+")
	if !ok {
		return parts.String()
	}
	parts.Scheme = scheme
	return prefix + "+" + parts.String()
}

// RevisionSHA looks rev up among the branches and tags of the checkout at
// dest. When dest is empty the remote at rawURL is queried instead. The
// boolean reports whether rev named a branch.
func (g Git) RevisionSHA(ctx context.Context, dest string, rawURL string, rev string) (string, bool, error) {
	if g.Repo == nil {
		return "", false, missingCollaborator("git repository reader")
	}
	var (
		refs      []types.GitRef
		err       error
		branchRef string
	)
	if dest != "" {
		refs, err = g.Repo.LocalRefs(ctx, dest)
		branchRef = "refs/remotes/origin/" + rev
	} else {
		refs, err = g.Repo.RemoteRefs(ctx, rawURL)
		branchRef = "refs/heads/" + rev
	}
	if err != nil {
		return "", false, err
	}
	byName := make(map[string]string, len(refs))
	for _, ref := range refs {
		byName[ref.Name] = ref.SHA
	}
	if sha, ok := byName[branchRef]; ok {
		return sha, true, nil
	}
	if sha, ok := byName["refs/tags/"+rev]; ok {
		return sha, false, nil
	}
	return "", false, nil
}

// ResolveRevision maps a branch or tag name to the commit it points to.
// Unknown names are kept as-is; names under refs/ are fetched explicitly.
func (g Git) ResolveRevision(ctx context.Context, dest string, rawURL string, opts RevOptions) (RevOptions, error) {
	rev := opts.ArgRev()
	sha, isBranch, err := g.RevisionSHA(ctx, dest, rawURL, rev)
	if err != nil {
		return RevOptions{}, err
	}
	if sha != "" {
		resolved := opts.MakeNew(sha)
		if isBranch {
			resolved.BranchName = rev
		}
		return resolved, nil
	}
	if !LooksLikeHash(rev) {
		log.Ctx(ctx).Warn().Msgf("Did not find branch or tag '%s', assuming revision or ref.", rev)
	}
	if !strings.HasPrefix(rev, "refs/") {
		return opts, nil
	}
	fetched, err := g.Repo.FetchRef(ctx, dest, rawURL, rev)
	if err != nil {
		return RevOptions{}, err
	}
	return opts.MakeNew(fetched), nil
}

func (g Git) IsCommitIDEqual(ctx context.Context, dest string, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	if g.Repo == nil {
		return false, missingCollaborator("git repository reader")
	}
	current, err := g.Repo.Revision(ctx, dest, "HEAD")
	if err != nil {
		return false, err
	}
	return current == name, nil
}

// SrcRequirement describes the checkout at location as a pinned
// git+url@sha#egg=project requirement.
func (g Git) SrcRequirement(ctx context.Context, location string, project string) (string, error) {
	if g.Repo == nil {
		return "", missingCollaborator("git repository reader")
	}
	repoURL, err := g.Repo.OriginURL(ctx, location)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(strings.ToLower(repoURL), "git:") {
		repoURL = "git+" + repoURL
	}
	sha, err := g.Repo.Revision(ctx, location, "HEAD")
	if err != nil {
		return "", err
	}
	root, err := g.Repo.RootDir(ctx, location)
	if err != nil {
		return "", err
	}
	subdir := projectSubdirectory(ctx, root, location)
	return MakeVCSRequirementURL(repoURL, sha, EggProjectName(project), subdir), nil
}

// Version returns the installed git version, trimmed to three components.
func (g Git) Version(ctx context.Context) (string, error) {
	if g.Exec == nil {
		return "", missingCollaborator("command executor")
	}
	out, err := g.Exec.Run(ctx, "", "git", "version")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to run git version").
			WithCause(err)
	}
	match := gitVersionRe.FindStringSubmatch(strings.TrimSpace(string(out)))
	if match == nil {
		return "", nil
	}
	parts := strings.Split(match[1], ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "."), nil
}

// projectSubdirectory returns the path of the directory holding setup.py
// relative to the repository root, or "" when it is the root itself.
func projectSubdirectory(ctx context.Context, root string, location string) string {
	dir := location
	for !fileExists(filepath.Join(dir, "setup.py")) && !fileExists(filepath.Join(dir, "pyproject.toml")) {
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Ctx(ctx).Warn().Msgf("Could not find setup.py for directory %s (tried all parent directories)", location)
			return ""
		}
		dir = parent
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return ""
	}
	dirAbs, err := filepath.Abs(dir)
	if err != nil || dirAbs == rootAbs {
		return ""
	}
	rel, err := filepath.Rel(rootAbs, dirAbs)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func missingCollaborator(what string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(what + " is not configured")
}

var _ Backend = Git{}
var _ Freezer = Git{}
