package vcs

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pipkit/internal/ports"
	"pipkit/internal/types"
)

type Mercurial struct {
	base
	Exec ports.CommandExecutorPort
}

func NewMercurial(exec ports.CommandExecutorPort) Mercurial {
	return Mercurial{
		base: base{
			name:     "hg",
			dirName:  ".hg",
			repoName: "clone",
			schemes:  []string{"hg", "hg+http", "hg+https", "hg+ssh", "hg+static-http"},
		},
		Exec: exec,
	}
}

func (h Mercurial) BaseRevArgs(rev string) []string {
	return []string{rev}
}

func (h Mercurial) URLRevAndAuth(rawURL string) (string, string, types.VCSAuth, error) {
	return splitVCSURL(h, rawURL)
}

func (h Mercurial) SrcRequirement(ctx context.Context, location string, project string) (string, error) {
	if h.Exec == nil {
		return "", missingCollaborator("command executor")
	}
	out, err := h.Exec.Run(ctx, location, "hg", "showconfig", "paths.default")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to read mercurial default path").
			WithCause(err)
	}
	repoURL := strings.TrimSpace(string(out))
	if filepath.IsAbs(repoURL) {
		repoURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(repoURL)}).String()
	}
	if !strings.HasPrefix(strings.ToLower(repoURL), "hg:") {
		repoURL = "hg+" + repoURL
	}
	rev, err := h.Exec.Run(ctx, location, "hg", "parents", "--template={node}")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to read mercurial revision").
			WithCause(err)
	}
	return MakeVCSRequirementURL(repoURL, strings.TrimSpace(string(rev)), EggProjectName(project), ""), nil
}

var _ Backend = Mercurial{}
var _ Freezer = Mercurial{}
