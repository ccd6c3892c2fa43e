// Package vcs decomposes version-control requirement URLs and resolves
// revisions for the Git, Mercurial, Bazaar and Subversion backends.
package vcs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pipkit/internal/types"
)

var (
	hashRe       = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9.]+`)
)

// LooksLikeHash reports whether rev is a full 40 character commit id.
func LooksLikeHash(rev string) bool {
	return hashRe.MatchString(rev)
}

// Backend is a version control system known to the requirement parser.
type Backend interface {
	Name() string
	DirName() string
	RepoName() string
	Schemes() []string
	// DefaultArgRev is the revision used when none was requested.
	// An empty string means the backend passes no revision at all.
	DefaultArgRev() string
	BaseRevArgs(rev string) []string
	NetlocAndAuth(netloc string, scheme string) (string, types.VCSAuth)
	URLRevAndAuth(rawURL string) (string, string, types.VCSAuth, error)
	MakeRevArgs(auth types.VCSAuth) []string
	IsCommitIDEqual(ctx context.Context, dest string, name string) (bool, error)
	ResolveRevision(ctx context.Context, dest string, rawURL string, opts RevOptions) (RevOptions, error)
}

// Freezer is implemented by backends that can describe a checkout as a
// pinned requirement URL.
type Freezer interface {
	SrcRequirement(ctx context.Context, location string, project string) (string, error)
}

// RevOptions carries a requested revision and the extra command line
// arguments needed to reach it.
type RevOptions struct {
	Backend    Backend
	Rev        string
	ExtraArgs  []string
	BranchName string
}

func NewRevOptions(backend Backend, rev string, extraArgs []string) RevOptions {
	return RevOptions{Backend: backend, Rev: rev, ExtraArgs: extraArgs}
}

func (o RevOptions) String() string {
	return fmt.Sprintf("<RevOptions %s: rev=%s>", o.Backend.Name(), pyRepr(o.Rev))
}

func (o RevOptions) ArgRev() string {
	if o.Rev == "" {
		return o.Backend.DefaultArgRev()
	}
	return o.Rev
}

func (o RevOptions) ToArgs() []string {
	args := []string{}
	if rev := o.ArgRev(); rev != "" {
		args = append(args, o.Backend.BaseRevArgs(rev)...)
	}
	return append(args, o.ExtraArgs...)
}

func (o RevOptions) ToDisplay() string {
	if o.Rev == "" {
		return ""
	}
	return fmt.Sprintf(" (to revision %s)", o.Rev)
}

// MakeNew returns a copy pointing at rev that keeps the extra arguments.
func (o RevOptions) MakeNew(rev string) RevOptions {
	return NewRevOptions(o.Backend, rev, o.ExtraArgs)
}

// URLRevOptions splits rawURL into a repository URL and the revision
// options, including credentials as backend arguments.
func URLRevOptions(backend Backend, rawURL string) (string, RevOptions, error) {
	repoURL, rev, auth, err := backend.URLRevAndAuth(rawURL)
	if err != nil {
		return "", RevOptions{}, err
	}
	return repoURL, NewRevOptions(backend, rev, backend.MakeRevArgs(auth)), nil
}

// splitVCSURL is the URL decomposition shared by every backend: strip the
// "vcs+" prefix, let the backend extract credentials from the netloc and
// take the revision from the last "@" in the path.
func splitVCSURL(backend Backend, rawURL string) (string, string, types.VCSAuth, error) {
	parts := SplitURL(rawURL)
	prefix, scheme, ok := strings.Cut(parts.Scheme, "+")
	if !ok || prefix == "" {
		return "", "", types.VCSAuth{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("Sorry, %s is a malformed VCS url. The format is <vcs>+<protocol>://<url>, e.g. svn+http://myrepo/svn/MyApp#egg=MyApp", pyRepr(rawURL)))
	}
	netloc, auth := backend.NetlocAndAuth(parts.Netloc, scheme)
	path := parts.Path
	rev := ""
	if idx := strings.LastIndex(path, "@"); idx >= 0 {
		path, rev = path[:idx], path[idx+1:]
	}
	repoURL := URLParts{Scheme: scheme, Netloc: netloc, Path: path, Query: parts.Query}.String()
	return repoURL, rev, auth, nil
}

// MakeVCSRequirementURL renders a pinned "url@rev#egg=name" requirement.
func MakeVCSRequirementURL(repoURL string, rev string, project string, subdir string) string {
	req := fmt.Sprintf("%s@%s#egg=%s", repoURL, rev, project)
	if subdir != "" {
		req += "&subdirectory=" + subdir
	}
	return req
}

// EggProjectName turns a project name into the form used in #egg=.
func EggProjectName(project string) string {
	safe := unsafeNameRe.ReplaceAllString(project, "-")
	return strings.ReplaceAll(safe, "-", "_")
}

func pyRepr(value string) string {
	if value == "" {
		return "None"
	}
	return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// base holds the metadata and default behaviour shared by the backends.
type base struct {
	name          string
	dirName       string
	repoName      string
	schemes       []string
	defaultArgRev string
}

func (b base) Name() string          { return b.name }
func (b base) DirName() string       { return b.dirName }
func (b base) RepoName() string      { return b.repoName }
func (b base) DefaultArgRev() string { return b.defaultArgRev }

func (b base) Schemes() []string {
	return append([]string(nil), b.schemes...)
}

func (b base) NetlocAndAuth(netloc string, _ string) (string, types.VCSAuth) {
	return netloc, types.VCSAuth{}
}

func (b base) MakeRevArgs(types.VCSAuth) []string {
	return nil
}

func (b base) IsCommitIDEqual(context.Context, string, string) (bool, error) {
	return false, nil
}

func (b base) ResolveRevision(_ context.Context, _ string, _ string, opts RevOptions) (RevOptions, error) {
	return opts, nil
}
