package vcs

import (
	"strings"

	"pipkit/internal/types"
)

type Subversion struct {
	base
}

func NewSubversion() Subversion {
	return Subversion{base: base{
		name:     "svn",
		dirName:  ".svn",
		repoName: "checkout",
		schemes:  []string{"svn", "svn+ssh", "svn+http", "svn+https", "svn+svn"},
	}}
}

func (s Subversion) BaseRevArgs(rev string) []string {
	return []string{"-r", rev}
}

// NetlocAndAuth moves credentials out of the URL except for ssh, where
// they belong to the ssh transport.
func (s Subversion) NetlocAndAuth(netloc string, scheme string) (string, types.VCSAuth) {
	if scheme == "ssh" {
		return s.base.NetlocAndAuth(netloc, scheme)
	}
	return SplitAuthFromNetloc(netloc)
}

func (s Subversion) URLRevAndAuth(rawURL string) (string, string, types.VCSAuth, error) {
	repoURL, rev, auth, err := splitVCSURL(s, rawURL)
	if err != nil {
		return "", "", types.VCSAuth{}, err
	}
	if strings.HasPrefix(repoURL, "ssh://") {
		repoURL = "svn+" + repoURL
	}
	return repoURL, rev, auth, nil
}

func (s Subversion) MakeRevArgs(auth types.VCSAuth) []string {
	var args []string
	if auth.Username != "" {
		args = append(args, "--username", auth.Username)
	}
	if auth.Password != "" {
		args = append(args, "--password", auth.Password)
	}
	return args
}

var _ Backend = Subversion{}
