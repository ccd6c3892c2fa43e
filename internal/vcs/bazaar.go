package vcs

import (
	"strings"

	"pipkit/internal/types"
)

type Bazaar struct {
	base
}

func NewBazaar() Bazaar {
	return Bazaar{base: base{
		name:     "bzr",
		dirName:  ".bzr",
		repoName: "branch",
		schemes:  []string{"bzr", "bzr+http", "bzr+https", "bzr+ssh", "bzr+sftp", "bzr+ftp", "bzr+lp"},
	}}
}

func (b Bazaar) BaseRevArgs(rev string) []string {
	return []string{"-r", rev}
}

// URLRevAndAuth keeps the bzr+ prefix on ssh URLs, which bzr needs to
// pick its smart transport.
func (b Bazaar) URLRevAndAuth(rawURL string) (string, string, types.VCSAuth, error) {
	repoURL, rev, auth, err := splitVCSURL(b, rawURL)
	if err != nil {
		return "", "", types.VCSAuth{}, err
	}
	if strings.HasPrefix(repoURL, "ssh://") {
		repoURL = "bzr+" + repoURL
	}
	return repoURL, rev, auth, nil
}

var _ Backend = Bazaar{}
