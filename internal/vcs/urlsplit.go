package vcs

import (
	"net/url"
	"strings"

	"pipkit/internal/types"
)

const schemeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-."

// usesNetloc lists schemes whose URLs keep a "//" authority even when the
// netloc is empty, so "file:///x" round-trips and "lp:Proj" stays opaque.
var usesNetloc = map[string]struct{}{
	"": {}, "ftp": {}, "http": {}, "gopher": {}, "nntp": {}, "telnet": {},
	"imap": {}, "wais": {}, "file": {}, "mms": {}, "https": {}, "shttp": {},
	"snews": {}, "prospero": {}, "rtsp": {}, "rtspu": {}, "rsync": {},
	"sftp": {}, "nfs": {}, "ws": {}, "wss": {},
}

func init() {
	for _, scheme := range allSchemes() {
		usesNetloc[scheme] = struct{}{}
	}
}

// URLParts is a lexical split of a URL into its five components.
// net/url rejects scp-like netlocs such as "git@host:Project", so the
// split is done here without validation.
type URLParts struct {
	Scheme   string
	Netloc   string
	Path     string
	Query    string
	Fragment string
}

func SplitURL(raw string) URLParts {
	var parts URLParts
	rest := raw
	if i := strings.Index(rest, ":"); i > 0 && isASCIIAlpha(rest[0]) {
		candidate := rest[:i]
		if strings.Trim(candidate, schemeChars) == "" {
			parts.Scheme = strings.ToLower(candidate)
			rest = rest[i+1:]
		}
	}
	if strings.HasPrefix(rest, "//") {
		end := len(rest)
		if i := strings.IndexAny(rest[2:], "/?#"); i >= 0 {
			end = i + 2
		}
		parts.Netloc = rest[2:end]
		rest = rest[end:]
	}
	if i := strings.Index(rest, "#"); i >= 0 {
		parts.Fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		parts.Query = rest[i+1:]
		rest = rest[:i]
	}
	parts.Path = rest
	return parts
}

// String joins the parts back into a URL.
func (p URLParts) String() string {
	out := p.Path
	_, netlocScheme := usesNetloc[p.Scheme]
	if p.Netloc != "" || (p.Scheme != "" && netlocScheme && !strings.HasPrefix(out, "//")) {
		if out != "" && !strings.HasPrefix(out, "/") {
			out = "/" + out
		}
		out = "//" + p.Netloc + out
	}
	if p.Scheme != "" {
		out = p.Scheme + ":" + out
	}
	if p.Query != "" {
		out += "?" + p.Query
	}
	if p.Fragment != "" {
		out += "#" + p.Fragment
	}
	return out
}

// SplitAuthFromNetloc removes "user:pass@" from a netloc and returns the
// unquoted credentials.
func SplitAuthFromNetloc(netloc string) (string, types.VCSAuth) {
	idx := strings.LastIndex(netloc, "@")
	if idx < 0 {
		return netloc, types.VCSAuth{}
	}
	auth, host := netloc[:idx], netloc[idx+1:]
	var creds types.VCSAuth
	if user, pass, ok := strings.Cut(auth, ":"); ok {
		creds.Username = unquote(user)
		creds.Password = unquote(pass)
	} else {
		creds.Username = unquote(auth)
	}
	return host, creds
}

// NormalizeURL unquotes a URL and removes trailing slashes.
func NormalizeURL(raw string) string {
	return strings.TrimRight(unquote(raw), "/")
}

func CompareURLs(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}

func unquote(value string) string {
	if out, err := url.PathUnescape(value); err == nil {
		return out
	}
	return value
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
