package types

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	eggFragmentRe          = regexp.MustCompile(`[#&]egg=([^&]*)`)
	subdirectoryFragmentRe = regexp.MustCompile(`[#&]subdirectory=([^&]*)`)
	hashFragmentRe         = regexp.MustCompile(`(sha1|sha224|sha384|sha256|sha512|md5)=([a-fA-F0-9]*)`)
)

// archiveExtensions lists the suffixes treated as installable archives.
var archiveExtensions = []string{
	".whl", ".zip", ".tar.gz", ".tgz", ".tar", ".tar.bz2", ".tbz", ".tar.xz", ".txz", ".tlz", ".tar.lz", ".tar.lzma",
}

type Link struct {
	URL string `yaml:"url" json:"url"`
}

func (l Link) String() string {
	return l.URL
}

func (l Link) Scheme() string {
	idx := strings.Index(l.URL, ":")
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(l.URL[:idx])
}

// Path is the unquoted path component with fragment and query removed.
func (l Link) Path() string {
	raw := l.URLWithoutFragment()
	if idx := strings.Index(raw, "?"); idx >= 0 {
		raw = raw[:idx]
	}
	if idx := strings.Index(raw, "://"); idx >= 0 {
		raw = raw[idx+3:]
		if slash := strings.Index(raw, "/"); slash >= 0 {
			raw = raw[slash:]
		} else {
			raw = ""
		}
	}
	if unquoted, err := url.PathUnescape(raw); err == nil {
		return unquoted
	}
	return raw
}

func (l Link) Filename() string {
	return path.Base(strings.TrimRight(l.Path(), "/"))
}

// Ext returns the archive extension, including compound ones like .tar.gz.
func (l Link) Ext() string {
	name := strings.ToLower(l.Filename())
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(name, ext) && strings.Count(ext, ".") > 1 {
			return ext
		}
	}
	return path.Ext(name)
}

func (l Link) URLWithoutFragment() string {
	if idx := strings.Index(l.URL, "#"); idx >= 0 {
		return l.URL[:idx]
	}
	return l.URL
}

func (l Link) EggFragment() string {
	match := eggFragmentRe.FindStringSubmatch(l.URL)
	if match == nil {
		return ""
	}
	return match[1]
}

func (l Link) SubdirectoryFragment() string {
	match := subdirectoryFragmentRe.FindStringSubmatch(l.URL)
	if match == nil {
		return ""
	}
	return match[1]
}

// Hash returns the hash algorithm and digest carried in the fragment.
func (l Link) Hash() (string, string) {
	match := hashFragmentRe.FindStringSubmatch(l.URL)
	if match == nil {
		return "", ""
	}
	return match[1], match[2]
}

func (l Link) IsWheel() bool {
	return strings.EqualFold(path.Ext(l.Filename()), ".whl")
}

// IsArchive reports whether the filename carries a known archive suffix.
func (l Link) IsArchive() bool {
	return IsArchiveFile(l.Filename())
}

func IsArchiveFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
