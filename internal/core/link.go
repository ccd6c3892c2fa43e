package core

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pipkit/internal/types"
	"pipkit/internal/vcs"
)

var wheelFilenameRe = regexp.MustCompile(`^(?P<name>.+?)-(?P<ver>.*?)(?:(?:-(?P<build>\d[^-]*?))?-(?P<pyver>.+?)-(?P<abi>.+?)-(?P<plat>.+?)\.whl|\.dist-info)$`)

var urlSchemes = map[string]struct{}{"http": {}, "https": {}, "file": {}, "ftp": {}}

// IsURL reports whether name starts with a scheme pipkit can fetch,
// including every VCS scheme.
func IsURL(name string) bool {
	scheme, _, ok := strings.Cut(name, ":")
	if !ok {
		return false
	}
	scheme = strings.ToLower(scheme)
	if _, ok := urlSchemes[scheme]; ok {
		return true
	}
	return vcs.IsVCSScheme(scheme)
}

// IsVCSLink reports whether the link targets a version control system.
func IsVCSLink(link types.Link) bool {
	return vcs.IsVCSScheme(link.Scheme())
}

// PathToURL converts a filesystem path into an absolute file:// URL.
func PathToURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// URLToPath converts a file:// URL back to a local path.
func URLToPath(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "file" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("You can only turn file: urls into filenames (not %q)", raw))
	}
	if parsed.Host != "" && parsed.Host != "localhost" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("non-local file URIs are not supported on this platform: %q", raw))
	}
	return filepath.FromSlash(parsed.Path), nil
}

// Wheel is the name and version encoded in a wheel filename.
type Wheel struct {
	Filename string
	Name     string
	Version  string
	Build    string
	Tags     []string
}

func ParseWheelFilename(filename string) (Wheel, error) {
	match := wheelFilenameRe.FindStringSubmatch(filename)
	if match == nil {
		return Wheel{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s is not a valid wheel filename.", filename))
	}
	group := func(name string) string {
		return match[wheelFilenameRe.SubexpIndex(name)]
	}
	wheel := Wheel{
		Filename: filename,
		Name:     strings.ReplaceAll(group("name"), "_", "-"),
		Version:  strings.ReplaceAll(group("ver"), "_", "-"),
		Build:    group("build"),
	}
	if pyver := group("pyver"); pyver != "" {
		for _, py := range strings.Split(pyver, ".") {
			for _, abi := range strings.Split(group("abi"), ".") {
				for _, plat := range strings.Split(group("plat"), ".") {
					wheel.Tags = append(wheel.Tags, py+"-"+abi+"-"+plat)
				}
			}
		}
	}
	return wheel, nil
}
