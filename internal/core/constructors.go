package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/types"
	"pipkit/internal/vcs"
)

var trailingExtrasRe = regexp.MustCompile(`^(.+)(\[[^\]]+\])$`)

// LineOptions carries the context a requirement line was read in.
type LineOptions struct {
	ComesFrom  string
	Isolated   bool
	Constraint bool
	Options    types.RequirementOptions
}

// InstallReqFromLine builds an InstallRequirement from a requirement
// specifier, URL, archive path or local project directory.
func InstallReqFromLine(ctx context.Context, name string, opts LineOptions) (types.InstallRequirement, error) {
	markerSep := ";"
	if IsURL(name) {
		markerSep = "; "
	}
	markers := ""
	if before, after, ok := strings.Cut(name, markerSep); ok {
		name = before
		if trimmed := strings.TrimSpace(after); trimmed != "" {
			marker, err := ParseMarker(trimmed)
			if err != nil {
				return types.InstallRequirement{}, err
			}
			markers = marker.String()
		}
	}
	name = strings.TrimSpace(name)

	var (
		link    *types.Link
		extras  string
		reqText string
		hasReq  bool
	)
	if IsURL(name) {
		link = &types.Link{URL: name}
	} else {
		path, err := filepath.Abs(name)
		if err != nil {
			path = filepath.Clean(name)
		}
		stripped, found := stripExtras(path)
		extras = found
		looksLikeDir := isDir(stripped) && (strings.ContainsRune(name, filepath.Separator) || strings.HasPrefix(name, "."))
		switch {
		case looksLikeDir:
			if !IsInstallableDir(stripped) {
				return types.InstallRequirement{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("Directory '%s' is not installable. Neither 'setup.py' nor 'pyproject.toml' found.", name))
			}
			link = &types.Link{URL: PathToURL(stripped)}
		case types.IsArchiveFile(stripped):
			if !isFile(stripped) {
				log.Ctx(ctx).Warn().Msgf("Requirement '%s' looks like a filename, but the file does not exist", name)
			}
			link = &types.Link{URL: PathToURL(stripped)}
		}
	}

	if link != nil {
		if link.Scheme() == "file" && strings.Contains(link.URL, "../") {
			link = &types.Link{URL: PathToURL(link.Path())}
		}
		if link.IsWheel() {
			wheel, err := ParseWheelFilename(link.Filename())
			if err != nil {
				return types.InstallRequirement{}, err
			}
			reqText, hasReq = fmt.Sprintf("%s==%s", wheel.Name, wheel.Version), true
		} else if egg := link.EggFragment(); egg != "" {
			reqText, hasReq = egg, true
		}
	} else {
		reqText, hasReq = name, true
	}

	ireq := types.InstallRequirement{
		Link:       link,
		Markers:    markers,
		Constraint: opts.Constraint,
		Isolated:   opts.Isolated,
		Options:    opts.Options,
		ComesFrom:  opts.ComesFrom,
	}
	if extras != "" {
		parsed, err := ParseRequirement("placeholder" + strings.ToLower(extras))
		if err != nil {
			return types.InstallRequirement{}, err
		}
		ireq.Extras = parsed.Extras
	}
	if hasReq {
		req, err := ParseRequirement(reqText)
		if err != nil {
			return types.InstallRequirement{}, invalidRequirementError(reqText)
		}
		ireq.Req = &req
		if ireq.Markers == "" {
			ireq.Markers = req.Marker
		}
	}
	return ireq, nil
}

func invalidRequirementError(req string) error {
	var hint string
	switch {
	case strings.ContainsRune(req, filepath.Separator):
		hint = "It looks like a path." + deduceHelpfulMessage(req)
	case strings.Contains(req, "=") && !containsOperator(req):
		hint = "= is not a valid operator. Did you mean == ?"
	default:
		hint = "Expected a PEP 508 requirement such as 'name>=1.0'."
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("Invalid requirement: '%s'\n%s", req, hint))
}

func containsOperator(req string) bool {
	for _, op := range []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"} {
		if strings.Contains(req, op) {
			return true
		}
	}
	return false
}

func deduceHelpfulMessage(req string) string {
	if _, err := os.Stat(req); err != nil {
		return fmt.Sprintf(" File '%s' does not exist.", req)
	}
	msg := " It does exist."
	content, err := os.ReadFile(req)
	if err != nil {
		return msg
	}
	lines, _ := Preprocess(string(content), nil)
	for _, line := range lines {
		if _, err := ParseRequirement(line.Text); err == nil {
			msg += fmt.Sprintf(" The argument you provided (%s) appears to be a requirements file. If that is the case, use the '-r' flag to install the packages specified within it.", req)
		}
		break
	}
	return msg
}

// ParseEditable splits an -e argument into the project name, the URL to
// check out and any extras given on a local path.
func ParseEditable(editable string) (string, string, []string, error) {
	rawURL := editable
	noExtras, extras := stripExtras(rawURL)
	if isDir(noExtras) {
		if !IsInstallableDir(noExtras) {
			return "", "", nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("Directory '%s' is not installable. File 'setup.py' not found.", noExtras))
		}
		noExtras = PathToURL(noExtras)
	}
	if strings.HasPrefix(strings.ToLower(noExtras), "file:") {
		name := types.Link{URL: noExtras}.EggFragment()
		if extras == "" {
			return name, noExtras, nil, nil
		}
		parsed, err := ParseRequirement("placeholder" + strings.ToLower(extras))
		if err != nil {
			return "", "", nil, err
		}
		return name, noExtras, parsed.Extras, nil
	}

	registry := vcs.DefaultRegistry()
	for _, backend := range registry.Names() {
		if strings.HasPrefix(strings.ToLower(rawURL), backend+":") {
			rawURL = backend + "+" + rawURL
			break
		}
	}
	if !strings.Contains(rawURL, "+") {
		return "", "", nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s should either be a path to a local project or a VCS url beginning with svn+, git+, hg+, or bzr+", editable))
	}
	vcsType, _, _ := strings.Cut(rawURL, "+")
	if _, ok := registry.Backend(strings.ToLower(vcsType)); !ok {
		supported := make([]string, 0, len(registry.Names()))
		for _, backend := range registry.Names() {
			supported = append(supported, backend+"+URL")
		}
		return "", "", nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("For --editable=%s only %s is currently supported", editable, strings.Join(supported, ", ")))
	}
	name := types.Link{URL: rawURL}.EggFragment()
	if name == "" {
		return "", "", nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("Could not detect requirement name for '%s', please specify one with #egg=your_package_name", editable))
	}
	return name, rawURL, nil, nil
}

// InstallReqFromEditable builds an editable InstallRequirement.
func InstallReqFromEditable(editable string, opts LineOptions) (types.InstallRequirement, error) {
	name, rawURL, extras, err := ParseEditable(editable)
	if err != nil {
		return types.InstallRequirement{}, err
	}
	ireq := types.InstallRequirement{
		Link:       &types.Link{URL: rawURL},
		Extras:     extras,
		Editable:   true,
		Constraint: opts.Constraint,
		Isolated:   opts.Isolated,
		Options:    opts.Options,
		ComesFrom:  opts.ComesFrom,
	}
	if name != "" {
		req, err := ParseRequirement(name)
		if err != nil {
			return types.InstallRequirement{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("Invalid requirement: '%s'", name))
		}
		ireq.Req = &req
	}
	return ireq, nil
}

// MatchMarkers reports whether the requirement applies to env.
func MatchMarkers(ireq types.InstallRequirement, env MarkerEnvironment) (bool, error) {
	return EvaluateMarker(ireq.Markers, env)
}

// IsInstallableDir reports whether dir holds a Python project.
func IsInstallableDir(dir string) bool {
	return isFile(filepath.Join(dir, "setup.py")) || isFile(filepath.Join(dir, "pyproject.toml"))
}

func stripExtras(path string) (string, string) {
	match := trailingExtrasRe.FindStringSubmatch(path)
	if match == nil {
		return path, ""
	}
	return match[1], match[2]
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
