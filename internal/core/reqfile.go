package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"pipkit/internal/deprecation"
	"pipkit/internal/ports"
	"pipkit/internal/types"
)

var (
	requirementsSchemeRe = regexp.MustCompile(`(?i)^(http|https|file):`)
	commentRe            = regexp.MustCompile(`(^|\s)+#.*$`)
	commentLineRe        = regexp.MustCompile(`^\s*#`)
	envVarRe             = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)
)

// StrongHashes are the digests accepted by --hash.
var StrongHashes = []string{"sha256", "sha384", "sha512"}

// ParsedLine is a logical requirements line and the number of the first
// physical line it was read from.
type ParsedLine struct {
	Number int
	Text   string
}

// ParseOptions are the command level options that influence parsing.
type ParseOptions struct {
	SkipRequirementsRegex string
	IsolatedMode          bool
	RequireHashes         bool
	FormatControl         *FormatControl
	// Getenv resolves ${VAR} references; os.Getenv when nil.
	Getenv func(string) string
}

// SecureOrigin is a (scheme, host, port) triple; "*" matches anything.
type SecureOrigin struct {
	Scheme string
	Host   string
	Port   string
}

// Finder collects the index settings found in requirements files.
type Finder struct {
	IndexURLs              []string
	FindLinks              []string
	AllowAllPrereleases    bool
	ProcessDependencyLinks bool
	SecureOrigins          []SecureOrigin
	FormatControl          *FormatControl
}

func NewFinder(indexURLs ...string) *Finder {
	return &Finder{IndexURLs: indexURLs, FormatControl: NewFormatControl()}
}

// Preprocess turns file content into logical lines: continuations are
// joined, lines matching the skip pattern dropped, comments stripped and
// ${VAR} references expanded.
func Preprocess(content string, opts *ParseOptions) ([]ParsedLine, error) {
	lines := JoinLines(splitLines(content))
	lines, err := SkipRegex(lines, opts)
	if err != nil {
		return nil, err
	}
	lines = IgnoreComments(lines)
	getenv := os.Getenv
	if opts != nil && opts.Getenv != nil {
		getenv = opts.Getenv
	}
	return ExpandEnvVariables(lines, getenv), nil
}

func splitLines(content string) []ParsedLine {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	raw := strings.Split(content, "\n")
	out := make([]ParsedLine, len(raw))
	for i, line := range raw {
		out[i] = ParsedLine{Number: i + 1, Text: line}
	}
	return out
}

// JoinLines merges lines ending in a backslash with the following line.
// Comment lines never continue and are prefixed with a space so they are
// still recognised once appended to a continuation.
func JoinLines(lines []ParsedLine) []ParsedLine {
	var (
		out     []ParsedLine
		primary int
		pending []string
	)
	for _, line := range lines {
		text := line.Text
		isComment := commentLineRe.MatchString(text)
		if !strings.HasSuffix(text, `\`) || isComment {
			if isComment {
				text = " " + text
			}
			if len(pending) > 0 {
				pending = append(pending, text)
				out = append(out, ParsedLine{Number: primary, Text: strings.Join(pending, "")})
				pending = nil
			} else {
				out = append(out, ParsedLine{Number: line.Number, Text: text})
			}
			continue
		}
		if len(pending) == 0 {
			primary = line.Number
		}
		pending = append(pending, strings.Trim(text, `\`))
	}
	if len(pending) > 0 {
		out = append(out, ParsedLine{Number: primary, Text: strings.Join(pending, "")})
	}
	return out
}

// IgnoreComments strips comments and whitespace and drops empty lines.
func IgnoreComments(lines []ParsedLine) []ParsedLine {
	out := make([]ParsedLine, 0, len(lines))
	for _, line := range lines {
		text := strings.TrimSpace(commentRe.ReplaceAllString(line.Text, ""))
		if text == "" {
			continue
		}
		out = append(out, ParsedLine{Number: line.Number, Text: text})
	}
	return out
}

// SkipRegex drops lines matching opts.SkipRequirementsRegex anywhere.
func SkipRegex(lines []ParsedLine, opts *ParseOptions) ([]ParsedLine, error) {
	if opts == nil || opts.SkipRequirementsRegex == "" {
		return lines, nil
	}
	pattern, err := regexp.Compile(opts.SkipRequirementsRegex)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid skip requirements regex %q", opts.SkipRequirementsRegex)).
			WithCause(err)
	}
	out := make([]ParsedLine, 0, len(lines))
	for _, line := range lines {
		if pattern.MatchString(line.Text) {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// ExpandEnvVariables replaces ${VAR} with its value. Unset or empty
// variables are left untouched.
func ExpandEnvVariables(lines []ParsedLine, getenv func(string) string) []ParsedLine {
	out := make([]ParsedLine, 0, len(lines))
	for _, line := range lines {
		text := envVarRe.ReplaceAllStringFunc(line.Text, func(ref string) string {
			name := envVarRe.FindStringSubmatch(ref)[1]
			if value := getenv(name); value != "" {
				return value
			}
			return ref
		})
		out = append(out, ParsedLine{Number: line.Number, Text: text})
	}
	return out
}

// BreakArgsOptions splits a line into the requirement part and the
// option part, which starts at the first token beginning with "-".
func BreakArgsOptions(line string) (string, string) {
	tokens := strings.Split(line, " ")
	for i, token := range tokens {
		if strings.HasPrefix(token, "-") {
			return strings.Join(tokens[:i], " "), strings.Join(tokens[i:], " ")
		}
	}
	return line, ""
}

// RequirementsParser reads requirements files and applies their option
// lines to Options and Finder.
type RequirementsParser struct {
	Source       ports.RequirementsSourcePort
	Options      *ParseOptions
	Finder       *Finder
	Deprecations *deprecation.Reporter
	// DependencyLinksGoneIn is the version from which
	// --process-dependency-links is rejected. Empty means never.
	DependencyLinksGoneIn string
	// NestedParser replaces the recursive parse of -r/-c files when set.
	NestedParser func(ctx context.Context, path string, constraint bool) ([]types.InstallRequirement, error)

	stack []string
}

// ParseRequirements parses filename and every file it includes.
func (p *RequirementsParser) ParseRequirements(ctx context.Context, filename string, constraint bool) ([]types.InstallRequirement, error) {
	return p.parseFile(ctx, filename, "", constraint)
}

func (p *RequirementsParser) parseFile(ctx context.Context, filename string, comesFrom string, constraint bool) ([]types.InstallRequirement, error) {
	if p.Source == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("requirements source is not configured")
	}
	for _, parent := range p.stack {
		if parent == filename {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("requirements file %s includes itself", filename))
		}
	}
	p.stack = append(p.stack, filename)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	_, content, err := p.Source.Fetch(ctx, filename, comesFrom)
	if err != nil {
		return nil, err
	}
	lines, err := Preprocess(content, p.Options)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("file", filename).Int("lines", len(lines)).Msg("parsing requirements file")
	var reqs []types.InstallRequirement
	for _, line := range lines {
		parsed, err := p.ProcessLine(ctx, line.Text, filename, line.Number, constraint)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, parsed...)
	}
	return reqs, nil
}

type lineFlags struct {
	editables              []string
	requirements           []string
	constraints            []string
	noIndex                bool
	indexURL               string
	extraIndexURLs         []string
	findLinks              []string
	alwaysUnzip            bool
	pre                    bool
	processDependencyLinks bool
	trustedHosts           []string
	requireHashes          bool
	installOptions         []string
	globalOptions          []string
	hashes                 *hashValue
}

func (p *RequirementsParser) newFlagSet(flags *lineFlags, formatControl *FormatControl) *pflag.FlagSet {
	fs := pflag.NewFlagSet("requirements", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "pypi-url" {
			name = "index-url"
		}
		return pflag.NormalizedName(name)
	})
	fs.StringArrayVarP(&flags.editables, "editable", "e", nil, "Install a project in editable mode")
	fs.StringArrayVarP(&flags.requirements, "requirement", "r", nil, "Install from the given requirements file")
	fs.StringArrayVarP(&flags.constraints, "constraint", "c", nil, "Constrain versions using the given constraints file")
	fs.BoolVar(&flags.noIndex, "no-index", false, "Ignore package index")
	fs.StringVarP(&flags.indexURL, "index-url", "i", "", "Base URL of the Python Package Index")
	fs.StringArrayVar(&flags.extraIndexURLs, "extra-index-url", nil, "Extra URLs of package indexes")
	fs.StringArrayVarP(&flags.findLinks, "find-links", "f", nil, "Look for archives at this location")
	fs.BoolVarP(&flags.alwaysUnzip, "always-unzip", "Z", false, "No-op, kept for compatibility")
	fs.Var(&formatControlValue{control: formatControl}, "no-binary", "Do not use binary packages")
	fs.Var(&formatControlValue{control: formatControl, onlyBinary: true}, "only-binary", "Do not use source packages")
	fs.BoolVar(&flags.pre, "pre", false, "Include pre-release and development versions")
	fs.BoolVar(&flags.processDependencyLinks, "process-dependency-links", false, "Enable the processing of dependency links")
	fs.StringArrayVar(&flags.trustedHosts, "trusted-host", nil, "Mark this host as trusted")
	fs.BoolVar(&flags.requireHashes, "require-hashes", false, "Require a hash to check each requirement against")
	fs.StringArrayVar(&flags.installOptions, "install-option", nil, "Extra arguments for setup.py install")
	fs.StringArrayVar(&flags.globalOptions, "global-option", nil, "Extra global options for setup.py")
	fs.Var(flags.hashes, "hash", "Verify that the package's archive matches this hash")
	return fs
}

// ProcessLine interprets one logical line. Requirement, editable and
// nested file lines yield requirements; option lines update the parser's
// Options and Finder.
func (p *RequirementsParser) ProcessLine(ctx context.Context, line string, filename string, lineNumber int, constraint bool) ([]types.InstallRequirement, error) {
	formatControl := NewFormatControl()
	if p.Finder != nil && p.Finder.FormatControl != nil {
		formatControl = p.Finder.FormatControl
	}
	flags := &lineFlags{hashes: &hashValue{}}
	fs := p.newFlagSet(flags, formatControl)

	argsStr, optionsStr := BreakArgsOptions(line)
	tokens, err := shellwords.Parse(optionsStr)
	if err != nil {
		return nil, lineParseError(line, err.Error())
	}
	if err := fs.Parse(tokens); err != nil {
		if flags.hashes.err != nil {
			return nil, lineParseError(line, flags.hashes.err.Error())
		}
		return nil, lineParseError(line, err.Error())
	}

	flag := "-r"
	if constraint {
		flag = "-c"
	}
	lineComesFrom := fmt.Sprintf("%s %s (line %d)", flag, filename, lineNumber)
	isolated := p.Options != nil && p.Options.IsolatedMode

	switch {
	case argsStr != "":
		reqOptions := types.RequirementOptions{
			InstallOptions: flags.installOptions,
			GlobalOptions:  flags.globalOptions,
		}
		if len(flags.hashes.values) > 0 {
			reqOptions.Hashes = flags.hashes.values
		}
		if p.Options != nil && (len(flags.installOptions) > 0 || len(flags.globalOptions) > 0) {
			if p.Options.FormatControl == nil {
				p.Options.FormatControl = NewFormatControl()
			}
			p.Options.FormatControl.DisallowBinaries()
			log.Ctx(ctx).Warn().Msg("Disabling all use of wheels due to the use of --build-options / --global-options / --install-options.")
		}
		req, err := InstallReqFromLine(ctx, argsStr, LineOptions{
			ComesFrom:  lineComesFrom,
			Isolated:   isolated,
			Constraint: constraint,
			Options:    reqOptions,
		})
		if err != nil {
			return nil, err
		}
		return []types.InstallRequirement{req}, nil

	case len(flags.editables) > 0:
		req, err := InstallReqFromEditable(flags.editables[0], LineOptions{
			ComesFrom:  lineComesFrom,
			Isolated:   isolated,
			Constraint: constraint,
		})
		if err != nil {
			return nil, err
		}
		return []types.InstallRequirement{req}, nil

	case len(flags.requirements) > 0 || len(flags.constraints) > 0:
		reqPath, nestedConstraint := "", false
		if len(flags.requirements) > 0 {
			reqPath = flags.requirements[0]
		} else {
			reqPath, nestedConstraint = flags.constraints[0], true
		}
		reqPath = ResolveNestedPath(filename, reqPath)
		if p.NestedParser != nil {
			return p.NestedParser(ctx, reqPath, nestedConstraint)
		}
		return p.parseFile(ctx, reqPath, filename, nestedConstraint)

	case flags.requireHashes:
		if p.Options != nil {
			p.Options.RequireHashes = true
		}

	case p.Finder != nil:
		if err := p.applyFinderOptions(ctx, flags, filename); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (p *RequirementsParser) applyFinderOptions(ctx context.Context, flags *lineFlags, filename string) error {
	finder := p.Finder
	if flags.indexURL != "" {
		finder.IndexURLs = []string{flags.indexURL}
	}
	if flags.noIndex {
		finder.IndexURLs = []string{}
	}
	finder.IndexURLs = append(finder.IndexURLs, flags.extraIndexURLs...)
	if len(flags.findLinks) > 0 {
		value := flags.findLinks[0]
		if abs, err := filepath.Abs(filename); err == nil {
			relative := filepath.Join(filepath.Dir(abs), value)
			if _, err := os.Stat(relative); err == nil {
				value = relative
			}
		}
		finder.FindLinks = append(finder.FindLinks, value)
	}
	if flags.pre {
		finder.AllowAllPrereleases = true
	}
	if flags.processDependencyLinks {
		finder.ProcessDependencyLinks = true
		reporter := p.Deprecations
		if reporter == nil {
			reporter = deprecation.Default()
		}
		if err := reporter.Deprecated(ctx,
			"Dependency Links processing has been deprecated and will be removed in a future release.",
			"PEP 508 URL dependencies", p.DependencyLinksGoneIn, 4187); err != nil {
			return err
		}
	}
	for _, host := range flags.trustedHosts {
		finder.SecureOrigins = append(finder.SecureOrigins, SecureOrigin{Scheme: "*", Host: host, Port: "*"})
	}
	return nil
}

// ResolveNestedPath locates an -r/-c reference relative to the file that
// contains it. Remote parents are URL-joined; local parents are joined to
// the parent's directory unless the reference is a URL or an absolute path.
func ResolveNestedPath(parent string, nested string) string {
	if requirementsSchemeRe.MatchString(parent) {
		base, err := url.Parse(parent)
		if err != nil {
			return nested
		}
		ref, err := url.Parse(nested)
		if err != nil {
			return nested
		}
		return base.ResolveReference(ref).String()
	}
	if requirementsSchemeRe.MatchString(nested) || filepath.IsAbs(nested) {
		return nested
	}
	return filepath.Join(filepath.Dir(parent), nested)
}

func lineParseError(line string, msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("Invalid requirement: %s\n%s", line, msg))
}

// formatControlValue feeds --no-binary/--only-binary straight into a
// FormatControl as the flags are parsed, preserving their order.
type formatControlValue struct {
	control    *FormatControl
	onlyBinary bool
}

func (v *formatControlValue) String() string {
	if v.control == nil {
		return ""
	}
	return v.control.String()
}

func (v *formatControlValue) Set(value string) error {
	if v.onlyBinary {
		v.control.AddOnlyBinary(value)
	} else {
		v.control.AddNoBinary(value)
	}
	return nil
}

func (v *formatControlValue) Type() string {
	return "format_control"
}

// hashValue collects --hash=algo:digest values grouped by algorithm.
type hashValue struct {
	values map[string][]string
	err    error
}

func (v *hashValue) String() string {
	return fmt.Sprint(v.values)
}

func (v *hashValue) Set(value string) error {
	algo, digest, ok := strings.Cut(value, ":")
	if !ok {
		v.err = errors.New("Arguments to --hash must be a hash name followed by a value, like --hash=sha256:abcde...")
		return v.err
	}
	allowed := false
	for _, strong := range StrongHashes {
		if algo == strong {
			allowed = true
		}
	}
	if !allowed {
		v.err = fmt.Errorf("Allowed hash algorithms for --hash are %s.", strings.Join(StrongHashes, ", "))
		return v.err
	}
	if v.values == nil {
		v.values = map[string][]string{}
	}
	v.values[algo] = append(v.values[algo], digest)
	return nil
}

func (v *hashValue) Type() string {
	return "hash"
}
