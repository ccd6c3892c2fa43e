package core

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"

	"pipkit/internal/shared"
)

// MarkerEnvironment holds the values marker variables evaluate to.
type MarkerEnvironment map[string]string

// markerAliases maps legacy dotted names to their PEP 508 spelling.
var markerAliases = map[string]string{
	"os.name":                        "os_name",
	"sys.platform":                   "sys_platform",
	"platform.version":               "platform_version",
	"platform.machine":               "platform_machine",
	"platform.python_implementation": "platform_python_implementation",
	"python_implementation":          "platform_python_implementation",
}

var markerVariables = map[string]struct{}{
	"python_version": {}, "python_full_version": {}, "os_name": {}, "sys_platform": {},
	"platform_release": {}, "platform_system": {}, "platform_version": {}, "platform_machine": {},
	"platform_python_implementation": {}, "implementation_name": {}, "implementation_version": {},
	"extra": {},
}

var markerOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

// DefaultMarkerEnvironment describes a CPython 3.12 interpreter on the
// current platform.
func DefaultMarkerEnvironment() MarkerEnvironment {
	sysPlatform, system := runtime.GOOS, "Linux"
	switch runtime.GOOS {
	case "darwin":
		system = "Darwin"
	case "windows":
		sysPlatform, system = "win32", "Windows"
	}
	osName := "posix"
	if runtime.GOOS == "windows" {
		osName = "nt"
	}
	machine := runtime.GOARCH
	switch runtime.GOARCH {
	case "amd64":
		machine = "x86_64"
	case "arm64":
		machine = "aarch64"
		if runtime.GOOS == "darwin" {
			machine = "arm64"
		}
	}
	return MarkerEnvironment{
		"python_version":                 "3.12",
		"python_full_version":            "3.12.0",
		"implementation_name":            "cpython",
		"implementation_version":         "3.12.0",
		"platform_python_implementation": "CPython",
		"os_name":                        osName,
		"sys_platform":                   sysPlatform,
		"platform_system":                system,
		"platform_machine":               machine,
		"platform_release":               "",
		"platform_version":               "",
		"extra":                          "",
	}
}

// With returns a copy of env with the given overrides applied.
func (env MarkerEnvironment) With(overrides map[string]string) MarkerEnvironment {
	out := make(MarkerEnvironment, len(env)+len(overrides))
	for k, v := range env {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Marker is a parsed PEP 508 environment marker.
type Marker struct {
	root markerChain
}

type markerNode interface {
	evaluate(env MarkerEnvironment) (bool, error)
	render() string
}

type markerValue struct {
	variable string
	literal  string
}

func (v markerValue) render() string {
	if v.variable != "" {
		return v.variable
	}
	return `"` + v.literal + `"`
}

func (v markerValue) resolve(env MarkerEnvironment) (string, error) {
	if v.variable == "" {
		return v.literal, nil
	}
	value, ok := env[v.variable]
	if !ok {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("undefined environment marker: %s", v.variable))
	}
	return value, nil
}

type markerCompare struct {
	left  markerValue
	op    string
	right markerValue
}

func (c markerCompare) render() string {
	return c.left.render() + " " + c.op + " " + c.right.render()
}

func (c markerCompare) evaluate(env MarkerEnvironment) (bool, error) {
	lhs, err := c.left.resolve(env)
	if err != nil {
		return false, err
	}
	rhs, err := c.right.resolve(env)
	if err != nil {
		return false, err
	}
	if c.left.variable == "extra" || c.right.variable == "extra" {
		lhs, rhs = shared.NormalizePipName(lhs), shared.NormalizePipName(rhs)
	}
	switch c.op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	case "===":
		return lhs == rhs, nil
	}
	if spec, err := pep440.NewSpecifiers(c.op+rhs, pep440.WithPreRelease(true)); err == nil {
		if version, err := pep440.Parse(lhs); err == nil {
			return spec.Check(version), nil
		}
	}
	switch c.op {
	case "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case ">=":
		return lhs >= rhs, nil
	}
	return false, errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("undefined comparison between %q and %q using %q", lhs, rhs, c.op))
}

// markerChain is a sequence of nodes joined by "and"/"or". "and" binds
// tighter than "or".
type markerChain struct {
	items   []markerNode
	ops     []string
	grouped bool
}

func (c markerChain) render() string {
	var b strings.Builder
	for i, item := range c.items {
		if i > 0 {
			b.WriteString(" " + c.ops[i-1] + " ")
		}
		b.WriteString(item.render())
	}
	if c.grouped {
		return "(" + b.String() + ")"
	}
	return b.String()
}

func (c markerChain) evaluate(env MarkerEnvironment) (bool, error) {
	group := true
	for i, item := range c.items {
		if i > 0 && c.ops[i-1] == "or" {
			if group {
				return true, nil
			}
			group = true
		}
		if !group {
			continue
		}
		ok, err := item.evaluate(env)
		if err != nil {
			return false, err
		}
		group = ok
	}
	return group, nil
}

func (m Marker) String() string {
	return m.root.render()
}

func (m Marker) Evaluate(env MarkerEnvironment) (bool, error) {
	return m.root.evaluate(env)
}

// EvaluateMarker parses and evaluates a marker string. An empty marker is
// always true.
func EvaluateMarker(marker string, env MarkerEnvironment) (bool, error) {
	if strings.TrimSpace(marker) == "" {
		return true, nil
	}
	parsed, err := ParseMarker(marker)
	if err != nil {
		return false, err
	}
	return parsed.Evaluate(env)
}

func ParseMarker(input string) (Marker, error) {
	p := &markerParser{input: input}
	chain, err := p.parseChain()
	if err != nil {
		return Marker{}, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return Marker{}, p.fail("unexpected text after marker")
	}
	return Marker{root: chain}, nil
}

type markerParser struct {
	input string
	pos   int
}

func (p *markerParser) fail(reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("Invalid marker: %s at position %d in %q", reason, p.pos, p.input))
}

func (p *markerParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *markerParser) keyword(word string) bool {
	p.skipSpace()
	rest := p.input[p.pos:]
	if !strings.HasPrefix(rest, word) {
		return false
	}
	if len(rest) > len(word) && isIdentChar(rest[len(word)]) {
		return false
	}
	p.pos += len(word)
	return true
}

func (p *markerParser) parseChain() (markerChain, error) {
	var chain markerChain
	for {
		node, err := p.parseAtom()
		if err != nil {
			return markerChain{}, err
		}
		chain.items = append(chain.items, node)
		switch {
		case p.keyword("and"):
			chain.ops = append(chain.ops, "and")
		case p.keyword("or"):
			chain.ops = append(chain.ops, "or")
		default:
			return chain, nil
		}
	}
}

func (p *markerParser) parseAtom() (markerNode, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		inner, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, p.fail("expected ')'")
		}
		p.pos++
		inner.grouped = true
		return inner, nil
	}
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return markerCompare{left: left, op: op, right: right}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return markerValue{}, p.fail("expected a marker variable or quoted string")
	}
	quote := p.input[p.pos]
	if quote == '"' || quote == '\'' {
		end := strings.IndexByte(p.input[p.pos+1:], quote)
		if end < 0 {
			return markerValue{}, p.fail("unterminated string")
		}
		literal := p.input[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return markerValue{literal: literal}, nil
	}
	start := p.pos
	for p.pos < len(p.input) && (isIdentChar(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	name := p.input[start:p.pos]
	if alias, ok := markerAliases[name]; ok {
		name = alias
	}
	if _, ok := markerVariables[name]; !ok {
		p.pos = start
		return markerValue{}, p.fail("expected a marker variable or quoted string")
	}
	return markerValue{variable: name}, nil
}

func (p *markerParser) parseOp() (string, error) {
	p.skipSpace()
	rest := p.input[p.pos:]
	for _, op := range markerOps {
		if strings.HasPrefix(rest, op) {
			p.pos += len(op)
			return op, nil
		}
	}
	if p.keyword("in") {
		return "in", nil
	}
	save := p.pos
	if p.keyword("not") && p.keyword("in") {
		return "not in", nil
	}
	p.pos = save
	return "", p.fail("expected a marker operator")
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
