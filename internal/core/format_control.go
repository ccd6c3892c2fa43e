package core

import (
	"fmt"
	"sort"
	"strings"

	"pipkit/internal/shared"
)

const (
	formatAll  = ":all:"
	formatNone = ":none:"

	FormatBinary = "binary"
	FormatSource = "source"
)

// FormatControl tracks which projects may only be installed from source
// and which only from binary wheels.
type FormatControl struct {
	NoBinary   map[string]struct{}
	OnlyBinary map[string]struct{}
}

func NewFormatControl() *FormatControl {
	return &FormatControl{
		NoBinary:   map[string]struct{}{},
		OnlyBinary: map[string]struct{}{},
	}
}

// HandleMutualExcludes applies a comma separated --no-binary or
// --only-binary value to target, removing the same names from other.
// ":all:" resets both sets and ":none:" clears target.
func HandleMutualExcludes(value string, target map[string]struct{}, other map[string]struct{}) {
	names := strings.Split(value, ",")
	for {
		idx := indexOf(names, formatAll)
		if idx < 0 {
			break
		}
		clear(other)
		clear(target)
		target[formatAll] = struct{}{}
		names = names[idx+1:]
		if indexOf(names, formatNone) < 0 {
			return
		}
	}
	for _, name := range names {
		if name == formatNone {
			clear(target)
			continue
		}
		name = shared.NormalizePipName(name)
		delete(other, name)
		target[name] = struct{}{}
	}
}

func (f *FormatControl) AddNoBinary(value string) {
	HandleMutualExcludes(value, f.NoBinary, f.OnlyBinary)
}

func (f *FormatControl) AddOnlyBinary(value string) {
	HandleMutualExcludes(value, f.OnlyBinary, f.NoBinary)
}

// AllowedFormats returns the formats permitted for a canonical name.
func (f *FormatControl) AllowedFormats(canonicalName string) []string {
	binary, source := true, true
	switch {
	case has(f.OnlyBinary, canonicalName):
		source = false
	case has(f.NoBinary, canonicalName):
		binary = false
	case has(f.OnlyBinary, formatAll):
		source = false
	case has(f.NoBinary, formatAll):
		binary = false
	}
	var out []string
	if binary {
		out = append(out, FormatBinary)
	}
	if source {
		out = append(out, FormatSource)
	}
	return out
}

// DisallowBinaries forces every project to be built from source.
func (f *FormatControl) DisallowBinaries() {
	HandleMutualExcludes(formatAll, f.NoBinary, f.OnlyBinary)
}

func (f *FormatControl) String() string {
	return fmt.Sprintf("FormatControl(%s, %s)", setString(f.NoBinary), setString(f.OnlyBinary))
}

func setString(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ", ") + "}"
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}
