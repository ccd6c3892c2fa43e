// Package deprecation reports use of deprecated behaviour. Each distinct
// message is logged once; messages past their removal version become
// errors instead.
package deprecation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LoggerName   = "pipkit.deprecations"
	WarningsEnv  = "PIPKIT_WARNINGS"
	IssueURLBase = "https://github.com/pypa/pip/issues/"
)

// Reporter emits deprecation warnings.
type Reporter struct {
	CurrentVersion string
	Getenv         func(string) string

	mu     sync.Mutex
	seen   map[string]struct{}
	logger *zerolog.Logger
}

func NewReporter(currentVersion string) *Reporter {
	return &Reporter{
		CurrentVersion: currentVersion,
		Getenv:         os.Getenv,
		seen:           map[string]struct{}{},
	}
}

var std = NewReporter("0.1.0")

// Default returns the process-wide reporter.
func Default() *Reporter {
	return std
}

// InstallWarningLogger routes warnings from the default reporter to logger.
func InstallWarningLogger(logger zerolog.Logger) {
	std.InstallLogger(logger)
}

// Deprecated reports through the default reporter.
func Deprecated(ctx context.Context, reason string, replacement string, goneIn string, issue int) error {
	return std.Deprecated(ctx, reason, replacement, goneIn, issue)
}

func (r *Reporter) InstallLogger(logger zerolog.Logger) {
	named := logger.With().Str("logger", LoggerName).Logger()
	r.mu.Lock()
	r.logger = &named
	r.mu.Unlock()
}

// Message renders the text shown for a deprecation. Empty replacement and
// a zero issue are omitted.
func Message(reason string, replacement string, issue int) string {
	message := "DEPRECATION: " + reason
	if replacement != "" {
		message += fmt.Sprintf(" A possible replacement is %s.", replacement)
	}
	if issue > 0 {
		message += fmt.Sprintf(" You can find discussion regarding this at %s%d.", IssueURLBase, issue)
	}
	return message
}

// Deprecated warns about reason, or returns an error once the current
// version has reached goneIn.
func (r *Reporter) Deprecated(ctx context.Context, reason string, replacement string, goneIn string, issue int) error {
	message := Message(reason, replacement, issue)
	if r.removed(goneIn) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(message)
	}
	if r.ignored() {
		return nil
	}
	r.mu.Lock()
	if _, ok := r.seen[message]; ok {
		r.mu.Unlock()
		return nil
	}
	r.seen[message] = struct{}{}
	logger := r.logger
	r.mu.Unlock()

	if logger == nil {
		named := log.Ctx(ctx).With().Str("logger", LoggerName).Logger()
		if log.Ctx(ctx).GetLevel() == zerolog.Disabled {
			named = log.Logger.With().Str("logger", LoggerName).Logger()
		}
		logger = &named
	}
	logger.Warn().Msg(message)
	return nil
}

// Reset forgets which messages were already shown.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.seen = map[string]struct{}{}
	r.mu.Unlock()
}

func (r *Reporter) removed(goneIn string) bool {
	if strings.TrimSpace(goneIn) == "" {
		return false
	}
	current, err := pep440.Parse(r.CurrentVersion)
	if err != nil {
		return false
	}
	gone, err := pep440.Parse(goneIn)
	if err != nil {
		return false
	}
	return current.Compare(gone) >= 0
}

func (r *Reporter) ignored() bool {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return strings.EqualFold(strings.TrimSpace(getenv(WarningsEnv)), "ignore")
}
