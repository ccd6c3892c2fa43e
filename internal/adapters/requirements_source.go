package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/ports"
	"pipkit/internal/shared"
)

var (
	requirementsURLRe = regexp.MustCompile(`(?i)^(http|https|file):`)
	urlSlashDriveRe   = regexp.MustCompile(`(?i)^/*([a-z])\|`)
)

const utf8BOM = "\ufeff"

// RequirementsSourceAdapter reads requirements files from local paths,
// file: URLs and HTTP(S) URLs.
type RequirementsSourceAdapter struct {
	HTTP HTTPOptions
}

func NewRequirementsSourceAdapter(opts HTTPOptions) RequirementsSourceAdapter {
	return RequirementsSourceAdapter{HTTP: opts}
}

func (a RequirementsSourceAdapter) Fetch(ctx context.Context, location string, comesFrom string) (string, string, error) {
	if match := requirementsURLRe.FindStringSubmatch(location); match != nil {
		scheme := strings.ToLower(match[1])
		if scheme != "file" {
			return a.fetchRemote(ctx, location)
		}
		if strings.HasPrefix(comesFrom, "http") {
			return "", "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("Requirements file %s references URL %s, which is local", comesFrom, location))
		}
		location = fileURLPath(location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("Could not open requirements file: %s", err)).
			WithCause(err)
	}
	return location, decodeRequirements(data), nil
}

func (a RequirementsSourceAdapter) fetchRemote(ctx context.Context, location string) (string, string, error) {
	log.Ctx(ctx).Debug().Str("url", location).Msg("fetching requirements file")
	resp, err := doRequest(ctx, httpRequest{method: http.MethodGet, url: location}, normalizeHTTPConfig(a.HTTP))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", errbuilder.New().
			WithCode(httpStatusCode(resp.StatusCode)).
			WithMsg("failed to fetch requirements file").
			WithCause(shared.HTTPStatusError(resp.StatusCode, location))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read requirements file").
			WithCause(err)
	}
	final := location
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return final, decodeRequirements(data), nil
}

func fileURLPath(location string) string {
	_, path, _ := strings.Cut(location, ":")
	path = strings.ReplaceAll(path, `\`, "/")
	if match := urlSlashDriveRe.FindStringSubmatch(path); match != nil {
		_, rest, _ := strings.Cut(path, "|")
		path = match[1] + ":" + rest
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	if strings.HasPrefix(path, "/") {
		path = "/" + strings.TrimLeft(path, "/")
	}
	return path
}

func decodeRequirements(data []byte) string {
	return strings.TrimPrefix(string(data), utf8BOM)
}

var _ ports.RequirementsSourcePort = RequirementsSourceAdapter{}
