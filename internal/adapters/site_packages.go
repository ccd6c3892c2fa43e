package adapters

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/ports"
	"pipkit/internal/shared"
	"pipkit/internal/types"
)

const sysPathScript = "import sys; print('\\n'.join(p for p in sys.path if p))"

// SitePackagesAdapter discovers installed distributions by scanning
// site-packages directories for dist-info and egg-info metadata.
type SitePackagesAdapter struct {
	Paths []string
	// Prefix bounds local_only listings, usually the active virtualenv.
	Prefix string
	// Exec and Python locate site-packages through the interpreter's
	// sys.path when Paths is empty.
	Exec   ports.CommandExecutorPort
	Python string
}

func NewSitePackagesAdapter(paths []string, prefix string, exec ports.CommandExecutorPort) SitePackagesAdapter {
	return SitePackagesAdapter{Paths: paths, Prefix: prefix, Exec: exec, Python: "python3"}
}

func (a SitePackagesAdapter) Distributions(ctx context.Context, opts types.ListOptions) ([]types.Distribution, error) {
	paths, err := a.searchPaths(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var dists []types.Distribution
	for _, dir := range paths {
		found, err := scanSitePackages(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, dist := range found {
			key := shared.NormalizePipName(dist.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			dist.Local = a.Prefix == "" || isWithin(dist.Location, a.Prefix)
			dists = append(dists, dist)
		}
	}
	return filterDistributions(dists, opts), nil
}

func (a SitePackagesAdapter) searchPaths(ctx context.Context) ([]string, error) {
	if len(a.Paths) > 0 {
		return a.Paths, nil
	}
	if a.Exec == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no site-packages paths configured")
	}
	python := a.Python
	if python == "" {
		python = "python3"
	}
	if _, err := a.Exec.LookPath(python); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("python interpreter not found: " + python).
			WithCause(err)
	}
	out, err := a.Exec.Run(ctx, "", python, "-c", sysPathScript)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to query python sys.path").
			WithCause(shared.CommandError(out, err))
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	log.Ctx(ctx).Debug().Strs("paths", paths).Msg("discovered site-packages")
	return paths, nil
}

func scanSitePackages(ctx context.Context, dir string) ([]types.Distribution, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) || !isDir(dir) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read site-packages").
			WithCause(err)
	}
	var dists []types.Distribution
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		var (
			dist types.Distribution
			ok   bool
		)
		switch {
		case strings.HasSuffix(entry.Name(), ".dist-info") && entry.IsDir():
			dist, ok = readMetadataFile(ctx, filepath.Join(path, "METADATA"))
		case strings.HasSuffix(entry.Name(), ".egg-info") && entry.IsDir():
			dist, ok = readMetadataFile(ctx, filepath.Join(path, "PKG-INFO"))
			if ok {
				dist.Requires = readEggRequires(filepath.Join(path, "requires.txt"))
			}
		case strings.HasSuffix(entry.Name(), ".egg-info"):
			dist, ok = readMetadataFile(ctx, path)
		case strings.HasSuffix(entry.Name(), ".egg-link"):
			dist, ok = readEggLink(ctx, path)
		}
		if !ok {
			continue
		}
		if dist.Location == "" {
			dist.Location = dir
		}
		dists = append(dists, dist)
	}
	return dists, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func readMetadataFile(ctx context.Context, path string) (types.Distribution, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("skipping unreadable metadata")
		return types.Distribution{}, false
	}
	header, err := parseMetadata(data)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("skipping malformed metadata")
		return types.Distribution{}, false
	}
	dist := types.Distribution{
		Name:     strings.TrimSpace(header.Get("Name")),
		Version:  strings.TrimSpace(header.Get("Version")),
		Requires: header.Values("Requires-Dist"),
	}
	if dist.Name == "" {
		return types.Distribution{}, false
	}
	return dist, true
}

func parseMetadata(data []byte) (textproto.MIMEHeader, error) {
	reader := textproto.NewReader(bufio.NewReader(bytes.NewReader(data)))
	header, err := reader.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, err
	}
	return header, nil
}

// readEggRequires returns the unconditional requirements of requires.txt.
// Marker-only sections become markers; extra sections are skipped.
func readEggRequires(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var (
		requires []string
		marker   string
		skip     bool
	)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.TrimSpace(line[1 : len(line)-1])
			extra, sectionMarker, _ := strings.Cut(section, ":")
			skip = strings.TrimSpace(extra) != ""
			marker = strings.TrimSpace(sectionMarker)
			continue
		}
		if skip {
			continue
		}
		if marker != "" {
			line += "; " + marker
		}
		requires = append(requires, line)
	}
	return requires
}

func readEggLink(ctx context.Context, path string) (types.Distribution, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Distribution{}, false
	}
	target, _, _ := strings.Cut(string(data), "\n")
	target = strings.TrimSpace(target)
	if target == "" {
		return types.Distribution{}, false
	}
	matches, _ := filepath.Glob(filepath.Join(target, "*.egg-info"))
	for _, match := range matches {
		dist, ok := readMetadataFile(ctx, filepath.Join(match, "PKG-INFO"))
		if !ok {
			continue
		}
		dist.Requires = readEggRequires(filepath.Join(match, "requires.txt"))
		dist.Location = target
		dist.Editable = true
		return dist, true
	}
	return types.Distribution{}, false
}

func filterDistributions(dists []types.Distribution, opts types.ListOptions) []types.Distribution {
	skip := make(map[string]struct{}, len(opts.Skip))
	for _, name := range opts.Skip {
		skip[shared.NormalizePipName(name)] = struct{}{}
	}
	out := make([]types.Distribution, 0, len(dists))
	for _, dist := range dists {
		if _, ok := skip[shared.NormalizePipName(dist.Name)]; ok {
			continue
		}
		if opts.LocalOnly && !dist.Local {
			continue
		}
		out = append(out, dist)
	}
	return out
}

func isWithin(path string, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, "../")
}

var _ ports.DistributionSourcePort = SitePackagesAdapter{}
