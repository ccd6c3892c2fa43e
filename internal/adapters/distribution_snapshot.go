package adapters

import (
	"context"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"pipkit/internal/ports"
	"pipkit/internal/types"
)

// DistributionSnapshotAdapter serves installed distributions from a YAML
// snapshot, typically captured from another environment.
type DistributionSnapshotAdapter struct {
	Path   string
	cached types.DistributionSnapshot
	loaded bool
}

func NewDistributionSnapshotAdapter(path string) *DistributionSnapshotAdapter {
	return &DistributionSnapshotAdapter{Path: path}
}

func (a *DistributionSnapshotAdapter) Distributions(_ context.Context, opts types.ListOptions) ([]types.Distribution, error) {
	snapshot, err := a.load()
	if err != nil {
		return nil, err
	}
	return filterDistributions(snapshot.Distributions, opts), nil
}

func (a *DistributionSnapshotAdapter) load() (types.DistributionSnapshot, error) {
	if a.loaded {
		return a.cached, nil
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return types.DistributionSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("distribution snapshot not found").
			WithCause(err)
	}
	var snapshot types.DistributionSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return types.DistributionSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid distribution snapshot format").
			WithCause(err)
	}
	for i, dist := range snapshot.Distributions {
		if dist.Name == "" || dist.Version == "" {
			return types.DistributionSnapshot{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("distribution snapshot entry %d is missing name or version", i))
		}
	}
	a.cached = snapshot
	a.loaded = true
	return snapshot, nil
}

// WriteDistributionSnapshot saves dists in the format the adapter reads.
func WriteDistributionSnapshot(path string, dists []types.Distribution) error {
	data, err := yaml.Marshal(types.DistributionSnapshot{Distributions: dists})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode distribution snapshot").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write distribution snapshot").
			WithCause(err)
	}
	return nil
}

var _ ports.DistributionSourcePort = (*DistributionSnapshotAdapter)(nil)
