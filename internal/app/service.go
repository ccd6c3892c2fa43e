package app

import (
	"os"

	"pipkit/internal/adapters"
	"pipkit/internal/core"
	"pipkit/internal/deprecation"
	"pipkit/internal/ports"
	"pipkit/internal/vcs"
)

type Service struct {
	Requirements    ports.RequirementsSourcePort
	Distributions   ports.DistributionSourcePort
	SearchIndex     ports.SearchIndexPort
	ConfigFiles     ports.ConfigFilePort
	ConfigLocations func() core.ConfigLocations
	GitRepository   ports.GitRepositoryPort
	Exec            ports.CommandExecutorPort
	Deprecations    *deprecation.Reporter
	Getenv          func(string) string
	Environ         func() []string
}

func NewService() Service {
	return NewServiceWithHTTP(adapters.HTTPOptions{})
}

// NewServiceWithHTTP wires the default adapters with the given timeout,
// retry and credential settings for index requests.
func NewServiceWithHTTP(opts adapters.HTTPOptions) Service {
	exec := adapters.NewExecCommandAdapter()
	return Service{
		Requirements:    adapters.NewRequirementsSourceAdapter(opts),
		Distributions:   adapters.NewSitePackagesAdapter(nil, os.Getenv("VIRTUAL_ENV"), exec),
		SearchIndex:     adapters.NewXMLRPCSearchAdapter(opts),
		ConfigFiles:     adapters.NewINIConfigFileAdapter(),
		ConfigLocations: core.DefaultConfigLocations,
		GitRepository:   adapters.NewGitRepositoryAdapter(),
		Exec:            exec,
		Deprecations:    deprecation.Default(),
		Getenv:          os.Getenv,
		Environ:         os.Environ,
	}
}

func (s Service) vcsRegistry() *vcs.Registry {
	return vcs.NewDefaultRegistry(s.GitRepository, s.Exec)
}

func (s Service) getenv(key string) string {
	if s.Getenv == nil {
		return os.Getenv(key)
	}
	return s.Getenv(key)
}
