package app

import (
	"context"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pipkit/internal/core"
)

func (s Service) configuration(ctx context.Context, req ConfigRequest) (*core.Configuration, error) {
	cfg, err := core.NewConfiguration(s.ConfigFiles, req.Isolated, req.LoadOnly)
	if err != nil {
		return nil, err
	}
	if s.ConfigLocations != nil {
		cfg.Locations = s.ConfigLocations()
	}
	cfg.Environ = s.Environ
	if err := cfg.Load(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigList returns every configured key, sorted.
func (s Service) ConfigList(ctx context.Context, req ConfigRequest) (ConfigListResult, error) {
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return ConfigListResult{}, err
	}
	items := cfg.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	result := ConfigListResult{Items: make([]ConfigItem, 0, len(keys))}
	for _, key := range keys {
		result.Items = append(result.Items, ConfigItem{Key: key, Value: items[key]})
	}
	return result, nil
}

func (s Service) ConfigGet(ctx context.Context, req ConfigRequest) (ConfigGetResult, error) {
	if err := requireConfigKey(req.Key); err != nil {
		return ConfigGetResult{}, err
	}
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return ConfigGetResult{}, err
	}
	value, err := cfg.GetValue(req.Key)
	if err != nil {
		return ConfigGetResult{}, err
	}
	return ConfigGetResult{Value: value}, nil
}

// ConfigSet writes key=value to the file of req.LoadOnly.
func (s Service) ConfigSet(ctx context.Context, req ConfigRequest) (ConfigEditResult, error) {
	return s.editConfig(ctx, req, func(ctx context.Context, cfg *core.Configuration) error {
		return cfg.SetValue(ctx, req.Key, req.Value)
	})
}

func (s Service) ConfigUnset(ctx context.Context, req ConfigRequest) (ConfigEditResult, error) {
	return s.editConfig(ctx, req, func(ctx context.Context, cfg *core.Configuration) error {
		return cfg.UnsetValue(ctx, req.Key)
	})
}

func (s Service) editConfig(ctx context.Context, req ConfigRequest, edit func(context.Context, *core.Configuration) error) (ConfigEditResult, error) {
	if err := requireConfigKey(req.Key); err != nil {
		return ConfigEditResult{}, err
	}
	if req.LoadOnly == "" {
		return ConfigEditResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("Needed a specific file to be modifying.")
	}
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return ConfigEditResult{}, err
	}
	file, err := cfg.GetFileToEdit()
	if err != nil {
		return ConfigEditResult{}, err
	}
	if err := edit(ctx, cfg); err != nil {
		return ConfigEditResult{}, err
	}
	if err := cfg.Save(ctx); err != nil {
		return ConfigEditResult{}, err
	}
	return ConfigEditResult{File: file}, nil
}

func requireConfigKey(key string) error {
	if key == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("configuration key is required")
	}
	return nil
}

// configValue looks name up the way an install command would: the
// environment first, then the [install] section, then [global].
func configValue(items map[string]string, name string) (string, bool) {
	for _, section := range []string{":env:", "install", "global"} {
		if value, ok := items[section+"."+name]; ok {
			return value, true
		}
	}
	return "", false
}

func (s Service) loadConfigItems(ctx context.Context, isolated bool) (map[string]string, error) {
	if s.ConfigFiles == nil {
		return map[string]string{}, nil
	}
	cfg, err := s.configuration(ctx, ConfigRequest{Isolated: isolated})
	if err != nil {
		return nil, err
	}
	return cfg.Items(), nil
}
