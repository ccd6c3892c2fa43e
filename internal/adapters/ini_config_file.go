package adapters

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/ini.v1"

	"pipkit/internal/ports"
	"pipkit/internal/types"
)

// INIConfigFileAdapter reads and writes pip.conf style INI files.
type INIConfigFileAdapter struct{}

func NewINIConfigFileAdapter() INIConfigFileAdapter {
	return INIConfigFileAdapter{}
}

func iniLoadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		Loose:                      true,
		InsensitiveKeys:            true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}
}

func (a INIConfigFileAdapter) Read(ctx context.Context, path string) (types.ConfigFile, error) {
	file := types.NewConfigFile(path)
	cfg, err := ini.LoadSources(iniLoadOptions(), path)
	if err != nil {
		return types.ConfigFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("Configuration file could not be loaded.").
			WithCause(err)
	}
	defaults := cfg.Section(ini.DefaultSection).KeysHash()
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		values := make(map[string]string, len(defaults)+len(section.Keys()))
		for key, value := range defaults {
			values[key] = value
		}
		for _, key := range section.Keys() {
			values[key.Name()] = key.Value()
		}
		file.Sections[section.Name()] = values
	}
	log.Ctx(ctx).Debug().Str("path", path).Int("sections", len(file.Sections)).Msg("read config file")
	return file, nil
}

// Write syncs file into the INI document on disk, keeping comments and
// the order of sections that already exist.
func (a INIConfigFileAdapter) Write(ctx context.Context, file types.ConfigFile) error {
	cfg, err := ini.LoadSources(iniLoadOptions(), file.Path)
	if err != nil {
		cfg = ini.Empty()
	}
	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		values, ok := file.Sections[name]
		if !ok {
			cfg.DeleteSection(name)
			continue
		}
		for _, key := range section.Keys() {
			if _, keep := values[key.Name()]; !keep {
				section.DeleteKey(key.Name())
			}
		}
	}
	names := make([]string, 0, len(file.Sections))
	for name := range file.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		section := cfg.Section(name)
		values := file.Sections[name]
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			section.Key(key).SetValue(values[key])
		}
	}
	if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create config directory").
			WithCause(err)
	}
	if err := cfg.SaveTo(file.Path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write config file").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Str("path", file.Path).Msg("wrote config file")
	return nil
}

var _ ports.ConfigFilePort = INIConfigFileAdapter{}
