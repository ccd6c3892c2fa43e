package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/ports"
	"pipkit/internal/types"
)

const (
	configBasename = "pip.conf"
	envSection     = ":env:"
	envPrefix      = "PIP_"
	configFileEnv  = "PIP_CONFIG_FILE"
)

var ignoredEnvNames = map[string]struct{}{"version": {}, "help": {}}

// ConfigLocations lists the files each configuration variant reads.
type ConfigLocations struct {
	Site []string
	User []string
	// Venv is empty outside a virtual environment.
	Venv string
}

// DefaultConfigLocations resolves the XDG and legacy locations from the
// process environment.
func DefaultConfigLocations() ConfigLocations {
	var locations ConfigLocations

	siteDirs := os.Getenv("XDG_CONFIG_DIRS")
	if siteDirs == "" {
		siteDirs = "/etc/xdg"
	}
	for _, dir := range filepath.SplitList(siteDirs) {
		locations.Site = append(locations.Site, filepath.Join(dir, "pip", configBasename))
	}
	locations.Site = append(locations.Site, filepath.Join("/etc", configBasename))

	if home, err := os.UserHomeDir(); err == nil {
		locations.User = append(locations.User, filepath.Join(home, ".pip", configBasename))
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		locations.User = append(locations.User, filepath.Join(configHome, "pip", configBasename))
	}

	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		locations.Venv = filepath.Join(venv, configBasename)
	}
	return locations
}

type configParser struct {
	file     types.ConfigFile
	inMemory bool
}

// Configuration merges pip configuration from files and the environment.
// Later variants in types.ConfigOverrideOrder override earlier ones.
type Configuration struct {
	Isolated  bool
	LoadOnly  types.ConfigKind
	Files     ports.ConfigFilePort
	Locations ConfigLocations
	// Environ returns the process environment; os.Environ when nil.
	Environ func() []string

	parsers  map[types.ConfigKind][]*configParser
	config   map[types.ConfigKind]map[string]string
	modified []*configParser
	overlays []configOverlay
}

type configOverlay struct {
	kind   types.ConfigKind
	values map[string]string
}

// NewConfiguration validates loadOnly, which may be empty or one of
// types.ConfigLoadOnlyKinds.
func NewConfiguration(files ports.ConfigFilePort, isolated bool, loadOnly types.ConfigKind) (*Configuration, error) {
	if loadOnly != "" && !validLoadOnly(loadOnly) {
		quoted := make([]string, 0, len(types.ConfigLoadOnlyKinds))
		for _, kind := range types.ConfigLoadOnlyKinds {
			quoted = append(quoted, fmt.Sprintf("'%s'", kind))
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("Got invalid value for load_only - should be one of " + strings.Join(quoted, ", "))
	}
	c := &Configuration{
		Isolated:  isolated,
		LoadOnly:  loadOnly,
		Files:     files,
		Locations: DefaultConfigLocations(),
	}
	c.reset()
	return c, nil
}

func validLoadOnly(kind types.ConfigKind) bool {
	for _, valid := range types.ConfigLoadOnlyKinds {
		if kind == valid {
			return true
		}
	}
	return false
}

func (c *Configuration) reset() {
	c.parsers = map[types.ConfigKind][]*configParser{}
	c.config = map[types.ConfigKind]map[string]string{}
	for _, kind := range types.ConfigOverrideOrder {
		c.config[kind] = map[string]string{}
	}
	c.modified = nil
}

// Overlay registers in-memory values for kind that are applied on Load,
// as if read from an extra file of that variant.
func (c *Configuration) Overlay(kind types.ConfigKind, values map[string]string) {
	c.overlays = append(c.overlays, configOverlay{kind: kind, values: values})
}

// Load reads every configuration file, then PIP_* environment variables
// unless isolated.
func (c *Configuration) Load(ctx context.Context) error {
	if c.parsers == nil {
		c.reset()
	}
	for _, overlay := range c.overlays {
		for key, value := range overlay.values {
			c.config[overlay.kind][key] = value
		}
		c.parsers[overlay.kind] = append(c.parsers[overlay.kind], &configParser{inMemory: true})
	}
	if err := c.loadConfigFiles(ctx); err != nil {
		return err
	}
	if !c.Isolated {
		c.loadEnvironmentVars()
	}
	return nil
}

func (c *Configuration) environ() []string {
	if c.Environ != nil {
		return c.Environ()
	}
	return os.Environ()
}

func (c *Configuration) lookupEnv(name string) (string, bool) {
	for _, entry := range c.environ() {
		if key, value, ok := strings.Cut(entry, "="); ok && key == name {
			return value, true
		}
	}
	return "", false
}

type configFiles struct {
	kind  types.ConfigKind
	paths []string
}

func (c *Configuration) iterConfigFiles() []configFiles {
	configFile, hasConfigFile := c.lookupEnv(configFileEnv)
	var out []configFiles
	if hasConfigFile {
		out = append(out, configFiles{kind: types.ConfigKindEnv, paths: []string{configFile}})
	} else {
		out = append(out, configFiles{kind: types.ConfigKindEnv})
	}
	out = append(out, configFiles{kind: types.ConfigKindGlobal, paths: c.Locations.Site})

	loadUser := !c.Isolated
	if configFile != "" && pathExists(configFile) {
		loadUser = false
	}
	if loadUser {
		out = append(out, configFiles{kind: types.ConfigKindUser, paths: c.Locations.User})
	}
	if c.Locations.Venv != "" {
		out = append(out, configFiles{kind: types.ConfigKindVenv, paths: []string{c.Locations.Venv}})
	}
	return out
}

func (c *Configuration) loadConfigFiles(ctx context.Context) error {
	files := c.iterConfigFiles()
	if env := files[0]; len(env.paths) > 0 && env.paths[0] == os.DevNull {
		log.Ctx(ctx).Debug().Msg("Skipping loading configuration files due to environment's PIP_CONFIG_FILE being os.devnull")
		return nil
	}
	if c.Files == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("configuration file reader is not configured")
	}
	for _, group := range files {
		for _, path := range group.paths {
			if c.LoadOnly != "" && group.kind != c.LoadOnly {
				log.Ctx(ctx).Debug().Str("variant", string(group.kind)).Msgf("Skipping file '%s'", path)
				continue
			}
			log.Ctx(ctx).Debug().Str("variant", string(group.kind)).Msgf("Will try loading '%s'", path)
			file, err := c.Files.Read(ctx, path)
			if err != nil {
				return err
			}
			for section, values := range file.Sections {
				for name, value := range values {
					c.config[group.kind][section+"."+normalizeConfigName(name)] = value
				}
			}
			c.parsers[group.kind] = append(c.parsers[group.kind], &configParser{file: file})
		}
	}
	return nil
}

func (c *Configuration) loadEnvironmentVars() {
	for _, entry := range c.environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		name := strings.ToLower(key[len(envPrefix):])
		if _, ignored := ignoredEnvNames[name]; ignored {
			continue
		}
		c.config[types.ConfigKindEnvVar][envSection+"."+normalizeConfigName(name)] = value
	}
}

func normalizeConfigName(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	return strings.TrimPrefix(name, "--")
}

func disassembleKey(key string) (string, string) {
	section, name, _ := strings.Cut(key, ".")
	return section, name
}

// Items returns every key merged across variants.
func (c *Configuration) Items() map[string]string {
	merged := map[string]string{}
	for _, kind := range types.ConfigOverrideOrder {
		for key, value := range c.config[kind] {
			merged[key] = value
		}
	}
	return merged
}

func (c *Configuration) GetValue(key string) (string, error) {
	value, ok := c.Items()[key]
	if !ok {
		return "", noSuchKey(key)
	}
	return value, nil
}

// GetFileToEdit returns the file Set and Unset would modify.
func (c *Configuration) GetFileToEdit() (string, error) {
	if err := c.ensureHaveLoadOnly(); err != nil {
		return "", err
	}
	parsers := c.parsers[c.LoadOnly]
	if len(parsers) == 0 {
		return "", nil
	}
	return parsers[len(parsers)-1].file.Path, nil
}

func (c *Configuration) SetValue(ctx context.Context, key string, value string) error {
	if err := c.ensureHaveLoadOnly(); err != nil {
		return err
	}
	parser, err := c.parserToModify()
	if err != nil {
		return err
	}
	if !parser.inMemory {
		section, name := disassembleKey(key)
		if parser.file.Sections == nil {
			parser.file.Sections = map[string]map[string]string{}
		}
		if parser.file.Sections[section] == nil {
			parser.file.Sections[section] = map[string]string{}
		}
		parser.file.Sections[section][name] = value
	}
	c.config[c.LoadOnly][key] = value
	c.markAsModified(parser)
	log.Ctx(ctx).Debug().Str("key", key).Str("variant", string(c.LoadOnly)).Msg("configuration value set")
	return nil
}

func (c *Configuration) UnsetValue(ctx context.Context, key string) error {
	if err := c.ensureHaveLoadOnly(); err != nil {
		return err
	}
	if _, ok := c.config[c.LoadOnly][key]; !ok {
		return noSuchKey(key)
	}
	parser, err := c.parserToModify()
	if err != nil {
		return err
	}
	if !parser.inMemory {
		section, name := disassembleKey(key)
		values, ok := parser.file.Sections[section]
		if _, present := values[name]; !ok || !present {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("Fatal Internal error [id=1]. Please report as a bug.")
		}
		delete(values, name)
		if len(values) == 0 {
			delete(parser.file.Sections, section)
		}
		c.markAsModified(parser)
	}
	delete(c.config[c.LoadOnly], key)
	log.Ctx(ctx).Debug().Str("key", key).Str("variant", string(c.LoadOnly)).Msg("configuration value unset")
	return nil
}

// Save writes every file modified by SetValue or UnsetValue.
func (c *Configuration) Save(ctx context.Context) error {
	if err := c.ensureHaveLoadOnly(); err != nil {
		return err
	}
	for _, parser := range c.modified {
		if parser.inMemory {
			continue
		}
		log.Ctx(ctx).Info().Msgf("Writing to %s", parser.file.Path)
		if err := c.Files.Write(ctx, parser.file); err != nil {
			return err
		}
	}
	return nil
}

func (c *Configuration) ensureHaveLoadOnly() error {
	if c.LoadOnly == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("Needed a specific file to be modifying.")
	}
	return nil
}

func (c *Configuration) parserToModify() (*configParser, error) {
	parsers := c.parsers[c.LoadOnly]
	if len(parsers) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("Fatal Internal error [id=2]. Please report as a bug.")
	}
	return parsers[len(parsers)-1], nil
}

func (c *Configuration) markAsModified(parser *configParser) {
	for _, seen := range c.modified {
		if seen == parser {
			return
		}
	}
	c.modified = append(c.modified, parser)
}

func noSuchKey(key string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("No such key - " + key)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
