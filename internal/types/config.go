package types

type ConfigKind string

const (
	ConfigKindGlobal ConfigKind = "global"
	ConfigKindUser   ConfigKind = "user"
	ConfigKindVenv   ConfigKind = "venv"
	ConfigKindEnv    ConfigKind = "env"
	ConfigKindEnvVar ConfigKind = "env-var"
)

// ConfigOverrideOrder lists variants from lowest to highest precedence.
var ConfigOverrideOrder = []ConfigKind{
	ConfigKindGlobal,
	ConfigKindUser,
	ConfigKindVenv,
	ConfigKindEnv,
	ConfigKindEnvVar,
}

// ConfigLoadOnlyKinds are the variants a caller may restrict loading to.
var ConfigLoadOnlyKinds = []ConfigKind{
	ConfigKindUser,
	ConfigKindGlobal,
	ConfigKindVenv,
}

// ConfigFile is the content of one INI configuration file, keyed by
// section and then option name.
type ConfigFile struct {
	Path     string
	Sections map[string]map[string]string
}

func NewConfigFile(path string) ConfigFile {
	return ConfigFile{Path: path, Sections: map[string]map[string]string{}}
}
