package ports

import (
	"context"

	"pipkit/internal/types"
)

// ConfigFilePort reads and writes INI configuration files. Reading a file
// that does not exist yields an empty ConfigFile.
type ConfigFilePort interface {
	Read(ctx context.Context, path string) (types.ConfigFile, error)
	Write(ctx context.Context, file types.ConfigFile) error
}
