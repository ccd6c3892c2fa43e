package ports

import "context"

// RequirementsSourcePort reads requirements files from disk or over HTTP.
type RequirementsSourcePort interface {
	// Fetch returns the final location and decoded content of location.
	// comesFrom names the file that referenced it, if any.
	Fetch(ctx context.Context, location string, comesFrom string) (string, string, error)
}
