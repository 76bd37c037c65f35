package boundary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/parka-boundary/internal/config"
	domain "github.com/oshokin/parka-boundary/internal/domain/manifest"
	repository "github.com/oshokin/parka-boundary/internal/repository/manifest"
	"github.com/oshokin/parka-boundary/internal/version"
)

// ManifestEnv overrides the bundled manifest location when set.
const ManifestEnv = "PARKA_BOUNDARY_MANIFEST"

type (
	// Manifest describes every asset built for a release.
	Manifest = domain.Manifest
	// Asset describes one built archive.
	Asset = domain.Asset
)

var (
	// ErrManifestNotFound is returned when the bundled manifest is absent.
	ErrManifestNotFound = repository.ErrNotFound
	// ErrManifestMalformed is returned when the bundled manifest is not valid JSON.
	ErrManifestMalformed = repository.ErrMalformed
)

// ManifestPath returns where the bundled manifest is expected:
// the value of ManifestEnv if set, otherwise manifest.json beside the running executable.
func ManifestPath() (string, error) {
	if path := os.Getenv(ManifestEnv); path != "" {
		return path, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	return filepath.Join(filepath.Dir(executable), config.DefaultManifestFilename), nil
}

// GetManifest loads the bundled manifest.
// A missing or malformed file means the distribution is broken; the error is returned as is.
func GetManifest() (*Manifest, error) {
	path, err := ManifestPath()
	if err != nil {
		return nil, err
	}

	return LoadManifest(path)
}

// LoadManifest loads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	return repository.NewFileRepository(nil, path).Load(context.Background())
}

// Version returns the version of this module, or "0.0.0" if unknown.
func Version() string {
	return version.Short()
}
