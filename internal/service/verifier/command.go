package verifier

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/oshokin/parka-boundary/internal/archive"
	"github.com/oshokin/parka-boundary/internal/config"
	domain "github.com/oshokin/parka-boundary/internal/domain/manifest"
	"github.com/oshokin/parka-boundary/internal/logger"
	repository "github.com/oshokin/parka-boundary/internal/repository/manifest"
)

// Options contains inputs for the verifier entry point.
type Options struct {
	// ManifestPath is the manifest to check against.
	ManifestPath string
	// Dir holds the archives named in the manifest (defaults to dist/).
	Dir string
	// Fs is the filesystem to read from (defaults to the OS filesystem).
	Fs afero.Fs
}

var (
	// ErrVerificationFailed is returned when at least one archive does not match the manifest.
	ErrVerificationFailed = errors.New("verification failed")

	errManifestPathRequired = errors.New("manifest path must be provided")
	errSizeMismatch         = errors.New("size mismatch")
	errChecksumMismatch     = errors.New("checksum mismatch")
)

// Run loads the manifest and checks the size and checksum of every archive it lists.
// All mismatches are reported together.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "verifier")

	if opts.ManifestPath == "" {
		return errManifestPathRequired
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	dir := opts.Dir
	if dir == "" {
		dir = config.DefaultOutputDir
	}

	m, err := repository.NewFileRepository(fs, opts.ManifestPath).Load(ctx)
	if err != nil {
		return err
	}

	var failures error

	for _, name := range m.Names() {
		if err = verifyAsset(fs, dir, m.Assets[name]); err != nil {
			logger.ErrorKV(ctx, "Asset does not match manifest", "asset", name, "error", err)
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", name, err))

			continue
		}

		logger.InfoKV(ctx, "Asset verified", "asset", name, "sha256", m.Assets[name].ShortChecksum())
	}

	if failures != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, failures)
	}

	logger.InfoKV(ctx, "All assets verified", "release_tag", m.ReleaseTag, "assets", len(m.Assets))

	return nil
}

func verifyAsset(fs afero.Fs, dir string, asset domain.Asset) error {
	path := filepath.Join(dir, filepath.FromSlash(asset.File))

	info, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if info.Size() != asset.Size {
		return fmt.Errorf("%w: manifest has %d bytes, file has %d", errSizeMismatch, asset.Size, info.Size())
	}

	checksum, err := archive.Checksum(fs, path)
	if err != nil {
		return err
	}

	if checksum != asset.SHA256 {
		return fmt.Errorf("%w: manifest has %s, file has %s", errChecksumMismatch, asset.SHA256, checksum)
	}

	return nil
}
