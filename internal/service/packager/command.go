package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"

	"github.com/oshokin/parka-boundary/internal/archive"
	"github.com/oshokin/parka-boundary/internal/config"
	domain "github.com/oshokin/parka-boundary/internal/domain/manifest"
	"github.com/oshokin/parka-boundary/internal/logger"
	repository "github.com/oshokin/parka-boundary/internal/repository/manifest"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Tag is the release tag stored verbatim in the manifest.
	Tag string
	// OutputDir receives the archives (defaults to dist/).
	OutputDir string
	// AssetsPath is the asset list to read (defaults to assets.yaml).
	AssetsPath string
	// ManifestPath is where manifest.json is written (defaults to next to the asset list).
	ManifestPath string
	// Fs is the filesystem to work on (defaults to the OS filesystem).
	Fs afero.Fs
}

// packager holds the state of a single build.
// It is unexported; callers should use Run, which encapsulates setup and validation.
type packager struct {
	// fs is where sources are read and artifacts written.
	fs afero.Fs
	// cfg is the validated asset list.
	cfg *config.Config
	// outputDir receives the archives.
	outputDir string
	// repo persists the manifest.
	repo *repository.FileRepository
	// manifest accumulates built assets.
	manifest *domain.Manifest
}

const outputDirMode os.FileMode = 0o755

var (
	// ErrSourceNotFound is returned when a declared asset directory is missing or is not a directory.
	ErrSourceNotFound = errors.New("asset source directory not found")

	errTagRequired = errors.New("release tag must be provided")
)

// Run builds every declared asset and writes the manifest.
// The manifest is written only if all assets were built.
func Run(ctx context.Context, opts *Options) (*domain.Manifest, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "packager")

	pkg, err := newPackager(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize packager: %w", err)
	}

	m, err := pkg.Run(logger.WithKV(ctx, "release_tag", opts.Tag))
	if err != nil {
		return nil, fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Packager completed successfully", "assets", len(m.Assets), "release_tag", m.ReleaseTag)

	return m, nil
}

// newPackager validates options and loads the asset list.
func newPackager(opts *Options) (*packager, error) {
	if strings.TrimSpace(opts.Tag) == "" {
		return nil, errTagRequired
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	cfg, err := config.Load(fs, opts.AssetsPath)
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.Root, config.DefaultManifestFilename)
	}

	return &packager{
		fs:        fs,
		cfg:       cfg,
		outputDir: filepath.Clean(outputDir),
		repo:      repository.NewFileRepository(fs, manifestPath),
		manifest:  domain.New(cfg.GithubRepo, opts.Tag),
	}, nil
}

// Run checks sources, builds archives in declaration order and saves the manifest.
func (p *packager) Run(ctx context.Context) (*domain.Manifest, error) {
	if err := p.checkSources(); err != nil {
		return nil, err
	}

	if err := p.fs.MkdirAll(p.outputDir, outputDirMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	logger.InfoKV(ctx, "Building assets", "count", len(p.cfg.Assets), "output", p.outputDir)

	for _, asset := range p.cfg.Assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		built, err := p.buildAsset(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Name, err)
		}

		p.manifest.Assets[asset.Name] = built

		logger.Infof(ctx, "  %s: %s (%.1f MB, sha256=%s…)",
			asset.Name, built.File, float64(built.Size)/units.MB, built.ShortChecksum())
	}

	if err := p.repo.Save(ctx, p.manifest); err != nil {
		return nil, err
	}

	logger.Infof(ctx, "  %s → %s", config.DefaultManifestFilename, p.repo.Path())

	return p.manifest, nil
}

// checkSources verifies that every declared source is an existing directory
// so that a configuration mistake is reported before any archive is written.
func (p *packager) checkSources() error {
	for _, asset := range p.cfg.Assets {
		dir := p.cfg.SourceDir(asset)

		info, err := p.fs.Stat(dir)

		switch {
		case errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("%w: %s", ErrSourceNotFound, dir)
		case err != nil:
			return fmt.Errorf("stat %s: %w", dir, err)
		case !info.IsDir():
			return fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, dir)
		}
	}

	return nil
}

// buildAsset archives one source directory and measures the result.
func (p *packager) buildAsset(ctx context.Context, asset config.Asset) (domain.Asset, error) {
	fileName := domain.ArchiveName(asset.Name)
	archivePath := filepath.Join(p.outputDir, fileName)
	sourceDir := p.cfg.SourceDir(asset)

	logger.Debugf(ctx, "Archiving %s into %s", sourceDir, archivePath)

	members, err := archive.WriteTarGz(p.fs, sourceDir, archivePath)
	if err != nil {
		return domain.Asset{}, err
	}

	if members == 0 {
		logger.WarnKV(ctx, "Asset directory has no files, archive is empty", "asset", asset.Name, "path", sourceDir)
	}

	checksum, err := archive.Checksum(p.fs, archivePath)
	if err != nil {
		return domain.Asset{}, err
	}

	info, err := p.fs.Stat(archivePath)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("stat %s: %w", archivePath, err)
	}

	return domain.Asset{
		File:      fileName,
		SHA256:    checksum,
		Size:      info.Size(),
		ExtractTo: asset.ExtractTo,
	}, nil
}
