package packager

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/parka-boundary/internal/archive"
	"github.com/oshokin/parka-boundary/internal/config"
	"github.com/oshokin/parka-boundary/internal/logger"
	repository "github.com/oshokin/parka-boundary/internal/repository/manifest"
)

const boundaryAssets = `github_repo: parka/boundary-data
assets:
  boundary:
    path: data/boundary
    extract_to: share/parka
`

// newFixture lays out a repository with an asset list and source trees on an in-memory filesystem.
func newFixture(t *testing.T, assetsYAML string, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/assets.yaml", []byte(assetsYAML), 0o644))

	for name, contents := range files {
		path := filepath.Join("/repo", filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0o644))
	}

	return fs
}

func quietContext() context.Context {
	return logger.ToContext(context.Background(), logger.New(zapcore.ErrorLevel, zapcore.AddSync(&bytes.Buffer{})))
}

func sha256Of(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	contents, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	sum := sha256.Sum256(contents)

	return hex.EncodeToString(sum[:])
}

// TestRun_BoundaryScenario builds a single asset and checks archive, checksum, size and manifest.
func TestRun_BoundaryScenario(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, boundaryAssets, map[string]string{
		"data/boundary/a.txt":   "a",
		"data/boundary/b/c.txt": "c",
	})

	m, err := Run(quietContext(), &Options{
		Tag:        "v1.0.0",
		OutputDir:  "/repo/dist",
		AssetsPath: "/repo/assets.yaml",
		Fs:         fs,
	})
	require.NoError(t, err)

	require.Equal(t, "parka/boundary-data", m.GithubRepo)
	require.Equal(t, "v1.0.0", m.ReleaseTag)
	require.Len(t, m.Assets, 1)

	built := m.Assets["boundary"]
	require.Equal(t, "boundary.tar.gz", built.File)
	require.Equal(t, "share/parka", built.ExtractTo)
	require.True(t, built.HasValidChecksum())

	archivePath := "/repo/dist/boundary.tar.gz"
	require.Equal(t, sha256Of(t, fs, archivePath), built.SHA256)

	info, err := fs.Stat(archivePath)
	require.NoError(t, err)
	require.Equal(t, info.Size(), built.Size)

	members, err := archive.List(fs, archivePath)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b/c.txt"}, members)

	// The manifest lands next to the asset list by default and matches the returned value.
	saved, err := repository.NewFileRepository(fs, "/repo/manifest.json").Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, m, saved)
}

// TestRun_OneArchivePerAsset checks that manifest keys equal the declared names.
func TestRun_OneArchivePerAsset(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, `github_repo: parka/boundary-data
assets:
  roads:
    path: data/roads
    extract_to: share/parka/roads
  boundary:
    path: data/boundary
    extract_to: share/parka
  empty:
    path: data/empty
    extract_to: share/parka/empty
`, map[string]string{
		"data/roads/r.geojson":  "{}",
		"data/boundary/a.txt":   "a",
		"data/empty/.gitignore": "",
	})

	m, err := Run(quietContext(), &Options{
		Tag:          "v0.2.0",
		OutputDir:    "/out/nested/dist",
		AssetsPath:   "/repo/assets.yaml",
		ManifestPath: "/bundle/manifest.json",
		Fs:           fs,
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"roads", "boundary", "empty"}, m.Names())

	entries, err := afero.ReadDir(fs, "/out/nested/dist")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	require.ElementsMatch(t, []string{"roads.tar.gz", "boundary.tar.gz", "empty.tar.gz"}, names)

	exists, err := afero.Exists(fs, "/bundle/manifest.json")
	require.NoError(t, err)
	require.True(t, exists)
}

// TestRun_Reproducible rebuilds an unchanged tree and expects identical checksums.
func TestRun_Reproducible(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, boundaryAssets, map[string]string{
		"data/boundary/z.txt":     "last",
		"data/boundary/a.txt":     "first",
		"data/boundary/m/n/o.txt": "nested",
	})

	opts := &Options{Tag: "v1.0.0", OutputDir: "/repo/dist", AssetsPath: "/repo/assets.yaml", Fs: fs}

	first, err := Run(quietContext(), opts)
	require.NoError(t, err)

	second, err := Run(quietContext(), opts)
	require.NoError(t, err)

	require.Equal(t, first.Assets["boundary"].SHA256, second.Assets["boundary"].SHA256)
	require.Equal(t, first.Assets["boundary"].Size, second.Assets["boundary"].Size)
}

// TestRun_MissingSource aborts without touching the manifest or writing archives.
func TestRun_MissingSource(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, `github_repo: parka/boundary-data
assets:
  boundary:
    path: data/boundary
    extract_to: share/parka
  missing:
    path: data/missing
    extract_to: share/parka/missing
`, map[string]string{
		"data/boundary/a.txt": "a",
		"manifest.json":       "previous manifest\n",
	})

	m, err := Run(quietContext(), &Options{
		Tag:        "v1.0.0",
		OutputDir:  "/repo/dist",
		AssetsPath: "/repo/assets.yaml",
		Fs:         fs,
	})
	require.ErrorIs(t, err, ErrSourceNotFound)
	require.Nil(t, m)

	contents, err := afero.ReadFile(fs, "/repo/manifest.json")
	require.NoError(t, err)
	require.Equal(t, "previous manifest\n", string(contents))

	exists, err := afero.Exists(fs, "/repo/dist/boundary.tar.gz")
	require.NoError(t, err)
	require.False(t, exists)
}

// TestRun_SourceIsFile treats a plain file in place of a directory as a configuration error.
func TestRun_SourceIsFile(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, boundaryAssets, map[string]string{"data/boundary": "not a directory"})

	_, err := Run(quietContext(), &Options{Tag: "v1.0.0", AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.ErrorIs(t, err, ErrSourceNotFound)

	exists, err := afero.Exists(fs, "/repo/manifest.json")
	require.NoError(t, err)
	require.False(t, exists)
}

// TestRun_InvalidInputs covers a missing tag and an invalid asset list.
func TestRun_InvalidInputs(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, "github_repo: \"\"\nassets: {}\n", nil)

	_, err := Run(quietContext(), &Options{AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.ErrorIs(t, err, errTagRequired)

	_, err = Run(quietContext(), &Options{Tag: "v1", AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = Run(quietContext(), &Options{Tag: "v1", AssetsPath: "/repo/absent.yaml", Fs: fs})
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_ProgressLines checks the operator-facing progress output.
func TestRun_ProgressLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.ToContext(context.Background(), logger.New(zapcore.InfoLevel, zapcore.AddSync(&buf)))
	fs := newFixture(t, boundaryAssets, map[string]string{"data/boundary/a.txt": "a"})

	m, err := Run(ctx, &Options{Tag: "v1.0.0", OutputDir: "/repo/dist", AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "boundary: boundary.tar.gz (0.0 MB, sha256="+m.Assets["boundary"].SHA256[:12]+"…)")
	require.Contains(t, out, "manifest.json → /repo/manifest.json")
}

// TestRun_CanceledContext stops before building and leaves no manifest.
func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(quietContext())
	cancel()

	fs := newFixture(t, boundaryAssets, map[string]string{"data/boundary/a.txt": "a"})

	_, err := Run(ctx, &Options{Tag: "v1.0.0", AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.ErrorIs(t, err, context.Canceled)

	exists, err := afero.Exists(fs, "/repo/manifest.json")
	require.NoError(t, err)
	require.False(t, exists)
}

// TestRun_OnDiskRelativePaths runs against the OS filesystem with the default locations.
func TestRun_OnDiskRelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(config.DefaultAssetsFilename, []byte(boundaryAssets), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join("data", "boundary", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("data", "boundary", "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join("data", "boundary", "b", "c.txt"), []byte("c"), 0o644))

	m, err := Run(quietContext(), &Options{Tag: "v1.0.0"})
	require.NoError(t, err)

	archivePath := filepath.Join("dist", "boundary.tar.gz")
	require.Equal(t, sha256Of(t, afero.NewOsFs(), archivePath), m.Assets["boundary"].SHA256)

	_, err = os.Stat(config.DefaultManifestFilename)
	require.NoError(t, err)
}

// TestRun_EmptyAssetWarns still builds an archive for a directory without files, with a warning.
func TestRun_EmptyAssetWarns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.ToContext(context.Background(), logger.New(zapcore.WarnLevel, zapcore.AddSync(&buf)))
	fs := newFixture(t, boundaryAssets, nil)
	require.NoError(t, fs.MkdirAll("/repo/data/boundary/only/dirs", 0o755))

	m, err := Run(ctx, &Options{Tag: "v1.0.0", OutputDir: "/repo/dist", AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.NoError(t, err)
	require.Positive(t, m.Assets["boundary"].Size)
	require.Contains(t, buf.String(), "archive is empty")

	members, err := archive.List(fs, "/repo/dist/boundary.tar.gz")
	require.NoError(t, err)
	require.Empty(t, members)
}

// TestRun_ManifestLayout pins the on-disk manifest: two-space indent at every depth and a trailing newline.
func TestRun_ManifestLayout(t *testing.T) {
	t.Parallel()

	fs := newFixture(t, boundaryAssets, map[string]string{"data/boundary/a.txt": "a"})

	m, err := Run(quietContext(), &Options{Tag: "v1.0.0", OutputDir: "/repo/dist", AssetsPath: "/repo/assets.yaml", Fs: fs})
	require.NoError(t, err)

	built := m.Assets["boundary"]
	want := `{
  "github_repo": "parka/boundary-data",
  "release_tag": "v1.0.0",
  "assets": {
    "boundary": {
      "file": "boundary.tar.gz",
      "sha256": "` + built.SHA256 + `",
      "size": ` + strconv.FormatInt(built.Size, 10) + `,
      "extract_to": "share/parka"
    }
  }
}
`

	contents, err := afero.ReadFile(fs, "/repo/manifest.json")
	require.NoError(t, err)
	require.Equal(t, want, string(contents))
}

// TestRun_SymlinkedSource archives the files of a directory reached through a symbolic link.
func TestRun_SymlinkedSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "real-boundary")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "b", "c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "data", "boundary")))

	assetsPath := filepath.Join(dir, "assets.yaml")
	require.NoError(t, os.WriteFile(assetsPath, []byte(boundaryAssets), 0o644))

	output := filepath.Join(dir, "dist")

	m, err := Run(quietContext(), &Options{Tag: "v1.0.0", OutputDir: output, AssetsPath: assetsPath})
	require.NoError(t, err)

	archivePath := filepath.Join(output, "boundary.tar.gz")
	members, err := archive.List(afero.NewOsFs(), archivePath)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b/c.txt"}, members)
	require.Equal(t, sha256Of(t, afero.NewOsFs(), archivePath), m.Assets["boundary"].SHA256)
}

// TestRun_NestedSymlinksSkipped keeps links inside an asset directory out of the archive.
func TestRun_NestedSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data", "boundary")
	outside := filepath.Join(dir, "outside")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "x.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(src, "a.txt"), filepath.Join(src, "alias.txt")))
	require.NoError(t, os.Symlink(outside, filepath.Join(src, "linked-dir")))

	assetsPath := filepath.Join(dir, "assets.yaml")
	require.NoError(t, os.WriteFile(assetsPath, []byte(boundaryAssets), 0o644))

	output := filepath.Join(dir, "dist")

	_, err := Run(quietContext(), &Options{Tag: "v1.0.0", OutputDir: output, AssetsPath: assetsPath})
	require.NoError(t, err)

	members, err := archive.List(afero.NewOsFs(), filepath.Join(output, "boundary.tar.gz"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, members)
}
