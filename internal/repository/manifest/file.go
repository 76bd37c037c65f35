package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	domain "github.com/oshokin/parka-boundary/internal/domain/manifest"
)

// Repository defines persistence operations for the release manifest.
type Repository interface {
	Load(ctx context.Context) (*domain.Manifest, error)
	Save(ctx context.Context, m *domain.Manifest) error
}

// FileRepository stores the manifest in a single JSON file.
type FileRepository struct {
	// fs is the filesystem holding the manifest.
	fs afero.Fs
	// path is the location of the manifest file within fs.
	path string
	// mu serializes access to the manifest file.
	mu sync.Mutex
}

const (
	// DefaultFileMode is applied to written manifests.
	DefaultFileMode os.FileMode = 0o644

	indent = "  "
)

var (
	// ErrNotFound is returned when the manifest file does not exist.
	ErrNotFound = errors.New("manifest not found")
	// ErrMalformed is returned when the manifest file is not valid JSON.
	ErrMalformed = errors.New("manifest is malformed")

	// codec mirrors encoding/json behaviour, including sorted map keys.
	//nolint:gochecknoglobals // Stateless codec configuration.
	codec = jsoniter.ConfigCompatibleWithStandardLibrary
)

// NewFileRepository creates a repository for the manifest at path.
// A nil fs means the operating system filesystem.
func NewFileRepository(fs afero.Fs, path string) *FileRepository {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &FileRepository{
		fs:   fs,
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads and decodes the manifest.
func (r *FileRepository) Load(_ context.Context) (*domain.Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m domain.Manifest
	if err = codec.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, r.path, err)
	}

	return &m, nil
}

// Save encodes the manifest with a two-space indent and a trailing newline,
// then replaces the file through a rename so readers never see a partial document.
func (r *FileRepository) Save(_ context.Context, m *domain.Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := Encode(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err = r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmp, err := afero.TempFile(r.fs, dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temporary manifest: %w", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = r.fs.Chmod(tmpName, DefaultFileMode)
	}

	if err == nil {
		err = r.fs.Rename(tmpName, r.path)
	}

	if err != nil {
		_ = r.fs.Remove(tmpName)

		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Encode renders the manifest exactly as Save writes it.
func Encode(m *domain.Manifest) ([]byte, error) {
	compact, err := codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	// jsoniter's MarshalIndent misplaces structs nested in maps, so indentation is applied separately.
	var out bytes.Buffer
	if err = json.Indent(&out, compact, "", indent); err != nil {
		return nil, fmt.Errorf("indent manifest: %w", err)
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}
