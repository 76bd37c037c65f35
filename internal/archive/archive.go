package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

const (
	// ChunkSize is the read size used while hashing archives.
	ChunkSize = 256 * units.KiB

	// DefaultFileMode is applied to written archives.
	DefaultFileMode os.FileMode = 0o644
)

// ErrNotDirectory is returned when the archive source is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Files returns the regular files below srcDir as sorted slash-separated relative paths.
// Directories are implied by member paths. srcDir may itself be a symbolic link to a
// directory; symbolic links below it are skipped.
func Files(fs afero.Fs, srcDir string) ([]string, error) {
	info, err := fs.Stat(srcDir)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", srcDir, ErrNotDirectory)
	}

	var files []string

	// The trailing separator makes the walk follow srcDir itself when it is a symbolic link.
	root := strings.TrimSuffix(srcDir, string(filepath.Separator)) + string(filepath.Separator)

	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", srcDir, err)
	}

	sort.Strings(files)

	return files, nil
}

// WriteTarGz archives the regular files below srcDir into dst, replacing dst if it exists,
// and returns the number of members written. On failure dst is removed.
func WriteTarGz(fs afero.Fs, srcDir, dst string) (members int, err error) {
	files, err := Files(fs, srcDir)
	if err != nil {
		return 0, err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	defer func() {
		err = multierr.Append(err, out.Close())
		if err != nil {
			_ = fs.Remove(dst)
		}
	}()

	gzipWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, rel := range files {
		if err = addFile(fs, tarWriter, srcDir, rel); err != nil {
			break
		}

		members++
	}

	// Writers are closed on every path; tar before gzip.
	return members, multierr.Combine(err, tarWriter.Close(), gzipWriter.Close())
}

func addFile(fs afero.Fs, tw *tar.Writer, srcDir, rel string) (err error) {
	file, err := fs.Open(filepath.Join(srcDir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}

	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     rel,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime().UTC().Truncate(time.Second),
	}

	if err = tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", rel, err)
	}

	if _, err = io.Copy(tw, file); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}

	return nil
}

// Checksum returns the lowercase hex SHA-256 digest of the file at path,
// reading it in ChunkSize pieces.
func Checksum(fs afero.Fs, path string) (sum string, err error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	hasher := sha256.New()

	// The wrapper hides WriterTo so the fixed buffer is always used.
	if _, err = io.CopyBuffer(hasher, struct{ io.Reader }{file}, make([]byte, ChunkSize)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// List returns the member names of a gzip-compressed tarball in archive order.
func List(fs afero.Fs, path string) (names []string, err error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read gzip %s: %w", path, err)
	}

	defer func() {
		err = multierr.Append(err, gzipReader.Close())
	}()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}

		if err != nil {
			return nil, fmt.Errorf("read tar %s: %w", path, err)
		}

		names = append(names, header.Name)
	}
}
