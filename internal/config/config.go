package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAssetsFilename is the asset list looked up when no path is given.
	DefaultAssetsFilename = "assets.yaml"

	// DefaultOutputDir is where archives are written when no directory is given.
	DefaultOutputDir = "dist/"

	// DefaultManifestFilename is the name of the manifest written next to the asset list.
	DefaultManifestFilename = "manifest.json"
)

// Config is the parsed asset list.
type Config struct {
	// GithubRepo is the "owner/name" repository the release is published to.
	GithubRepo string `yaml:"github_repo"`
	// Assets lists the directories to archive, in document order.
	Assets Assets `yaml:"assets"`
	// Root is the directory asset paths are resolved against.
	// It is the directory containing the loaded file and is never read from YAML.
	Root string `yaml:"-"`
}

// Asset is a single named directory to archive.
type Asset struct {
	// Name is the mapping key of the entry; the archive is named <Name>.tar.gz.
	Name string `yaml:"-"`
	// Path is the source directory, relative to Config.Root.
	Path string `yaml:"path"`
	// ExtractTo is copied verbatim into the manifest for consumers.
	ExtractTo string `yaml:"extract_to"`
}

// Assets is an ordered list of asset entries decoded from a YAML mapping.
type Assets []Asset

// ErrInvalidConfig is the parent of every validation error returned by this package.
var ErrInvalidConfig = errors.New("invalid asset configuration")

var (
	errRepoRequired      = fmt.Errorf("%w: github_repo must be provided", ErrInvalidConfig)
	errNoAssets          = fmt.Errorf("%w: at least one asset must be declared", ErrInvalidConfig)
	errAssetsNotMapping  = fmt.Errorf("%w: assets must be a mapping of names to entries", ErrInvalidConfig)
	errEntryNotMapping   = fmt.Errorf("%w: asset entry must be a mapping", ErrInvalidConfig)
	errUnknownKey        = fmt.Errorf("%w: unknown key", ErrInvalidConfig)
	errDuplicateAsset    = fmt.Errorf("%w: duplicate asset name", ErrInvalidConfig)
	errBadAssetName      = fmt.Errorf("%w: asset name must be a plain file name", ErrInvalidConfig)
	errPathRequired      = fmt.Errorf("%w: path must be provided", ErrInvalidConfig)
	errExtractToRequired = fmt.Errorf("%w: extract_to must be provided", ErrInvalidConfig)
)

// Load reads the asset list at path from fs and validates it.
// A nil fs means the operating system filesystem; an empty path means DefaultAssetsFilename.
func Load(fs afero.Fs, path string) (*Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if path == "" {
		path = DefaultAssetsFilename
	}

	path = filepath.Clean(path)

	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read assets config: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var cfg Config
	if err = decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal assets config %s: %w", path, err)
	}

	cfg.Root = filepath.Dir(path)

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and asset names.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.GithubRepo) == "" {
		return errRepoRequired
	}

	if len(cfg.Assets) == 0 {
		return errNoAssets
	}

	seen := make(map[string]struct{}, len(cfg.Assets))

	for _, asset := range cfg.Assets {
		if err := validateName(asset.Name); err != nil {
			return err
		}

		if _, ok := seen[asset.Name]; ok {
			return fmt.Errorf("%w: %q", errDuplicateAsset, asset.Name)
		}

		seen[asset.Name] = struct{}{}

		if strings.TrimSpace(asset.Path) == "" {
			return fmt.Errorf("%w (asset %q)", errPathRequired, asset.Name)
		}

		if strings.TrimSpace(asset.ExtractTo) == "" {
			return fmt.Errorf("%w (asset %q)", errExtractToRequired, asset.Name)
		}
	}

	return nil
}

// SourceDir resolves the asset's source directory against the config root.
// Absolute paths are used as is.
func (c *Config) SourceDir(asset Asset) string {
	if filepath.IsAbs(asset.Path) {
		return filepath.Clean(asset.Path)
	}

	return filepath.Join(c.Root, asset.Path)
}

// Names returns asset names in document order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Assets))
	for _, asset := range c.Assets {
		names = append(names, asset.Name)
	}

	return names
}

// UnmarshalYAML decodes the assets mapping while keeping key order.
func (a *Assets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*a = nil

		return nil
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %w", node.Line, errAssetsNotMapping)
	}

	result := make(Assets, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		asset, err := decodeAsset(valueNode)
		if err != nil {
			return fmt.Errorf("asset %q: %w", keyNode.Value, err)
		}

		asset.Name = keyNode.Value
		result = append(result, asset)
	}

	*a = result

	return nil
}

// decodeAsset decodes one entry, rejecting keys other than path and extract_to.
// Node.Decode does not honor the decoder's KnownFields setting, hence the manual check.
func decodeAsset(node *yaml.Node) (Asset, error) {
	var asset Asset

	if node.Kind != yaml.MappingNode {
		return asset, fmt.Errorf("line %d: %w", node.Line, errEntryNotMapping)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i].Value; key {
		case "path", "extract_to":
		default:
			return asset, fmt.Errorf("line %d: %w %q", node.Content[i].Line, errUnknownKey, key)
		}
	}

	if err := node.Decode(&asset); err != nil {
		return asset, err
	}

	return asset, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", errBadAssetName, name)
	}

	return nil
}
