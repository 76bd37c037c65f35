package manifest

import (
	"regexp"
	"sort"
)

// ArchiveExtension is appended to an asset name to form its archive filename.
const ArchiveExtension = ".tar.gz"

// checksumPattern matches a lowercase hex SHA-256 digest.
var checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Asset describes one built archive.
type Asset struct {
	// File is the archive filename, relative to the release.
	File string `json:"file"`
	// SHA256 is the lowercase hex digest of the archive bytes.
	SHA256 string `json:"sha256"`
	// Size is the archive length in bytes.
	Size int64 `json:"size"`
	// ExtractTo is where consumers unpack the archive.
	ExtractTo string `json:"extract_to"`
}

// Manifest describes every asset built for a release.
type Manifest struct {
	// GithubRepo is the repository the release is published to.
	GithubRepo string `json:"github_repo"`
	// ReleaseTag is the tag given to the build, stored verbatim.
	ReleaseTag string `json:"release_tag"`
	// Assets maps asset names to their built archives.
	Assets map[string]Asset `json:"assets"`
}

// New returns an empty manifest for the given repository and tag.
func New(githubRepo, releaseTag string) *Manifest {
	return &Manifest{
		GithubRepo: githubRepo,
		ReleaseTag: releaseTag,
		Assets:     make(map[string]Asset),
	}
}

// ArchiveName returns the archive filename for an asset name.
func ArchiveName(name string) string {
	return name + ArchiveExtension
}

// Names returns the asset names in lexical order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Assets))
	for name := range m.Assets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ShortChecksum returns the first 12 characters of the digest, for display.
func (a Asset) ShortChecksum() string {
	const shortLength = 12

	if len(a.SHA256) <= shortLength {
		return a.SHA256
	}

	return a.SHA256[:shortLength]
}

// HasValidChecksum reports whether SHA256 is a well-formed lowercase hex digest.
func (a Asset) HasValidChecksum() bool {
	return checksumPattern.MatchString(a.SHA256)
}
