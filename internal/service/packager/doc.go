// Package packager builds the release artifacts described by assets.yaml.
//
// Every declared directory becomes a reproducible <name>.tar.gz in the output
// directory. Once all archives are built, their checksums and sizes are
// recorded in manifest.json. A missing source directory aborts the build
// before anything is written.
package packager
