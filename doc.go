// Package boundary gives runtime access to the asset manifest shipped with a
// parka-boundary release.
//
// The manifest is produced by the parka-boundary build command and bundled
// next to the executable. Consumers read it with GetManifest, then fetch each
// listed archive, verify its sha256 and unpack it to its extract_to location.
package boundary
