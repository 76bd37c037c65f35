// Package manifest contains the release manifest model shared by the packager
// and the runtime reader.
//
// A Manifest is produced wholesale by one build and never patched afterwards.
package manifest
