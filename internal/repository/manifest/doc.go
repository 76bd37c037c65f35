// Package manifest persists the release manifest as an indented JSON document.
//
// FileRepository is shared by the packager, which replaces the document
// atomically, and by the runtime reader, which only loads it.
package manifest
