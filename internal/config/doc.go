// Package config loads the declarative asset list (assets.yaml) that drives
// the packager and validates it before any archive is produced.
//
// Asset entries keep the order in which they appear in the document.
package config
