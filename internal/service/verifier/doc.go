// Package verifier checks built archives against a release manifest.
package verifier
