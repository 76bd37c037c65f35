// Package version exposes build metadata for the project.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// When Version is not injected, the module version recorded in the binary's
// build info is used, and "0.0.0" when neither is available. The result is
// resolved once during package initialization.
package version
