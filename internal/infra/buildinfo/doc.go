// Package buildinfo provides build information for memkv.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash (falls back to the VCS stamp)
//   - BuildTime: Build timestamp (falls back to the VCS commit time)
//   - GoVersion: Go runtime version
package buildinfo
