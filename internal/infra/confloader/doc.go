// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader on top of koanf:
//
//   - Sources: YAML file, MEMKV_-prefixed environment variables, maps (flags)
//   - Type Safety: Unmarshaling into koanf-tagged structs
//   - Defaults: the target struct carries defaults; sources only override
//   - Watch Support: fsnotify-based change notification for config files
//
// Priority (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration files
//  4. Default values
package confloader
