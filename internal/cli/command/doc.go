// Package command provides the memkv-server command line, built on
// urfave/cli/v2:
//
//   - root.go: App, global flags, config loading
//   - serve.go: serve (protocol listener, metrics listener, hot reload)
//   - show.go: show (dump every record)
//   - config.go: config show / config validate
//   - storage.go: storage gc / storage stats
//   - version.go: version
package command
