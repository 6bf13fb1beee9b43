// Package output renders store contents for the memkv-server CLI.
//
//   - text: one "key, metadata, length, value" line per record (default)
//   - table: aligned columns, values previewed unless wide
//   - json / yaml: machine-readable dumps
package output
