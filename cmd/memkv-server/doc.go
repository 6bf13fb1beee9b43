// Package main provides the entry point for memkv-server.
//
// memkv-server is a single-node persistent key-value store that speaks
// the get/set/delete subset of the memcached text protocol.
//
// Usage:
//
//	memkv-server [global flags] serve
//	memkv-server --config /etc/memkv/memkv.yaml serve
//	memkv-server --engine sqlite --data-dir ./data show
//
// Any other invocation prints usage and exits non-zero.
package main
