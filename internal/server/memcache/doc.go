// Package memcache provides a memcached text protocol server for memkv.
//
// Only the storage subset is served: set, get (single key) and delete.
// Each connection runs a two-state machine that alternates between
// reading command lines and collecting a set payload. All connections
// share one storage.Engine; the server keeps no records of its own.
package memcache
