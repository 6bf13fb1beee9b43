// Package storage provides the persistent record store for memkv.
//
// Records are keyed by string and carry opaque client flags, a declared
// length and a binary value. Two embedded backends implement Engine:
//
//   - Badger (default): LSM store, one Update/View transaction per call
//   - SQLite: a single "memcached" table behind a one-connection pool
//
// Every operation is atomic. Failures surface as *StorageError and never
// leave a partially written record.
package storage
