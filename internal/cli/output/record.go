package output

import "github.com/yndnr/memkv-go/internal/storage"

// Record is the printable form of a stored entry.
type Record struct {
	Key      string `json:"key" yaml:"key"`
	Metadata int64  `json:"metadata" yaml:"metadata"`
	Length   int64  `json:"length" yaml:"length"`
	Value    string `json:"value" yaml:"value"`
}

// FromStorage copies rec into a Record. The value is copied, so rec may
// be reused by the caller.
func FromStorage(rec *storage.Record) Record {
	return Record{
		Key:      rec.Key,
		Metadata: rec.Metadata,
		Length:   rec.Length,
		Value:    string(rec.Value),
	}
}
