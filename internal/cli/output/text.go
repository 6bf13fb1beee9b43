package output

import (
	"fmt"
	"io"
)

// TextFormatter prints records as "key, metadata, length, value" lines.
// Values are written raw.
type TextFormatter struct{}

// Format writes data, which should be a Record or []Record.
func (f *TextFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case Record:
		return writeTextRecord(w, v)
	case *Record:
		return writeTextRecord(w, *v)
	case []Record:
		for _, rec := range v {
			if err := writeTextRecord(w, rec); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, data)
		return err
	}
}

func writeTextRecord(w io.Writer, rec Record) error {
	_, err := fmt.Fprintf(w, "%s, %d, %d, %s\n", rec.Key, rec.Metadata, rec.Length, rec.Value)
	return err
}
