package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON writes v as indented JSON to the file name, compressed the
// same way as the tables, depending on the extension.
func WriteJSON(name string, v any) (err error) {
	const errid = "report/WriteJSON"
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%s: %w", errid, cerr)
		}
	}()
	cw, err := newWriter(name, f)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	enc := json.NewEncoder(cw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		cw.Close()
		return fmt.Errorf("%s: %w", errid, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	return nil
}

// ReadJSON reads into v a file written by WriteJSON.
func ReadJSON(name string, v any) error {
	const errid = "report/ReadJSON"
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	defer f.Close()
	r, err := newReader(name, f)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	defer r.Close()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	return nil
}
