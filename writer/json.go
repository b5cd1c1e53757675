package writer

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// JSON is a RecordWriter that renders one record as a JSON object.
type JSON struct {
	path   string
	f      *os.File
	buf    *bufio.Writer
	fields int
	open   bool
}

// NewJSON creates (truncating) the backing file.
func NewJSON(path string) (*JSON, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not create output file %s", path)
	}

	return &JSON{
		path: path,
		f:    f,
		buf:  bufio.NewWriter(f),
	}, nil
}

// Path returns the backing file path.
func (w *JSON) Path() string {
	return w.path
}

// Begin opens the record object.
func (w *JSON) Begin() error {
	if w.open {
		return errors.Errorf("Record already begun in %s", w.path)
	}
	w.open = true
	w.fields = 0
	_, err := w.buf.WriteString("{\n")
	return errors.Wrapf(err, "Could not write to %s", w.path)
}

// Field writes one name/value pair; value must be JSON-marshalable.
func (w *JSON) Field(name string, value interface{}) error {
	if !w.open {
		return errors.Errorf("Field %s written outside a record in %s", name, w.path)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "Could not encode field %s for %s", name, w.path)
	}

	if w.fields > 0 {
		if _, err := w.buf.WriteString(",\n"); err != nil {
			return errors.Wrapf(err, "Could not write to %s", w.path)
		}
	}
	w.fields++

	if _, err := w.buf.WriteString("  \"" + name + "\": "); err != nil {
		return errors.Wrapf(err, "Could not write to %s", w.path)
	}
	_, err = w.buf.Write(raw)
	return errors.Wrapf(err, "Could not write to %s", w.path)
}

// End closes the record object.
func (w *JSON) End() error {
	if !w.open {
		return errors.Errorf("Record ended without Begin in %s", w.path)
	}
	w.open = false
	_, err := w.buf.WriteString("\n}\n")
	return errors.Wrapf(err, "Could not write to %s", w.path)
}

// Close flushes and closes the backing file.
func (w *JSON) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return errors.Wrapf(err, "Could not flush %s", w.path)
	}
	return errors.Wrapf(w.f.Close(), "Could not close %s", w.path)
}
