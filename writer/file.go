package writer

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// File is a RowWriter backed by a CSV file. Comments are written as
// prefix-marked lines, which is why this is not encoding/csv underneath -
// comment lines and unquoted float formatting are both off-format for it.
type File struct {
	path          string
	f             *os.File
	buf           *bufio.Writer
	commentPrefix string
}

// NewFile creates (truncating) the backing file. commentPrefix defaults
// to "#" when empty.
func NewFile(path string, commentPrefix string) (*File, error) {
	if commentPrefix == "" {
		commentPrefix = "#"
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not create output file %s", path)
	}

	return &File{
		path:          path,
		f:             f,
		buf:           bufio.NewWriter(f),
		commentPrefix: commentPrefix,
	}, nil
}

// Path returns the backing file path.
func (w *File) Path() string {
	return w.path
}

// Header writes the column names as a single CSV row.
func (w *File) Header(names []string) error {
	if _, err := w.buf.WriteString(strings.Join(names, ",")); err != nil {
		return errors.Wrapf(err, "Could not write header to %s", w.path)
	}
	return errors.Wrapf(w.buf.WriteByte('\n'), "Could not write header to %s", w.path)
}

// Row writes one data row.
func (w *File) Row(values []float64) error {
	var scratch [32]byte
	for i, v := range values {
		if i > 0 {
			if err := w.buf.WriteByte(','); err != nil {
				return errors.Wrapf(err, "Could not write row to %s", w.path)
			}
		}
		if _, err := w.buf.Write(strconv.AppendFloat(scratch[:0], v, 'g', -1, 64)); err != nil {
			return errors.Wrapf(err, "Could not write row to %s", w.path)
		}
	}
	return errors.Wrapf(w.buf.WriteByte('\n'), "Could not write row to %s", w.path)
}

// Comment writes a prefix-marked comment line.
func (w *File) Comment(text string) error {
	if _, err := w.buf.WriteString(w.commentPrefix + " " + text + "\n"); err != nil {
		return errors.Wrapf(err, "Could not write comment to %s", w.path)
	}
	return nil
}

// Close flushes and closes the backing file.
func (w *File) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return errors.Wrapf(err, "Could not flush %s", w.path)
	}
	return errors.Wrapf(w.f.Close(), "Could not close %s", w.path)
}
