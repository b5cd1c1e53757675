// Package writer provides the output sinks a sampling run streams into: flat
// row writers for draws and diagnostics, and a structured record writer for
// the adapted metric.
package writer

// RowWriter accepts a header of column names followed by numeric rows.
// Implementations flush on Close.
type RowWriter interface {
	Header(names []string) error
	Row(values []float64) error
	Comment(text string) error
	Close() error
}

// RecordWriter accepts one structured record via a begin/field/end protocol.
type RecordWriter interface {
	Begin() error
	Field(name string, value interface{}) error
	End() error
	Close() error
}

// Discard is the no-op RowWriter substituted for unrequested outputs so the
// sampling loop can write unconditionally.
type Discard struct{}

// Header discards the header
func (d *Discard) Header(names []string) error { return nil }

// Row discards the row
func (d *Discard) Row(values []float64) error { return nil }

// Comment discards the comment
func (d *Discard) Comment(text string) error { return nil }

// Close is a no-op
func (d *Discard) Close() error { return nil }

// DiscardRecord is the no-op RecordWriter counterpart to Discard.
type DiscardRecord struct{}

// Begin is a no-op
func (d *DiscardRecord) Begin() error { return nil }

// Field discards the field
func (d *DiscardRecord) Field(name string, value interface{}) error { return nil }

// End is a no-op
func (d *DiscardRecord) End() error { return nil }

// Close is a no-op
func (d *DiscardRecord) Close() error { return nil }

// Buffer is an in-memory RowWriter for tests and embedding callers that want
// draws without file I/O.
type Buffer struct {
	Headers  [][]string
	Rows     [][]float64
	Comments []string
	Closed   bool
}

// Header records the header
func (b *Buffer) Header(names []string) error {
	cp := make([]string, len(names))
	copy(cp, names)
	b.Headers = append(b.Headers, cp)
	return nil
}

// Row records a copy of the row
func (b *Buffer) Row(values []float64) error {
	cp := make([]float64, len(values))
	copy(cp, values)
	b.Rows = append(b.Rows, cp)
	return nil
}

// Comment records the comment
func (b *Buffer) Comment(text string) error {
	b.Comments = append(b.Comments, text)
	return nil
}

// Close marks the buffer closed
func (b *Buffer) Close() error {
	b.Closed = true
	return nil
}

// BufferRecord is an in-memory RecordWriter for tests.
type BufferRecord struct {
	Fields map[string]interface{}
	Begun  bool
	Ended  bool
	Closed bool
}

// Begin starts the record
func (b *BufferRecord) Begin() error {
	b.Begun = true
	if b.Fields == nil {
		b.Fields = map[string]interface{}{}
	}
	return nil
}

// Field records the field
func (b *BufferRecord) Field(name string, value interface{}) error {
	if b.Fields == nil {
		b.Fields = map[string]interface{}{}
	}
	b.Fields[name] = value
	return nil
}

// End finishes the record
func (b *BufferRecord) End() error {
	b.Ended = true
	return nil
}

// Close marks the record closed
func (b *BufferRecord) Close() error {
	b.Closed = true
	return nil
}

// ChainSet bundles the four output sinks for one chain. Samples is mandatory;
// the other three may be nil when the corresponding output was not requested,
// in which case the runner substitutes a discard sink.
type ChainSet struct {
	Samples     RowWriter
	StartParams RowWriter
	Diagnostics RowWriter
	Metric      RecordWriter
}

// Close flushes and closes every non-nil sink, reporting the first failure.
func (c *ChainSet) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if c.Samples != nil {
		keep(c.Samples.Close())
	}
	if c.StartParams != nil {
		keep(c.StartParams.Close())
	}
	if c.Diagnostics != nil {
		keep(c.Diagnostics.Close())
	}
	if c.Metric != nil {
		keep(c.Metric.Close())
	}
	return first
}
