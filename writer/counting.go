package writer

import "expvar"

// Counting wraps a RowWriter and publishes the number of rows written to an
// expvar counter, feeding the CLI progress monitor.
type Counting struct {
	Inner RowWriter
	Rows  *expvar.Int
}

// NewCounting wraps inner, counting rows into rows.
func NewCounting(inner RowWriter, rows *expvar.Int) *Counting {
	return &Counting{Inner: inner, Rows: rows}
}

// Header forwards the header
func (c *Counting) Header(names []string) error {
	return c.Inner.Header(names)
}

// Row forwards the row and bumps the counter
func (c *Counting) Row(values []float64) error {
	if err := c.Inner.Row(values); err != nil {
		return err
	}
	c.Rows.Add(1)
	return nil
}

// Comment forwards the comment
func (c *Counting) Comment(text string) error {
	return c.Inner.Comment(text)
}

// Close forwards the close
func (c *Counting) Close() error {
	return c.Inner.Close()
}
