// Package cursor contains the default [domain.Cursor] implementation over
// result rows.
package cursor

import (
	"context"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/row"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// Cursor implements domain.Cursor.
type Cursor struct {
	names  []string
	data   []*row.Row
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	index  int64
}

// NewCursor returns a cursor over rows whose values are named, in order, by
// names.
func NewCursor(ctx context.Context, names []string, rows []*row.Row, options ...Option) (*Cursor, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ctx, cancel := context.WithCancelCause(ctx)
	cur := &Cursor{
		names:  names,
		data:   rows,
		ctx:    ctx,
		cancel: cancel,
		dec:    decoder.NewDecoder(),
		index:  -1,
	}
	for _, option := range options {
		option(cur)
	}
	return cur, nil
}

// Err implements domain.Cursor.
func (c *Cursor) Err() error {
	return context.Cause(c.ctx)
}

// Columns returns the names of the projected values.
func (c *Cursor) Columns() []string {
	return c.names
}

// Len returns the number of rows.
func (c *Cursor) Len() int {
	return len(c.data)
}

// Row returns the current row, or nil before the first call to Next.
func (c *Cursor) Row() *row.Row {
	if c.index < 0 || c.index >= int64(len(c.data)) {
		return nil
	}
	return c.data[c.index]
}

// Fields returns the current row as projected name to value pairs.
func (c *Cursor) Fields() (domain.Fields, error) {
	r := c.Row()
	if r == nil {
		return nil, domain.ErrScanBeforeNext
	}
	f := keymap.New[domain.Value]()
	for n, name := range c.names {
		f.Set(name, r.Value(n))
	}
	return f, nil
}

// Scan implements domain.Cursor. The target receives the projected values by
// name.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	f, err := c.Fields()
	if err != nil {
		return err
	}
	return c.dec.Decode(f, target)
}

// Close implements domain.Cursor.
func (c *Cursor) Close() error {
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	default:
	}
	c.cancel(domain.ErrCursorClosed)
	c.data = nil
	return nil
}

// Abort closes the cursor with cause, which Err, Scan and Close report from
// then on. Aborting a closed cursor does nothing.
func (c *Cursor) Abort(cause error) {
	c.cancel(cause)
}

// Next implements domain.Cursor.
func (c *Cursor) Next() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	if c.index+1 < int64(len(c.data)) {
		c.index++
		return true
	}
	return false
}
