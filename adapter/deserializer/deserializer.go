// Package deserializer contains the default [domain.Deserializer]
// implementation.
package deserializer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/data"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// ErrInvalidRecord is returned for lines that are valid JSON but do not
// describe a record.
var ErrInvalidRecord = errors.New("invalid record")

// Deserializer implements [domain.Deserializer]. It reads the lines written
// by [serializer.Serializer].
type Deserializer struct {
	parse func([]byte) (domain.Fields, error)
}

// NewDeserializer returns a new instance of domain.Deserializer.
func NewDeserializer() domain.Deserializer {
	return &Deserializer{parse: data.ParseJSON}
}

// Deserialize implements [domain.Deserializer].
func (d *Deserializer) Deserialize(ctx context.Context, line []byte) (domain.Record, error) {
	select {
	case <-ctx.Done():
		return domain.Record{}, ctx.Err()
	default:
	}

	flat, err := d.parse(line)
	if err != nil {
		return domain.Record{}, err
	}

	var rec domain.Record
	schema, ok := flat.Get(serializer.KeySchema)
	if !ok || schema.IsNull() || schema.String() == "" {
		return domain.Record{}, fmt.Errorf("%w: missing %s", ErrInvalidRecord, serializer.KeySchema)
	}
	rec.Pointer.Schema = schema.String()

	page, err := d.uint(flat, serializer.KeyPage, 32)
	if err != nil {
		return domain.Record{}, err
	}
	rec.Pointer.Page = uint32(page)
	if rec.Pointer.DocumentID, err = d.uint(flat, serializer.KeyID, 64); err != nil {
		return domain.Record{}, err
	}

	if deleted, ok := flat.Get(serializer.KeyDeleted); ok && deleted.String() == "true" {
		rec.Deleted = true
		return rec, nil
	}

	fields := keymap.New[domain.Value]()
	prefix := serializer.KeyFields + "."
	for k, v := range flat.Iter() {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			fields.Set(name, v)
		}
	}
	rec.Fields = fields
	return rec, nil
}

func (d *Deserializer) uint(flat domain.Fields, key string, bits int) (uint64, error) {
	v, ok := flat.Get(key)
	if !ok || v.IsNull() {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidRecord, key)
	}
	n, err := strconv.ParseUint(v.String(), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, key, err)
	}
	return n, nil
}
