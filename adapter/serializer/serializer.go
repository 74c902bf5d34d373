// Package serializer contains the default [domain.Serializer]
// implementation.
package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Record keys. Field names go in a nested object, so they never collide with
// them.
const (
	KeySchema  = "$schema"
	KeyPage    = "$page"
	KeyID      = "$id"
	KeyDeleted = "$deleted"
	KeyFields  = "fields"
)

// Serializer implements [domain.Serializer]. Each record becomes one JSON
// object. Field values are written as strings, or null, in the order the
// document holds them.
type Serializer struct{}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer() domain.Serializer {
	return &Serializer{}
}

// Serialize implements [domain.Serializer].
func (s *Serializer) Serialize(ctx context.Context, rec domain.Record) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var b bytes.Buffer
	b.WriteByte('{')
	if err := writeKey(&b, KeySchema); err != nil {
		return nil, err
	}
	if err := writeString(&b, rec.Pointer.Schema); err != nil {
		return nil, err
	}
	b.WriteByte(',')
	_ = writeKey(&b, KeyPage)
	b.WriteString(strconv.FormatUint(uint64(rec.Pointer.Page), 10))
	b.WriteByte(',')
	_ = writeKey(&b, KeyID)
	b.WriteString(strconv.FormatUint(rec.Pointer.DocumentID, 10))

	if rec.Deleted {
		b.WriteByte(',')
		_ = writeKey(&b, KeyDeleted)
		b.WriteString("true")
		b.WriteByte('}')
		return b.Bytes(), nil
	}

	b.WriteByte(',')
	_ = writeKey(&b, KeyFields)
	b.WriteByte('{')
	first := true
	if rec.Fields != nil {
		for k, v := range rec.Fields.Iter() {
			if !first {
				b.WriteByte(',')
			}
			first = false
			if err := writeKey(&b, k); err != nil {
				return nil, err
			}
			if v.IsNull() {
				b.WriteString("null")
				continue
			}
			if err := writeString(&b, v.String()); err != nil {
				return nil, err
			}
		}
	}
	b.WriteString("}}")
	return b.Bytes(), nil
}

func writeKey(b *bytes.Buffer, key string) error {
	if err := writeString(b, key); err != nil {
		return err
	}
	b.WriteByte(':')
	return nil
}

func writeString(b *bytes.Buffer, s string) error {
	q, err := json.Marshal(s)
	if err != nil {
		return err
	}
	b.Write(q)
	return nil
}
