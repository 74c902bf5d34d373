// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"time"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// TagName is the struct tag read when decoding.
const TagName = "gedbql"

// Decoder implements domain.Decoder. Values are strings, so input is weakly
// typed: "30" decodes into an int field and "true" into a bool one. Null
// values leave the target field untouched.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}

	source = d.adjust(source)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		Result: target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		return domain.ErrDecode{Source: source, Target: target, Err: err}
	}
	return nil
}

// adjust turns the engine types into plain maps, strings and nils.
func (d *Decoder) adjust(value any) any {
	switch t := value.(type) {
	case domain.Value:
		if t.IsNull() {
			return nil
		}
		return t.String()
	case domain.Fields:
		res := make(map[string]any, t.Len())
		for k, v := range t.Iter() {
			if !v.IsNull() {
				res[k] = v.String()
			}
		}
		return res
	case map[string]domain.Value:
		res := make(map[string]any, len(t))
		for k, v := range t {
			if !v.IsNull() {
				res[k] = v.String()
			}
		}
		return res
	case []domain.Value:
		res := make([]any, len(t))
		for n, v := range t {
			res[n] = d.adjust(v)
		}
		return res
	case map[string]any:
		res := make(map[string]any, len(t))
		for k, v := range t {
			res[k] = d.adjust(v)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			res[n] = d.adjust(v)
		}
		return res
	default:
		return value
	}
}
