package domain

import (
	"math/big"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Value is the scalar behind every field, literal and computed result. A Value
// is either null or backed by its string form; the numeric and case-folded
// forms are derived lazily on first use and shared by every copy of the Value,
// which is safe because the derivation is idempotent and the Value never
// changes after construction.
//
// The zero Value is null.
type Value struct {
	v *valueData
}

type valueData struct {
	raw string

	numOnce sync.Once
	num     *big.Float

	foldOnce sync.Once
	folded   string
}

// NewValue returns a non-null Value backed by s. The empty string is a valid,
// non-null value.
func NewValue(s string) Value {
	return Value{v: &valueData{raw: s}}
}

// Null returns the null Value. It is the same as the zero Value.
func Null() Value {
	return Value{}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.v == nil
}

// Raw returns the backing string and whether the value is set. Null values
// return an empty string and false.
func (v Value) Raw() (string, bool) {
	if v.v == nil {
		return "", false
	}
	return v.v.raw, true
}

// String implements [fmt.Stringer]. Null renders as "<null>".
func (v Value) String() string {
	if v.v == nil {
		return "<null>"
	}
	return v.v.raw
}

// Number returns the numeric form of v, if the backing string parses as a
// finite decimal number. The returned value must not be modified.
func (v Value) Number() (*big.Float, bool) {
	if v.v == nil {
		return nil, false
	}
	d := v.v
	d.numOnce.Do(func() {
		s := strings.TrimSpace(d.raw)
		if s == "" {
			return
		}
		f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
		if err != nil || f.IsInf() {
			return
		}
		d.num = f
	})
	return d.num, d.num != nil
}

// IsNumeric reports whether v parses as a number.
func (v Value) IsNumeric() bool {
	_, ok := v.Number()
	return ok
}

// Folded returns the culture-invariant case-folded form of v used by every
// string comparison. Null values return an empty string.
func (v Value) Folded() string {
	if v.v == nil {
		return ""
	}
	d := v.v
	d.foldOnce.Do(func() {
		d.folded = Fold(d.raw)
	})
	return d.folded
}

// Fold applies Unicode NFC normalization followed by full case folding. It is
// the normalization used for case-insensitive keys and string comparison.
func Fold(s string) string {
	// cases.Caser is stateful, a new one is needed for each call.
	return cases.Fold().String(norm.NFC.String(s))
}
