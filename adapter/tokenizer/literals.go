package tokenizer

import (
	"fmt"
	"maps"
	"strings"
)

// Literals holds the literals hoisted out of a statement, keyed by
// placeholder. String literals keep their quotes.
type Literals struct {
	Strings map[string]string `json:"strings"`
	Numbers map[string]string `json:"numbers"`
}

func newLiterals() *Literals {
	return &Literals{
		Strings: make(map[string]string),
		Numbers: make(map[string]string),
	}
}

func (l *Literals) addString(raw string) string {
	p := fmt.Sprintf("$s_%d$", len(l.Strings))
	l.Strings[p] = raw
	return p
}

func (l *Literals) addNumber(raw string) string {
	p := fmt.Sprintf("$n_%d$", len(l.Numbers))
	l.Numbers[p] = raw
	return p
}

// Clone returns a deep copy of the tables.
func (l *Literals) Clone() Literals {
	return Literals{
		Strings: maps.Clone(l.Strings),
		Numbers: maps.Clone(l.Numbers),
	}
}

// Inline replaces every placeholder in text with the literal it stands for.
func (l *Literals) Inline(text string) string {
	pairs := make([]string, 0, 2*(len(l.Strings)+len(l.Numbers)))
	for p, raw := range l.Strings {
		pairs = append(pairs, p, raw)
	}
	for p, raw := range l.Numbers {
		pairs = append(pairs, p, raw)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// unquote strips the quotes of a string literal and resolves its backslash
// escapes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	quote := raw[0]
	body := raw[1 : len(raw)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case quote:
			b.WriteByte(quote)
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
