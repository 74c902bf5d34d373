package data

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

var (
	// ErrTrailingData is returned when there are unskippable bytes after
	// the JSON document ends.
	ErrTrailingData = errors.New("trailing data after JSON")
	// ErrInvalidUTF8Char is returned when an incomplete or invalid \u escape
	// is found.
	ErrInvalidUTF8Char = errors.New("invalid utf8 char")
	// ErrExpectedString is returned when an object key is not a string.
	ErrExpectedString = errors.New("expected string")
	// ErrUnterminatedString is returned when a string is not terminated
	// before the end of the input.
	ErrUnterminatedString = errors.New("unterminated string")
	// ErrNoComma is returned when there is no comma between members of
	// objects or arrays.
	ErrNoComma = errors.New("expected comma")
	// ErrNoColon is returned when there is no colon after an object key.
	ErrNoColon = errors.New("expected colon")
	// ErrInvalidNumber is returned when a token that is not a literal could
	// not be read as a number.
	ErrInvalidNumber = errors.New("invalid JSON number")
	// ErrNotObject is returned when the document root is not an object.
	ErrNotObject = errors.New("JSON document must be an object")
)

// ErrInvalidLiteral is returned when true, false or null starts but is not
// correctly finished.
type ErrInvalidLiteral struct {
	Value string
}

// Error implements [error].
func (e ErrInvalidLiteral) Error() string {
	return fmt.Sprintf("invalid literal %q", e.Value)
}

// ErrUnknownEscapeChar is returned when a backslash does not precede a valid
// escapable char (any of "\/'bfnrtu).
type ErrUnknownEscapeChar struct {
	Char byte
}

// Error implements [error].
func (e ErrUnknownEscapeChar) Error() string {
	return fmt.Sprintf("unknown escape char, %q", e.Char)
}

// ErrInvalidControlChar is returned when a raw control character is found
// inside a string.
type ErrInvalidControlChar struct {
	Char byte
}

// Error implements [error].
func (e ErrInvalidControlChar) Error() string {
	return fmt.Sprintf("invalid control char, %q", e.Char)
}

// ParseJSON reads a JSON object into flattened fields, like [NewFields].
// Numbers keep the text they were written with, so "1.50" stays "1.50".
func ParseJSON(data []byte) (domain.Fields, error) {
	p := &parser{data: data, n: len(data), out: keymap.New[domain.Value]()}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.out, nil
}

type parser struct {
	data []byte
	i    int
	n    int
	out  *keymap.Map[domain.Value]
}

func (p *parser) parse() error {
	p.skip()
	if p.i >= p.n || p.data[p.i] != '{' {
		return ErrNotObject
	}
	if err := p.value(""); err != nil {
		return err
	}
	p.skip()
	if p.i != p.n {
		return ErrTrailingData
	}
	return nil
}

func (p *parser) skip() {
	for p.i < p.n {
		switch p.data[p.i] {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *parser) value(path string) error {
	if p.i >= p.n {
		return io.ErrUnexpectedEOF
	}
	switch p.data[p.i] {
	case '{':
		return p.obj(path)
	case '[':
		return p.arr(path)
	case '"':
		s, err := p.str()
		if err != nil {
			return err
		}
		p.out.Set(path, domain.NewValue(s))
		return nil
	case 't':
		return p.expect(path, "true", domain.NewValue("true"))
	case 'f':
		return p.expect(path, "false", domain.NewValue("false"))
	case 'n':
		return p.expect(path, "null", domain.Null())
	default:
		return p.num(path)
	}
}

func (p *parser) obj(path string) error {
	p.i++ // skip '{'
	p.skip()
	if p.i < p.n && p.data[p.i] == '}' {
		p.i++
		return nil
	}
	for {
		p.skip()
		if p.i >= p.n {
			return io.ErrUnexpectedEOF
		}
		key, err := p.str()
		if err != nil {
			return err
		}
		p.skip()
		if p.i >= p.n || p.data[p.i] != ':' {
			return ErrNoColon
		}
		p.i++
		p.skip()
		if err := p.value(join(path, key)); err != nil {
			return err
		}
		if done, err := p.separator('}'); err != nil || done {
			return err
		}
	}
}

func (p *parser) arr(path string) error {
	p.i++ // skip '['
	p.skip()
	if p.i < p.n && p.data[p.i] == ']' {
		p.i++
		return nil
	}
	for n := 0; ; n++ {
		p.skip()
		if err := p.value(join(path, strconv.Itoa(n))); err != nil {
			return err
		}
		if done, err := p.separator(']'); err != nil || done {
			return err
		}
	}
}

// separator consumes a comma, or closing when the container ends.
func (p *parser) separator(closing byte) (bool, error) {
	p.skip()
	if p.i >= p.n {
		return false, io.ErrUnexpectedEOF
	}
	switch p.data[p.i] {
	case closing:
		p.i++
		return true, nil
	case ',':
		p.i++
		return false, nil
	}
	return false, ErrNoComma
}

func (p *parser) str() (string, error) {
	if p.data[p.i] != '"' {
		return "", ErrExpectedString
	}
	for i := p.i + 1; i < p.n; i++ {
		switch p.data[i] {
		case '\\':
			i++
		case '"':
			s, err := decodeString(p.data[p.i+1 : i])
			if err != nil {
				return "", err
			}
			p.i = i + 1
			return s, nil
		}
	}
	return "", ErrUnterminatedString
}

func decodeString(b []byte) (string, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '\\':
			if i+1 >= len(b) {
				return "", ErrUnterminatedString
			}
			switch e := b[i+1]; e {
			case '"', '\\', '/', '\'':
				out = append(out, e)
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'u':
				r, size, err := decodeEscapedRune(b[i:])
				if err != nil {
					return "", err
				}
				out = utf8.AppendRune(out, r)
				i += size
				continue
			default:
				return "", ErrUnknownEscapeChar{Char: e}
			}
			i += 2
		case c < ' ':
			return "", ErrInvalidControlChar{Char: c}
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out), nil
}

// decodeEscapedRune decodes a \uXXXX escape, joining UTF-16 surrogate pairs.
// It returns the number of bytes consumed.
func decodeEscapedRune(b []byte) (rune, int, error) {
	r := hexRune(b)
	if r < 0 {
		return 0, 0, ErrInvalidUTF8Char
	}
	if utf16.IsSurrogate(r) {
		if dec := utf16.DecodeRune(r, hexRune(b[6:])); dec != unicode.ReplacementChar {
			return dec, 12, nil
		}
		return unicode.ReplacementChar, 6, nil
	}
	return r, 6, nil
}

func hexRune(b []byte) rune {
	if len(b) < 6 || b[0] != '\\' || b[1] != 'u' {
		return -1
	}
	r, err := strconv.ParseUint(string(b[2:6]), 16, 32)
	if err != nil {
		return -1
	}
	return rune(r)
}

func (p *parser) num(path string) error {
	start := p.i
	for p.i < p.n {
		c := p.data[p.i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.i++
		} else {
			break
		}
	}
	s := string(p.data[start:p.i])
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNumber, err)
	}
	p.out.Set(path, domain.NewValue(s))
	return nil
}

func (p *parser) expect(path, lit string, val domain.Value) error {
	end := p.i + len(lit)
	if end > p.n || string(p.data[p.i:end]) != lit {
		return ErrInvalidLiteral{Value: string(p.data[p.i:min(p.n, end)])}
	}
	p.i = end
	p.out.Set(path, val)
	return nil
}
