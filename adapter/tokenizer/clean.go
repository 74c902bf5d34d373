package tokenizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// operators are padded with spaces in this order, so two-character operators
// are never split.
var operators = []string{"==", "!=", ">=", "<=", "<>", "||", "&&", ">", "<", "=", "(", ")"}

var numberPattern = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)

// clean runs the preprocessing pipeline over raw statement text, returning the
// cleaned text and the hoisted literals.
func clean(query string) (string, *Literals, error) {
	lits := newLiterals()

	text, err := stripComments(query)
	if err != nil {
		return "", nil, err
	}

	if text, err = hoistStrings(text, lits); err != nil {
		return "", nil, err
	}

	text = padOperators(text)
	text = hoistNumbers(text, lits)

	return collapse(text), lits, nil
}

// stripComments removes block and line comments outside quoted strings. A
// block comment becomes one space so the tokens around it stay apart.
func stripComments(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(text) {
					i++
					b.WriteByte(text[i])
				}
			case quote:
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '/' && strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return "", domain.ErrParse{
					Position: i + 1,
					Reason:   "unterminated block comment",
					Near:     excerpt(text[i:]),
				}
			}
			b.WriteByte(' ')
			i += end + 3
		case c == '-' && strings.HasPrefix(text[i:], "--"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				i = len(text)
				continue
			}
			i += end - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// hoistStrings replaces every quoted string literal with a numbered
// placeholder and records the literal, quotes included.
func hoistStrings(text string, lits *Literals) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\'' && c != '"' {
			b.WriteByte(c)
			continue
		}

		end := closingQuote(text, i)
		if end < 0 {
			return "", domain.ErrParse{
				Position: i + 1,
				Reason:   "unterminated string literal",
				Near:     excerpt(text[i:]),
			}
		}

		b.WriteString(lits.addString(text[i : end+1]))
		i = end
	}
	return b.String(), nil
}

func closingQuote(text string, start int) int {
	quote := text[start]
	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

func padOperators(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)

Outer:
	for i := 0; i < len(text); {
		for _, op := range operators {
			if strings.HasPrefix(text[i:], op) {
				b.WriteByte(' ')
				b.WriteString(op)
				b.WriteByte(' ')
				i += len(op)
				continue Outer
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

// hoistNumbers replaces numeric tokens bounded by whitespace, commas or the
// text edges with numbered placeholders.
func hoistNumbers(text string, lits *Literals) string {
	lines := strings.Split(text, "\n")
	for n, line := range lines {
		fields := strings.Fields(line)
		for f, field := range fields {
			parts := strings.Split(field, ",")
			for p, part := range parts {
				if numberPattern.MatchString(part) {
					parts[p] = lits.addNumber(part)
				}
			}
			fields[f] = strings.Join(parts, ",")
		}
		lines[n] = strings.Join(fields, " ")
	}
	return strings.Join(lines, "\n")
}

// collapse trims every line, drops the empty ones and joins the rest with
// single spaces.
func collapse(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

func excerpt(s string) string {
	const size = 16
	r := []rune(s)
	if len(r) <= size {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:size]))
}
