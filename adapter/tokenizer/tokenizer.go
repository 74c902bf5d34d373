// Package tokenizer turns raw statement text into cleaned, literal-free text
// and offers the cursor primitives a grammar layer consumes it with.
//
// Cleaning strips comments, hoists quoted strings into $s_N$ placeholders,
// pads comparison operators and parentheses with spaces, hoists numbers into
// $n_N$ placeholders and collapses whitespace. The structural hash is computed
// over the cleaned text, so statements differing only in literal values share
// it.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

const defaultBreadcrumbLimit = 64

// Tokenizer holds the cleaned text of one statement and a cursor over it. It
// is not safe for concurrent use.
type Tokenizer struct {
	text     string
	pos      int
	offset   int
	literals *Literals

	delimiters      string
	breadcrumbs     []string
	breadcrumbLimit int
	params          map[string]domain.Value
	paramIndex      *keymap.Map[domain.Value]
	hasher          domain.Hasher
	hash            uint64
}

// New cleans the query and returns a tokenizer positioned at its start.
func New(query string, options ...Option) (*Tokenizer, error) {
	t := &Tokenizer{
		delimiters:      ",=",
		breadcrumbLimit: defaultBreadcrumbLimit,
		hasher:          hasher.NewHasher(),
	}
	for _, option := range options {
		option(t)
	}

	text, lits, err := clean(query)
	if err != nil {
		return nil, err
	}

	t.text = text
	t.literals = lits
	t.init()
	return t, nil
}

func (t *Tokenizer) init() {
	t.hash = t.hasher.Hash(t.text)
	t.paramIndex = keymap.New[domain.Value]()
	for k, v := range t.params {
		t.paramIndex.Set(k, v)
	}
}

// Fork returns a tokenizer over an already cleaned span of this statement,
// such as the body of a sub-expression. Offset is the position of the span
// within the parent and is added to error positions. The literal tables are
// shared and must be treated as read-only.
func (t *Tokenizer) Fork(span string, offset int) *Tokenizer {
	f := &Tokenizer{
		text:            strings.TrimSpace(span),
		offset:          t.offset + offset,
		literals:        t.literals,
		delimiters:      t.delimiters,
		breadcrumbLimit: t.breadcrumbLimit,
		params:          t.params,
		hasher:          t.hasher,
	}
	f.init()
	return f
}

// Text returns the cleaned text.
func (t *Tokenizer) Text() string {
	return t.text
}

// Remaining returns the text after the cursor.
func (t *Tokenizer) Remaining() string {
	return t.text[t.pos:]
}

// Position returns the cursor position, relative to the outermost statement.
func (t *Tokenizer) Position() int {
	return t.offset + t.pos
}

// Hash returns the structural hash of the cleaned text.
func (t *Tokenizer) Hash() uint64 {
	return t.hash
}

// CacheKey returns the plan cache key for this statement.
func (t *Tokenizer) CacheKey() string {
	return t.hasher.Key(t.hash)
}

// Literals returns a copy of the hoisted literal tables.
func (t *Tokenizer) Literals() Literals {
	return t.literals.Clone()
}

// Inline replaces the placeholders in text with their original literals.
// Inline(Text()) reconstructs the statement without comments and with
// normalized whitespace.
func (t *Tokenizer) Inline(text string) string {
	return t.literals.Inline(text)
}

// Breadcrumbs returns the most recently consumed tokens, oldest first.
func (t *Tokenizer) Breadcrumbs() []string {
	return append([]string(nil), t.breadcrumbs...)
}

// IsEnd reports whether only whitespace remains.
func (t *Tokenizer) IsEnd() bool {
	return strings.TrimSpace(t.text[t.pos:]) == ""
}

// SkipWhitespace advances the cursor past any whitespace.
func (t *Tokenizer) SkipWhitespace() {
	for t.pos < len(t.text) {
		r, size := utf8.DecodeRuneInString(t.text[t.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		t.pos += size
	}
}

// Peek returns the next token without consuming it.
func (t *Tokenizer) Peek() string {
	_, token := t.scan(t.delimiters)
	return token
}

// Next consumes and returns the next token, delimited by whitespace or the
// configured delimiters. Delimiters and comparison operators are returned as
// tokens of their own. At the end of the text it returns an empty string.
func (t *Tokenizer) Next() string {
	return t.NextDelimited(t.delimiters)
}

// NextDelimited is like [Tokenizer.Next] with a custom delimiter set.
func (t *Tokenizer) NextDelimited(delimiters string) string {
	end, token := t.scan(delimiters)
	t.pos = end
	if token != "" {
		t.crumb(token)
	}
	return token
}

func (t *Tokenizer) scan(delimiters string) (int, string) {
	i := t.pos
	for i < len(t.text) {
		r, size := utf8.DecodeRuneInString(t.text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	if i == len(t.text) {
		return i, ""
	}

	start := i
	for _, op := range operators {
		if strings.HasPrefix(t.text[i:], op) {
			return i + len(op), op
		}
	}

	r, size := utf8.DecodeRuneInString(t.text[i:])
	if strings.ContainsRune(delimiters, r) {
		return i + size, t.text[start : i+size]
	}

	for i < len(t.text) {
		r, size := utf8.DecodeRuneInString(t.text[i:])
		if unicode.IsSpace(r) || strings.ContainsRune(delimiters, r) {
			break
		}
		i += size
	}
	return i, t.text[start:i]
}

// EatIfNext consumes the next token if it equals token, ignoring case.
func (t *Tokenizer) EatIfNext(token string) bool {
	end, next := t.scan(t.delimiters)
	if next == "" || !strings.EqualFold(next, token) {
		return false
	}
	t.pos = end
	t.crumb(next)
	return true
}

// Expect consumes the next token, failing with [domain.ErrParse] if it does not
// equal token, ignoring case. Nothing is consumed on failure.
func (t *Tokenizer) Expect(token string) error {
	if t.EatIfNext(token) {
		return nil
	}
	return t.errExpected(token, t.Peek())
}

// ExpectCharacter consumes the next non-whitespace character, failing with
// [domain.ErrParse] if it is not c.
func (t *Tokenizer) ExpectCharacter(c rune) error {
	t.SkipWhitespace()
	if t.pos >= len(t.text) {
		return t.errExpected(string(c), "")
	}
	r, size := utf8.DecodeRuneInString(t.text[t.pos:])
	if r != c {
		return t.errExpected(string(c), t.Peek())
	}
	t.pos += size
	t.crumb(string(c))
	return nil
}

// ReadUntil consumes text up to, and not including, the first of the given
// characters found outside parentheses. Nested parentheses are skipped as a
// whole. It fails if no stop character is found before the end of the text
// or if a closing parenthesis has no opening match.
func (t *Tokenizer) ReadUntil(stop string) (string, error) {
	start := t.pos
	depth := 0
	for i := t.pos; i < len(t.text); {
		r, size := utf8.DecodeRuneInString(t.text[i:])
		if depth == 0 && strings.ContainsRune(stop, r) {
			t.pos = i
			span := t.text[start:i]
			t.crumb(span)
			return span, nil
		}
		switch r {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return "", domain.ErrParse{
					Position: t.offset + i + 1,
					Reason:   "unbalanced ')'",
					Near:     excerpt(t.text[i:]),
				}
			}
			depth--
		}
		i += size
	}

	expected := "one of " + quoteChars(stop)
	if depth > 0 {
		expected = "')'"
	}
	return "", domain.ErrParse{
		Position: t.offset + len(t.text) + 1,
		Expected: expected,
		Near:     excerpt(t.text[start:]),
	}
}

// MatchingScope consumes a span enclosed by opening and closing, honoring nesting,
// and returns its inner text. The next non-whitespace character must be opening.
func (t *Tokenizer) MatchingScope(opening, closing rune) (string, error) {
	t.SkipWhitespace()
	if !strings.HasPrefix(t.text[t.pos:], string(opening)) {
		return "", t.errExpected(string(opening), t.Peek())
	}

	start := t.pos + utf8.RuneLen(opening)
	depth := 0
	for i := t.pos; i < len(t.text); {
		r, size := utf8.DecodeRuneInString(t.text[i:])
		switch r {
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				inner := t.text[start:i]
				t.pos = i + size
				t.crumb(string(opening) + inner + string(closing))
				return inner, nil
			}
		}
		i += size
	}

	return "", domain.ErrParse{
		Position: t.offset + len(t.text) + 1,
		Expected: "'" + string(closing) + "'",
		Near:     excerpt(t.text[t.pos:]),
	}
}

// ResolveLiteral resolves a token to its value: hoisted strings first, then
// hoisted numbers, then parameters, then the token as written. The null
// keyword resolves to the null value.
func (t *Tokenizer) ResolveLiteral(token string) domain.Value {
	if raw, ok := t.literals.Strings[token]; ok {
		return domain.NewValue(unquote(raw))
	}
	if raw, ok := t.literals.Numbers[token]; ok {
		return domain.NewValue(raw)
	}
	if v, ok := t.paramIndex.Get(token); ok {
		return v
	}
	if strings.EqualFold(token, "null") {
		return domain.Null()
	}
	return domain.NewValue(token)
}

// IsLiteral reports whether token is a hoisted string or number placeholder.
func (t *Tokenizer) IsLiteral(token string) bool {
	_, isString := t.literals.Strings[token]
	_, isNumber := t.literals.Numbers[token]
	return isString || isNumber
}

func (t *Tokenizer) crumb(token string) {
	t.breadcrumbs = append(t.breadcrumbs, token)
	if t.breadcrumbLimit > 0 && len(t.breadcrumbs) > t.breadcrumbLimit {
		t.breadcrumbs = t.breadcrumbs[len(t.breadcrumbs)-t.breadcrumbLimit:]
	}
}

func (t *Tokenizer) errExpected(expected, near string) error {
	return domain.ErrParse{
		Position: t.Position() + 1,
		Expected: expected,
		Near:     near,
	}
}

func quoteChars(s string) string {
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, "'"+string(r)+"'")
	}
	return strings.Join(parts, ", ")
}
