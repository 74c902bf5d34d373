package matcher

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// DefaultPatternCacheSize is the number of compiled patterns a [Like] keeps
// unless [WithPatternCacheSize] says otherwise.
const DefaultPatternCacheSize = 256

// ErrBadPattern is returned when a like pattern cannot be compiled.
type ErrBadPattern struct {
	Pattern string
	Err     error
}

// Error implements [error].
func (e ErrBadPattern) Error() string {
	return fmt.Sprintf("invalid like pattern %q: %s", e.Pattern, e.Err)
}

// Unwrap returns the compilation error.
func (e ErrBadPattern) Unwrap() error {
	return e.Err
}

// Like implements [domain.PatternMatcher] with SQL wildcards: '%' matches any
// run of characters and '_' matches exactly one. A backslash makes the next
// character literal. Matching ignores case. The most recently used compiled
// patterns are cached. A Like is safe for concurrent use.
type Like struct {
	size  int
	cache *lru.Cache[string, *regexp.Regexp]
}

// NewLike returns a new implementation of [domain.PatternMatcher].
func NewLike(options ...LikeOption) domain.PatternMatcher {
	l := &Like{size: DefaultPatternCacheSize}
	for _, option := range options {
		option(l)
	}
	// lru.New only fails on a non-positive size.
	l.cache, _ = lru.New[string, *regexp.Regexp](max(l.size, 1))
	return l
}

// Match implements [domain.PatternMatcher].
func (l *Like) Match(value, pattern string) (bool, error) {
	rgx, err := l.compile(pattern)
	if err != nil {
		return false, err
	}
	return rgx.MatchString(value), nil
}

func (l *Like) compile(pattern string) (*regexp.Regexp, error) {
	if r, ok := l.cache.Get(pattern); ok {
		return r, nil
	}

	var b strings.Builder
	b.WriteString(`(?is)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(`.*`)
		case r == '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(`\`))
	}
	b.WriteString(`$`)

	rgx, err := regexp.Compile(b.String())
	if err != nil {
		return nil, ErrBadPattern{Pattern: pattern, Err: err}
	}
	l.cache.Add(pattern, rgx)
	return rgx, nil
}
