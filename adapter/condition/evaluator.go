package condition

import (
	"fmt"
	"strings"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

const nullMessage = "comparison against null is unknown, row excluded"

// Evaluator decides single predicates.
type Evaluator struct {
	comparer domain.Comparer
	patterns domain.PatternMatcher
}

// NewEvaluator returns a new Evaluator. Without [WithPatternMatcher], Like
// and NotLike fail with [domain.ErrEngine].
func NewEvaluator(options ...Option) *Evaluator {
	e := &Evaluator{
		comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// IsMatch decides "left qualifier right". Any comparison involving null
// records one warning on sink and is false, whatever the qualifier. Malformed
// between bounds and unknown qualifiers are engine errors.
func (e *Evaluator) IsMatch(sink domain.WarningSink, left domain.Value, q domain.Qualifier, right domain.Value) (bool, error) {
	if left.IsNull() || right.IsNull() {
		if sink != nil {
			sink.Warn(domain.Warning{
				Kind:      domain.WarningNullDisqualification,
				Qualifier: q,
				Left:      left,
				Right:     right,
				Message:   nullMessage,
			})
		}
		return false, nil
	}

	switch q {
	case domain.Equals, domain.NotEquals:
		comp, err := e.comparer.Compare(left, right)
		if err != nil {
			return false, err
		}
		return (comp == 0) == (q == domain.Equals), nil

	case domain.GreaterThan, domain.LessThan, domain.GreaterOrEqual, domain.LessOrEqual:
		comp, err := e.comparer.Compare(left, right)
		if err != nil {
			return false, err
		}
		return e.ordered(q, comp), nil

	case domain.Like, domain.NotLike:
		if e.patterns == nil {
			return false, domain.ErrEngine{Reason: "no pattern matcher configured"}
		}
		l, _ := left.Raw()
		r, _ := right.Raw()
		ok, err := e.patterns.Match(l, r)
		if err != nil {
			return false, err
		}
		return ok == (q == domain.Like), nil

	case domain.Between, domain.NotBetween:
		ok, err := e.between(left, right)
		if err != nil {
			return false, err
		}
		return ok == (q == domain.Between), nil
	}

	return false, domain.ErrEngine{Reason: fmt.Sprintf("unsupported qualifier %s", q)}
}

func (e *Evaluator) ordered(q domain.Qualifier, comp int) bool {
	switch q {
	case domain.GreaterThan:
		return comp > 0
	case domain.LessThan:
		return comp < 0
	case domain.GreaterOrEqual:
		return comp >= 0
	default:
		return comp <= 0
	}
}

// between reports whether value lies within "low:high", both inclusive. The
// bounds must be numbers.
func (e *Evaluator) between(value, bounds domain.Value) (bool, error) {
	raw, _ := bounds.Raw()
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return false, domain.ErrEngine{Reason: fmt.Sprintf("between bounds %q must be two numbers joined by ':'", raw)}
	}

	low, high := domain.NewValue(parts[0]), domain.NewValue(parts[1])
	if !low.IsNumeric() || !high.IsNumeric() {
		return false, domain.ErrEngine{Reason: fmt.Sprintf("between bounds %q are not numbers", raw)}
	}

	c, err := e.comparer.Compare(value, low)
	if err != nil || c < 0 {
		return false, err
	}
	c, err = e.comparer.Compare(value, high)
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}
