package function

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (r *Registry) builtinDefinitions() []Definition {
	return []Definition{
		{Name: "Upper", Params: []Param{Required("text")}, Scalar: upper},
		{Name: "Lower", Params: []Param{Required("text")}, Scalar: lower},
		{Name: "Length", Params: []Param{Required("text")}, Scalar: length},
		{
			Name:   "Substring",
			Params: []Param{Required("text"), Required("start"), Optional("length", domain.NewValue("-1"))},
			Scalar: substring,
		},
		{Name: "Concat", Variadic: true, Scalar: concat},
		{Name: "IsLike", Params: []Param{Required("text"), Required("pattern")}, Scalar: r.isLike},
		{Name: "Coalesce", Params: []Param{Required("value"), Required("fallback")}, Scalar: coalesce},

		{
			Name:      "Count",
			Params:    []Param{Optional("value", domain.NewValue("*"))},
			Aggregate: func() Accumulator { return &count{} },
		},
		{Name: "Sum", Params: []Param{Required("value")}, Aggregate: func() Accumulator { return &sum{name: "Sum"} }},
		{Name: "Avg", Params: []Param{Required("value")}, Aggregate: func() Accumulator { return &sum{name: "Avg", avg: true} }},
		{Name: "Min", Params: []Param{Required("value")}, Aggregate: func() Accumulator { return &extreme{cmp: r.comparer, sign: -1} }},
		{Name: "Max", Params: []Param{Required("value")}, Aggregate: func() Accumulator { return &extreme{cmp: r.comparer, sign: 1} }},
	}
}

func upper(args Arguments) (domain.Value, error) {
	return mapText(args.Get("text"), cases.Upper(language.Und).String), nil
}

func lower(args Arguments) (domain.Value, error) {
	return mapText(args.Get("text"), cases.Lower(language.Und).String), nil
}

func mapText(v domain.Value, fn func(string) string) domain.Value {
	s, ok := v.Raw()
	if !ok {
		return domain.Null()
	}
	return domain.NewValue(fn(s))
}

func length(args Arguments) (domain.Value, error) {
	s, ok := args.Get("text").Raw()
	if !ok {
		return domain.Null(), nil
	}
	return domain.NewValue(strconv.Itoa(utf8.RuneCountInString(s))), nil
}

// substring takes a zero-based rune offset. A negative length reads to the
// end of the text and lengths past the end are clamped.
func substring(args Arguments) (domain.Value, error) {
	var p struct {
		Text   *string `gedbql:"text"`
		Start  int     `gedbql:"start"`
		Length int     `gedbql:"length"`
	}
	if err := args.Decode(&p); err != nil {
		return domain.Null(), domain.ErrFunction{Name: "Substring", Reason: err.Error()}
	}
	if p.Text == nil {
		return domain.Null(), nil
	}
	runes := []rune(*p.Text)
	if p.Start < 0 || p.Start > len(runes) {
		return domain.Null(), domain.ErrFunction{Name: "Substring", Reason: "start " + strconv.Itoa(p.Start) + " is out of range"}
	}
	end := len(runes)
	if p.Length >= 0 {
		end = min(end, p.Start+p.Length)
	}
	return domain.NewValue(string(runes[p.Start:end])), nil
}

// concat skips null arguments. It is null only when every argument is.
func concat(args Arguments) (domain.Value, error) {
	var b strings.Builder
	found := false
	for _, v := range args.Rest() {
		if s, ok := v.Raw(); ok {
			b.WriteString(s)
			found = true
		}
	}
	if !found {
		return domain.Null(), nil
	}
	return domain.NewValue(b.String()), nil
}

func (r *Registry) isLike(args Arguments) (domain.Value, error) {
	text, tok := args.Get("text").Raw()
	pattern, pok := args.Get("pattern").Raw()
	if !tok || !pok {
		return domain.Null(), nil
	}
	ok, err := r.patterns.Match(text, pattern)
	if err != nil {
		return domain.Null(), domain.ErrFunction{Name: "IsLike", Reason: err.Error()}
	}
	return domain.NewValue(strconv.FormatBool(ok)), nil
}

func coalesce(args Arguments) (domain.Value, error) {
	if v := args.Get("value"); !v.IsNull() {
		return v, nil
	}
	return args.Get("fallback"), nil
}

type count struct {
	n int
}

func (c *count) Add(args Arguments) error {
	if !args.Get("value").IsNull() {
		c.n++
	}
	return nil
}

func (c *count) Result() (domain.Value, error) {
	return domain.NewValue(strconv.Itoa(c.n)), nil
}

// sum ignores nulls and fails on non-numeric values. With no values the
// result is null.
type sum struct {
	name  string
	avg   bool
	total big.Float
	n     int
}

func (s *sum) Add(args Arguments) error {
	v := args.Get("value")
	if v.IsNull() {
		return nil
	}
	f, ok := v.Number()
	if !ok {
		return domain.ErrFunction{Name: s.name, Reason: "value " + strconv.Quote(v.String()) + " is not numeric"}
	}
	s.total.Add(&s.total, f)
	s.n++
	return nil
}

func (s *sum) Result() (domain.Value, error) {
	if s.n == 0 {
		return domain.Null(), nil
	}
	res := new(big.Float).Copy(&s.total)
	if s.avg {
		res.Quo(res, new(big.Float).SetInt64(int64(s.n)))
	}
	return domain.NewValue(res.Text('g', -1)), nil
}

// extreme keeps the smallest or largest non-null value under the total order
// of the comparer.
type extreme struct {
	cmp  domain.Comparer
	sign int
	best domain.Value
}

func (e *extreme) Add(args Arguments) error {
	v := args.Get("value")
	if v.IsNull() {
		return nil
	}
	if e.best.IsNull() || e.cmp.Order(v, e.best)*e.sign > 0 {
		e.best = v
	}
	return nil
}

func (e *extreme) Result() (domain.Value, error) {
	return e.best, nil
}
