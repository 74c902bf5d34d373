// Package matcher evaluates condition trees against rows and provides the
// default SQL wildcard [domain.PatternMatcher].
package matcher

import (
	"fmt"
	"log/slog"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// Resolver supplies the values of field and parameter operands for one row.
type Resolver interface {
	Resolve(condition.Operand) (domain.Value, error)
}

// Matcher evaluates whole condition trees.
type Matcher struct {
	comparer  domain.Comparer
	patterns  domain.PatternMatcher
	logger    *slog.Logger
	evaluator *condition.Evaluator
}

// NewMatcher returns a new Matcher.
func NewMatcher(options ...Option) *Matcher {
	m := &Matcher{
		comparer: comparer.NewComparer(),
		patterns: NewLike(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(m)
	}
	m.evaluator = condition.NewEvaluator(
		condition.WithComparer(m.comparer),
		condition.WithPatternMatcher(m.patterns),
	)
	return m
}

// Match reports whether the row described by r satisfies the tree. A nil
// tree or an empty root matches every row. Null comparisons are recorded on
// sink and count as false.
func (m *Matcher) Match(tree *condition.Tree, r Resolver, sink domain.WarningSink) (bool, error) {
	if tree == nil {
		return true, nil
	}
	return m.matchGroup(tree.Root, r, &loggingSink{sink: sink, logger: m.logger})
}

func (m *Matcher) matchGroup(g *condition.Group, r Resolver, sink domain.WarningSink) (bool, error) {
	if len(g.Members) == 0 {
		return true, nil
	}
	for _, member := range g.Members {
		var ok bool
		var err error
		switch member := member.(type) {
		case *condition.Condition:
			ok, err = m.matchCondition(member, r, sink)
		case *condition.Group:
			ok, err = m.matchGroup(member, r, sink)
		}
		if err != nil {
			return false, err
		}
		if g.Connector == domain.Or && ok {
			return true, nil
		}
		if g.Connector == domain.And && !ok {
			return false, nil
		}
	}
	return g.Connector == domain.And, nil
}

func (m *Matcher) matchCondition(c *condition.Condition, r Resolver, sink domain.WarningSink) (bool, error) {
	left, err := m.operand(c.Left, r)
	if err != nil {
		return false, err
	}
	right, err := m.operand(c.Right, r)
	if err != nil {
		return false, err
	}
	return m.evaluator.IsMatch(sink, left, c.Qualifier, right)
}

func (m *Matcher) operand(o condition.Operand, r Resolver) (domain.Value, error) {
	if o.Kind == domain.OperandConstant {
		return o.Value, nil
	}
	if r == nil {
		return domain.Null(), domain.ErrEngine{Reason: fmt.Sprintf("cannot resolve %s without a row", o)}
	}
	return r.Resolve(o)
}

type loggingSink struct {
	sink   domain.WarningSink
	logger *slog.Logger
}

// Warn implements domain.WarningSink.
func (l *loggingSink) Warn(w domain.Warning) {
	l.logger.Debug("row disqualified",
		"qualifier", w.Qualifier.String(),
		"left", w.Left.String(),
		"right", w.Right.String(),
	)
	if l.sink != nil {
		l.sink.Warn(w)
	}
}

// Sources resolves operands against the documents of one candidate row,
// keyed by schema alias, and against the execution parameters.
type Sources struct {
	fields *keymap.Map[domain.Fields]
	params *keymap.Map[domain.Value]
}

// NewSources returns an empty Sources bound to the given parameters.
func NewSources(params map[string]domain.Value) *Sources {
	s := &Sources{
		fields: keymap.New[domain.Fields](),
		params: keymap.New[domain.Value](),
	}
	for k, v := range params {
		s.params.Set(k, v)
	}
	return s
}

// Bind sets the document contributed by the schema alias.
func (s *Sources) Bind(alias string, f domain.Fields) *Sources {
	s.fields.Set(alias, f)
	return s
}

// Resolve implements Resolver. A field missing from its document is null. An
// unknown alias, a field present in more than one unqualified source or an
// unbound parameter is an engine error.
func (s *Sources) Resolve(o condition.Operand) (domain.Value, error) {
	switch o.Kind {
	case domain.OperandConstant:
		return o.Value, nil
	case domain.OperandParameter:
		v, ok := s.params.Get(o.Name)
		if !ok {
			return domain.Null(), domain.ErrEngine{Reason: fmt.Sprintf("parameter %q is not bound", o.Name)}
		}
		return v, nil
	}

	if o.Alias != "" {
		f, ok := s.fields.Get(o.Alias)
		if !ok {
			return domain.Null(), domain.ErrEngine{Reason: fmt.Sprintf("unknown schema alias %q in %s", o.Alias, o)}
		}
		v, _ := f.Get(o.Name)
		return v, nil
	}

	var found domain.Value
	var from string
	for alias, f := range s.fields.Iter() {
		v, ok := f.Get(o.Name)
		if !ok {
			continue
		}
		if from != "" {
			return domain.Null(), domain.ErrEngine{
				Reason: fmt.Sprintf("field %q is ambiguous between %q and %q", o.Name, from, alias),
			}
		}
		found, from = v, alias
	}
	return found, nil
}
