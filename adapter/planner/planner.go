// Package planner matches condition trees against index attribute paths and
// picks the index a schema scan should use.
package planner

import (
	"cmp"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/index"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Step is one attribute of an index path matched to a predicate.
type Step struct {
	Attribute domain.IndexAttribute
	Condition *condition.Condition
	// Value is the operand opposite the attribute field.
	Value condition.Operand
}

// ScanResult is the outcome of matching one tree against one index.
type ScanResult struct {
	Index          *index.Index
	Tree           *condition.Tree
	Classification domain.Classification
	Extent         int
	Steps          []Step
}

// Plan is the access path chosen for one schema. A nil Index means a full
// scan.
type Plan struct {
	ScanResult
	Alias string
}

// IsFullScan reports whether the plan reads every document of the schema.
func (p Plan) IsFullScan() bool {
	return p.Index == nil
}

// LookupPrefix returns the key prefix for [index.Index.Lookup]: the values of
// the leading steps matched by equality. Parameters are resolved through r.
func (p Plan) LookupPrefix(r matcher.Resolver) ([]domain.Value, error) {
	var prefix []domain.Value
	for _, step := range p.Steps {
		if !step.Condition.Qualifier.IsEquality() {
			break
		}
		v, err := r.Resolve(step.Value)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, v)
	}
	return prefix, nil
}

func (p Plan) String() string {
	if p.IsFullScan() {
		return fmt.Sprintf("%s: full scan", p.Alias)
	}
	vars := make([]string, len(p.Steps))
	for n, s := range p.Steps {
		vars[n] = s.Condition.Variable
	}
	return fmt.Sprintf("%s: index %s (%s, extent %d: %s)",
		p.Alias, p.Index.Name(), p.Classification, p.Extent, strings.Join(vars, ", "))
}

// Planner chooses index access paths.
type Planner struct {
	logger *slog.Logger
}

// NewPlanner returns a new Planner.
func NewPlanner(options ...Option) *Planner {
	p := &Planner{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Match walks the attribute path of idx, consuming for each attribute one
// unconsumed predicate of the AND conjunction of tree that compares the
// attribute field of alias to a constant or parameter with an equality or
// range qualifier. The walk stops at the first attribute with no such
// predicate. Matched predicates are marked in tree, so callers must pass a
// tree of their own.
func (p *Planner) Match(tree *condition.Tree, alias string, idx *index.Index) ScanResult {
	res := ScanResult{Index: idx, Tree: tree}
	conjunction := tree.Flatten()
	attributes := idx.Attributes()
	for _, a := range attributes {
		step, ok := p.find(conjunction, alias, a)
		if !ok {
			break
		}
		step.Condition.MarkIndexOptimized()
		res.Steps = append(res.Steps, step)
	}
	res.Extent = len(res.Steps)
	switch {
	case res.Extent == 0:
		res.Classification = domain.MatchNone
	case res.Extent == len(attributes):
		res.Classification = domain.MatchFull
	default:
		res.Classification = domain.MatchPartial
	}
	return res
}

// find prefers an equality predicate over a range one for the same field.
func (p *Planner) find(conjunction []*condition.Condition, alias string, a domain.IndexAttribute) (Step, bool) {
	var found Step
	var ok bool
	for _, c := range conjunction {
		if c.IsIndexOptimized() {
			continue
		}
		if !c.Qualifier.IsEquality() && !c.Qualifier.IsRange() {
			continue
		}
		var other condition.Operand
		switch {
		case refers(c.Left, alias, a) && c.Right.IsConstant():
			other = c.Right
		case refers(c.Right, alias, a) && c.Left.IsConstant():
			other = c.Left
		default:
			continue
		}
		if c.Qualifier.IsEquality() {
			return Step{Attribute: a, Condition: c, Value: other}, true
		}
		if !ok {
			found, ok = Step{Attribute: a, Condition: c, Value: other}, true
		}
	}
	return found, ok
}

func refers(o condition.Operand, alias string, a domain.IndexAttribute) bool {
	if !o.IsField() || domain.Fold(o.Name) != domain.Fold(a.Field) {
		return false
	}
	return o.Alias == "" || domain.Fold(o.Alias) == domain.Fold(alias)
}

// Choose matches a clone of template against every candidate and returns the
// best plan: full classification over partial, then the larger extent, then
// the index name. When no candidate matches anything the plan is a full scan
// over an unmarked clone. template itself is never marked and must not be.
func (p *Planner) Choose(template *condition.Tree, alias string, candidates []*index.Index) Plan {
	for _, c := range template.Conditions() {
		if c.IsIndexOptimized() {
			panic(fmt.Sprintf("planner: template condition %s already matched to an index", c.Variable))
		}
	}

	best := Plan{Alias: alias}
	for _, idx := range candidates {
		res := p.Match(template.Clone(), alias, idx)
		if res.Extent == 0 {
			continue
		}
		if best.IsFullScan() || better(res, best.ScanResult) {
			best.ScanResult = res
		}
	}
	if best.IsFullScan() {
		best.Tree = template.Clone()
	}
	p.logger.Debug("plan chosen", slog.String("plan", best.String()))
	return best
}

func better(a, b ScanResult) bool {
	if c := cmp.Compare(rank(a.Classification), rank(b.Classification)); c != 0 {
		return c > 0
	}
	if a.Extent != b.Extent {
		return a.Extent > b.Extent
	}
	return domain.Fold(a.Index.Name()) < domain.Fold(b.Index.Name())
}

func rank(c domain.Classification) int {
	switch c {
	case domain.MatchFull:
		return 2
	case domain.MatchPartial:
		return 1
	}
	return 0
}
