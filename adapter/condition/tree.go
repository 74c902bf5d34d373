package condition

import (
	"fmt"
	"strings"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Node is a member of a [Group]: either a [*Condition] or a nested [*Group].
type Node interface {
	node()
}

// Group joins its members with a single connector.
type Group struct {
	Connector domain.Connector
	Members   []Node
}

func (*Group) node() {}

// Add appends members to the group and returns it.
func (g *Group) Add(members ...Node) *Group {
	g.Members = append(g.Members, members...)
	return g
}

// Clone returns a deep copy of the group and every member.
func (g *Group) Clone() *Group {
	c := &Group{Connector: g.Connector, Members: make([]Node, len(g.Members))}
	for n, m := range g.Members {
		switch m := m.(type) {
		case *Condition:
			c.Members[n] = m.Clone()
		case *Group:
			c.Members[n] = m.Clone()
		}
	}
	return c
}

// Tree is a condition tree rooted at a group. The tree names each condition
// it creates with a sequential variable (v0, v1, ...) used to render the
// boolean expression.
type Tree struct {
	Root *Group
	next int
}

// NewTree returns an empty tree whose root uses the given connector.
func NewTree(connector domain.Connector) *Tree {
	return &Tree{Root: &Group{Connector: connector}}
}

// NewCondition creates a condition named after the next free variable. It is
// not added to the tree.
func (t *Tree) NewCondition(left Operand, q domain.Qualifier, right Operand) *Condition {
	c := &Condition{
		Left:      left,
		Qualifier: q,
		Right:     right,
		Variable:  fmt.Sprintf("v%d", t.next),
	}
	t.next++
	return c
}

// Where creates a condition and appends it to the root group.
func (t *Tree) Where(left Operand, q domain.Qualifier, right Operand) *Condition {
	c := t.NewCondition(left, q, right)
	t.Root.Add(c)
	return c
}

// Group returns a new group, not yet added to the tree.
func (t *Tree) Group(connector domain.Connector, members ...Node) *Group {
	return &Group{Connector: connector, Members: members}
}

// Clone returns a deep copy of the tree. Optimization flags are copied, so
// callers planning more than one candidate must clone an unplanned template.
func (t *Tree) Clone() *Tree {
	return &Tree{Root: t.Root.Clone(), next: t.next}
}

// Expression renders the tree as a boolean expression over the condition
// variables, such as "v0 && (v1 || v2)".
func (t *Tree) Expression() string {
	return expression(t.Root, true)
}

func expression(g *Group, root bool) string {
	parts := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		switch m := m.(type) {
		case *Condition:
			parts = append(parts, m.Variable)
		case *Group:
			if s := expression(m, false); s != "" {
				parts = append(parts, s)
			}
		}
	}
	s := strings.Join(parts, " "+g.Connector.String()+" ")
	if !root && len(parts) > 1 {
		return "(" + s + ")"
	}
	return s
}

// Conditions returns every condition of the tree, depth first.
func (t *Tree) Conditions() []*Condition {
	var res []*Condition
	var walk func(*Group)
	walk = func(g *Group) {
		for _, m := range g.Members {
			switch m := m.(type) {
			case *Condition:
				res = append(res, m)
			case *Group:
				walk(m)
			}
		}
	}
	walk(t.Root)
	return res
}

// Flatten returns the conditions that must all hold for the tree to hold: the
// members of the root AND conjunction and of nested AND groups. OR groups with
// more than one member are not descended into.
func (t *Tree) Flatten() []*Condition {
	var res []*Condition
	var walk func(*Group)
	walk = func(g *Group) {
		if g.Connector == domain.Or && len(g.Members) > 1 {
			return
		}
		for _, m := range g.Members {
			switch m := m.(type) {
			case *Condition:
				res = append(res, m)
			case *Group:
				walk(m)
			}
		}
	}
	walk(t.Root)
	return res
}

// Fields returns the distinct field operands referenced by the tree, in order
// of first appearance.
func (t *Tree) Fields() []Operand {
	var res []Operand
	seen := make(map[string]struct{})
	for _, c := range t.Conditions() {
		for _, o := range [...]Operand{c.Left, c.Right} {
			if !o.IsField() {
				continue
			}
			key := domain.Fold(o.Alias) + "." + domain.Fold(o.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			res = append(res, o)
		}
	}
	return res
}
