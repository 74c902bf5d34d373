package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Qualifier is the comparison operator of a condition.
type Qualifier int

// Supported qualifiers.
const (
	QualifierNone Qualifier = iota
	Equals
	NotEquals
	GreaterThan
	LessThan
	GreaterOrEqual
	LessOrEqual
	Like
	NotLike
	Between
	NotBetween
)

var qualifierNames = [...]string{
	QualifierNone:  "none",
	Equals:         "=",
	NotEquals:      "!=",
	GreaterThan:    ">",
	LessThan:       "<",
	GreaterOrEqual: ">=",
	LessOrEqual:    "<=",
	Like:           "like",
	NotLike:        "not like",
	Between:        "between",
	NotBetween:     "not between",
}

func (q Qualifier) String() string {
	if q < 0 || int(q) >= len(qualifierNames) {
		return fmt.Sprintf("Qualifier(%d)", int(q))
	}
	return qualifierNames[q]
}

// IsEquality reports whether q is [Equals].
func (q Qualifier) IsEquality() bool {
	return q == Equals
}

// IsRange reports whether q bounds a value from one or both sides.
func (q Qualifier) IsRange() bool {
	switch q {
	case GreaterThan, LessThan, GreaterOrEqual, LessOrEqual, Between:
		return true
	default:
		return false
	}
}

// ParseQualifier maps an operator token, as produced by the tokenizer, to its
// [Qualifier]. Word operators are case-insensitive.
func ParseQualifier(token string) (Qualifier, error) {
	switch strings.ToLower(strings.Join(strings.Fields(token), " ")) {
	case "=", "==":
		return Equals, nil
	case "!=", "<>":
		return NotEquals, nil
	case ">":
		return GreaterThan, nil
	case "<":
		return LessThan, nil
	case ">=":
		return GreaterOrEqual, nil
	case "<=":
		return LessOrEqual, nil
	case "like":
		return Like, nil
	case "not like":
		return NotLike, nil
	case "between":
		return Between, nil
	case "not between":
		return NotBetween, nil
	}
	return QualifierNone, ErrParse{Expected: "comparison operator", Near: token}
}

// Connector joins the members of a condition group.
type Connector int

// Supported connectors.
const (
	And Connector = iota
	Or
)

func (c Connector) String() string {
	if c == Or {
		return "||"
	}
	return "&&"
}

// OperandKind tells whether an operand references a field, holds a constant
// or names a parameter bound at execution time.
type OperandKind int

// Supported operand kinds.
const (
	OperandConstant OperandKind = iota
	OperandField
	OperandParameter
)

// Granularity is the scope of a lock.
type Granularity int

// Supported granularities.
const (
	GranularitySchema Granularity = iota
	GranularityDocument
	GranularityIndex
)

func (g Granularity) String() string {
	switch g {
	case GranularitySchema:
		return "Schema"
	case GranularityDocument:
		return "Document"
	case GranularityIndex:
		return "Index"
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// LockOperation is the kind of access a lock grants.
type LockOperation int

// Supported lock operations.
const (
	LockRead LockOperation = iota
	LockIntent
	LockWrite
)

func (o LockOperation) String() string {
	switch o {
	case LockRead:
		return "Read"
	case LockIntent:
		return "Intent"
	case LockWrite:
		return "Write"
	}
	return fmt.Sprintf("LockOperation(%d)", int(o))
}

// CompatibleWith reports whether two different processes may hold o and other
// on the same object at the same time.
func (o LockOperation) CompatibleWith(other LockOperation) bool {
	return o != LockWrite && other != LockWrite
}

// TransactionState is the lifecycle stage of a transaction.
type TransactionState int

// Transaction states.
const (
	TransactionActive TransactionState = iota
	TransactionCommitting
	TransactionRollingBack
	TransactionTerminated
)

func (s TransactionState) String() string {
	switch s {
	case TransactionActive:
		return "active"
	case TransactionCommitting:
		return "committing"
	case TransactionRollingBack:
		return "rolling back"
	case TransactionTerminated:
		return "terminated"
	}
	return fmt.Sprintf("TransactionState(%d)", int(s))
}

// Classification tells how much of an index path a condition tree satisfies.
type Classification int

// Index match classifications.
const (
	MatchNone Classification = iota
	MatchPartial
	MatchFull
)

func (c Classification) String() string {
	switch c {
	case MatchNone:
		return "none"
	case MatchPartial:
		return "partial"
	case MatchFull:
		return "full"
	}
	return fmt.Sprintf("Classification(%d)", int(c))
}

// DocumentPointer locates one document in physical storage.
type DocumentPointer struct {
	Schema     string
	Page       uint32
	DocumentID uint64
}

// String returns the pointer as "schema:page:id". It is also the object name
// used for document locks.
func (p DocumentPointer) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Schema, p.Page, p.DocumentID)
}

// IndexAttribute is one ordered component of an index key path.
type IndexAttribute struct {
	Field string
}

// Clone returns a copy of the attribute.
func (a IndexAttribute) Clone() IndexAttribute {
	return IndexAttribute{Field: a.Field}
}

// HeldLock is a lock currently owned by a process.
type HeldLock struct {
	ProcessID   uint64
	Granularity Granularity
	Operation   LockOperation
	ObjectName  string
}

// TransactionSnapshot is a point-in-time copy of the locks held by one active
// transaction.
type TransactionSnapshot struct {
	ProcessID uint64
	HeldLocks []HeldLock
}

// Record is one line of a datafile: a stored document, or the deletion of
// one when Deleted is set.
type Record struct {
	Pointer DocumentPointer
	Fields  Fields
	Deleted bool
}

// Clone returns a deep copy of the snapshot.
func (s TransactionSnapshot) Clone() TransactionSnapshot {
	return TransactionSnapshot{ProcessID: s.ProcessID, HeldLocks: slices.Clone(s.HeldLocks)}
}

// WarningKind categorizes a non-fatal diagnostic.
type WarningKind int

// Warning kinds.
const (
	// WarningNullDisqualification is recorded when a comparison involving
	// null cannot be decided and the row is excluded.
	WarningNullDisqualification WarningKind = iota
)

func (k WarningKind) String() string {
	if k == WarningNullDisqualification {
		return "null disqualification"
	}
	return fmt.Sprintf("WarningKind(%d)", int(k))
}

// Warning is a non-fatal diagnostic accumulated on a transaction.
type Warning struct {
	Kind          WarningKind
	TransactionID uuid.UUID
	Qualifier     Qualifier
	Left          Value
	Right         Value
	Message       string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s %s %s: %s", w.Kind, w.Left, w.Qualifier, w.Right, w.Message)
}
