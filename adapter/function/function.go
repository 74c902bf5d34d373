// Package function dispatches scalar and aggregate functions by name. Names
// are case-insensitive and arguments bind to parameters by position or by
// name, with optional defaults.
package function

import (
	"fmt"
	"log/slog"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// Param declares one function parameter.
type Param struct {
	Name       string
	Default    domain.Value
	HasDefault bool
}

// Required returns a parameter that must be given.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional returns a parameter that takes def when omitted.
func Optional(name string, def domain.Value) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// ScalarFunc computes one value from bound arguments.
type ScalarFunc func(args Arguments) (domain.Value, error)

// Accumulator folds the arguments of many rows into one value.
type Accumulator interface {
	// Add consumes the arguments of one row.
	Add(args Arguments) error
	// Result returns the accumulated value.
	Result() (domain.Value, error)
}

// Definition describes a registered function. Exactly one of Scalar and
// Aggregate is set. A variadic function collects extra positional arguments,
// available through [Arguments.Rest].
type Definition struct {
	Name      string
	Params    []Param
	Variadic  bool
	Scalar    ScalarFunc
	Aggregate func() Accumulator
}

// IsAggregate reports whether the function folds rows.
func (d *Definition) IsAggregate() bool {
	return d.Aggregate != nil
}

// Arg is one call argument. An empty Name makes it positional.
type Arg struct {
	Name  string
	Value domain.Value
}

// Positional returns positional arguments for values, in order.
func Positional(values ...domain.Value) []Arg {
	res := make([]Arg, len(values))
	for n, v := range values {
		res[n] = Arg{Value: v}
	}
	return res
}

// Registry holds the available functions.
type Registry struct {
	functions *keymap.Map[*Definition]
	decoder   domain.Decoder
	comparer  domain.Comparer
	patterns  domain.PatternMatcher
	logger    *slog.Logger
	builtins  bool
}

// NewRegistry returns a registry holding the built-in functions.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		functions: keymap.New[*Definition](),
		decoder:   decoder.NewDecoder(),
		comparer:  comparer.NewComparer(),
		patterns:  matcher.NewLike(),
		logger:    slog.New(slog.DiscardHandler),
		builtins:  true,
	}
	for _, option := range options {
		option(r)
	}
	if r.builtins {
		for _, def := range r.builtinDefinitions() {
			if err := r.Register(def); err != nil {
				panic(err)
			}
		}
	}
	return r
}

// Register adds a function. Registering a name twice fails.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return domain.ErrFunction{Reason: "function name is empty"}
	}
	if (def.Scalar == nil) == (def.Aggregate == nil) {
		return domain.ErrFunction{Name: def.Name, Reason: "function must be either scalar or aggregate"}
	}
	if r.functions.Has(def.Name) {
		return domain.ErrFunction{Name: def.Name, Reason: "function already registered"}
	}
	seen := keymap.New[struct{}]()
	optional := false
	for _, p := range def.Params {
		if seen.Has(p.Name) {
			return domain.ErrFunction{Name: def.Name, Reason: fmt.Sprintf("parameter %q declared twice", p.Name)}
		}
		seen.Set(p.Name, struct{}{})
		if optional && !p.HasDefault {
			return domain.ErrFunction{Name: def.Name, Reason: fmt.Sprintf("required parameter %q follows an optional one", p.Name)}
		}
		optional = optional || p.HasDefault
	}
	r.functions.Set(def.Name, &def)
	r.logger.Debug("function registered", "name", def.Name, "aggregate", def.IsAggregate())
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	def, ok := r.functions.Get(name)
	if !ok {
		return nil, domain.ErrFunction{Name: name, Reason: "unknown function"}
	}
	return def, nil
}

// Names returns the registered function names in registration order.
func (r *Registry) Names() []string {
	return r.functions.Keys()
}

// Bind matches args to the parameters of the named function.
func (r *Registry) Bind(name string, args []Arg) (*Definition, Arguments, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return nil, Arguments{}, err
	}
	bound, err := r.bind(def, args)
	return def, bound, err
}

func (r *Registry) bind(def *Definition, args []Arg) (Arguments, error) {
	bound := Arguments{values: keymap.New[domain.Value](), decoder: r.decoder}
	named := false
	for n, arg := range args {
		if arg.Name == "" {
			if named {
				return Arguments{}, domain.ErrFunction{Name: def.Name, Reason: "positional argument after named argument"}
			}
			if n < len(def.Params) {
				bound.values.Set(def.Params[n].Name, arg.Value)
				continue
			}
			if !def.Variadic {
				return Arguments{}, domain.ErrFunction{
					Name:   def.Name,
					Reason: fmt.Sprintf("too many arguments: expected at most %d, got %d", len(def.Params), len(args)),
				}
			}
			bound.rest = append(bound.rest, arg.Value)
			continue
		}

		named = true
		if !declares(def, arg.Name) {
			return Arguments{}, domain.ErrFunction{Name: def.Name, Reason: fmt.Sprintf("unknown parameter %q", arg.Name)}
		}
		if bound.values.Has(arg.Name) {
			return Arguments{}, domain.ErrFunction{Name: def.Name, Reason: fmt.Sprintf("parameter %q given twice", arg.Name)}
		}
		bound.values.Set(arg.Name, arg.Value)
	}

	// Params fixes the key order so Decode and Keys see declaration order.
	ordered := keymap.New[domain.Value]()
	for _, p := range def.Params {
		v, ok := bound.values.Get(p.Name)
		switch {
		case ok:
			ordered.Set(p.Name, v)
		case p.HasDefault:
			ordered.Set(p.Name, p.Default)
		default:
			return Arguments{}, domain.ErrFunction{Name: def.Name, Reason: fmt.Sprintf("missing required parameter %q", p.Name)}
		}
	}
	bound.values = ordered
	return bound, nil
}

func declares(def *Definition, name string) bool {
	for _, p := range def.Params {
		if domain.Fold(p.Name) == domain.Fold(name) {
			return true
		}
	}
	return false
}

// Call runs a scalar function.
func (r *Registry) Call(name string, args ...Arg) (domain.Value, error) {
	def, bound, err := r.Bind(name, args)
	if err != nil {
		return domain.Null(), err
	}
	if def.IsAggregate() {
		return domain.Null(), domain.ErrFunction{Name: def.Name, Reason: "aggregate function used as scalar"}
	}
	return def.Scalar(bound)
}

// Accumulate starts a new accumulation of an aggregate function.
func (r *Registry) Accumulate(name string) (*Accumulation, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !def.IsAggregate() {
		return nil, domain.ErrFunction{Name: def.Name, Reason: "scalar function used as aggregate"}
	}
	return &Accumulation{registry: r, def: def, acc: def.Aggregate()}, nil
}

// Accumulation is one running aggregate.
type Accumulation struct {
	registry *Registry
	def      *Definition
	acc      Accumulator
}

// Add binds the arguments of one row and feeds them to the aggregate.
func (a *Accumulation) Add(args ...Arg) error {
	bound, err := a.registry.bind(a.def, args)
	if err != nil {
		return err
	}
	return a.acc.Add(bound)
}

// Result returns the aggregate value.
func (a *Accumulation) Result() (domain.Value, error) {
	return a.acc.Result()
}

// Arguments are the values bound to the parameters of one call.
type Arguments struct {
	values  *keymap.Map[domain.Value]
	rest    []domain.Value
	decoder domain.Decoder
}

// Get returns the value bound to a parameter. Unknown names are null.
func (a Arguments) Get(name string) domain.Value {
	if a.values == nil {
		return domain.Null()
	}
	v, _ := a.values.Get(name)
	return v
}

// Rest returns the extra positional arguments of a variadic call.
func (a Arguments) Rest() []domain.Value {
	return a.rest
}

// Decode binds the parameters into target by name, converting the values to
// the field types. Null parameters leave their fields untouched.
func (a Arguments) Decode(target any) error {
	src := keymap.New[domain.Value]()
	if a.values != nil {
		src = a.values
	}
	return a.decoder.Decode(src, target)
}
