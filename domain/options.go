package domain

// WithExecuteParams sets the parameter table used to resolve query literals.
func WithExecuteParams(p map[string]Value) ExecuteOption {
	return func(eo *ExecuteOptions) {
		eo.Params = p
	}
}

// WithExecuteLimit sets the maximum number of rows to return. Zero means no
// limit.
func WithExecuteLimit(l int) ExecuteOption {
	return func(eo *ExecuteOptions) {
		eo.Limit = l
	}
}

// WithExecuteSkip sets the number of rows to drop from the start of the
// result.
func WithExecuteSkip(s int) ExecuteOption {
	return func(eo *ExecuteOptions) {
		eo.Skip = s
	}
}

// ExecuteOption configures statement execution through the functional options
// pattern.
type ExecuteOption func(*ExecuteOptions)

// ExecuteOptions contains parameters for customizing statement execution.
type ExecuteOptions struct {
	// Params resolves named parameters referenced by the statement.
	Params map[string]Value
	// Skip specifies how many leading rows to drop.
	Skip int
	// Limit specifies the maximum number of rows to return.
	Limit int
}
