// Package schederr defines the error-kind taxonomy of spec §7 and the
// propagation rules (fatal vs. warning) components use to report failures.
package schederr

// Kind enumerates the error taxonomy of spec §7.
type Kind string

const (
	// CycleDetected — the dependency graph is non-DAG. Fatal for the write
	// that introduced it.
	CycleDetected Kind = "CycleDetected"
	// CapacityViolation — post-solve validation found a resource
	// over-allocation. Fatal; aborts commit.
	CapacityViolation Kind = "CapacityViolation"
	// InfeasibleModel — the solver found no feasible solution under hard
	// constraints. Fatal; prior schedule is left untouched.
	InfeasibleModel Kind = "InfeasibleModel"
	// SolverTimeout — no feasible solution was found within the solver's
	// time caps. Handled identically to InfeasibleModel.
	SolverTimeout Kind = "SolverTimeout"
	// InvalidEventTransition — an event arrived for a task not in one of
	// its allowed source states.
	InvalidEventTransition Kind = "InvalidEventTransition"
	// CandidateUnavailable — no employee/equipment satisfied a requirement
	// in-window. Non-fatal; the requirement is skipped.
	CandidateUnavailable Kind = "CandidateUnavailable"
	// DependencyWarning — a manual reschedule's requested span would
	// violate a predecessor's anchor. Non-fatal; caller decides.
	DependencyWarning Kind = "DependencyWarning"
)

// Fatal reports whether errors of this kind must abort the enclosing
// transaction (§7 propagation policy).
func (k Kind) Fatal() bool {
	switch k {
	case CycleDetected, CapacityViolation, InfeasibleModel, SolverTimeout, InvalidEventTransition:
		return true
	case CandidateUnavailable, DependencyWarning:
		return false
	default:
		return true
	}
}

// Error is the concrete error type carried through the system: a message,
// a Kind, optional structured details, and the wrapped cause (if any).
type Error struct {
	Message string
	Code    Kind
	Details map[string]any
	cause   error
}

// New constructs an Error of the given kind wrapping cause (which may be nil).
func New(cause error, code Kind, details map[string]any) *Error {
	message := string(code)
	if cause != nil {
		message = cause.Error()
	}
	return &Error{Message: message, Code: code, Details: details, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// AsMap renders the error as a response-friendly map, or nil if empty.
func (e *Error) AsMap() map[string]any {
	if e == nil {
		return nil
	}
	if e.Message == "" && e.Code == "" && e.Details == nil {
		return nil
	}
	return map[string]any{
		"message": e.Message,
		"code":    string(e.Code),
		"details": e.Details,
	}
}

// Is reports whether err carries the given Kind, for use with errors.Is-style
// checks (callers typically use errors.As to recover the *Error first).
func (e *Error) Is(kind Kind) bool {
	return e != nil && e.Code == kind
}
