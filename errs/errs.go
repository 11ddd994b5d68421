// Package errs defines the category of errors surfaced by the engine, as
// described in spec §7. Callers branch on category with errors.As instead
// of matching error strings.
package errs

import "fmt"

// Category identifies which of the engine's error taxonomy a failure
// belongs to.
type Category string

const (
	NotReady            Category = "not_ready"
	Durability          Category = "durability"
	Corruption          Category = "corruption"
	Validation          Category = "validation"
	ConstraintViolation Category = "constraint_violation"
	NotFound            Category = "not_found"
	IndexUnsupported    Category = "index_unsupported"
	ReplicationFailure  Category = "replication_failure"
	ConflictResolved    Category = "conflict_resolved"
)

// Error wraps an underlying cause with a category so callers can branch
// on failure class without string matching.
type Error struct {
	Cat     Category
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Cat, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Cat, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, errs.New(cat, "", nil)) style category checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Cat == e.Cat
}

// New constructs a categorized error.
func New(cat Category, message string, cause error) *Error {
	return &Error{Cat: cat, Message: message, Err: cause}
}

// Sentinels for errors.Is comparisons against a bare category.
var (
	ErrNotReady           = &Error{Cat: NotReady}
	ErrDurability         = &Error{Cat: Durability}
	ErrCorruption         = &Error{Cat: Corruption}
	ErrValidation         = &Error{Cat: Validation}
	ErrConstraintViolation = &Error{Cat: ConstraintViolation}
	ErrNotFound           = &Error{Cat: NotFound}
	ErrIndexUnsupported   = &Error{Cat: IndexUnsupported}
	ErrReplicationFailure = &Error{Cat: ReplicationFailure}
	ErrConflictResolved   = &Error{Cat: ConflictResolved}
)

// Of returns true if err belongs to the given category.
func Of(err error, cat Category) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Cat == cat
}
