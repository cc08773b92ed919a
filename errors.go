package depot

import (
	"fmt"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeDependencyNotFound indicates no alias is registered for a target and qualifier
	CodeDependencyNotFound = "DEPENDENCY_NOT_FOUND"

	// CodeCyclicDependency indicates the component graph contains a cycle
	CodeCyclicDependency = "CYCLIC_DEPENDENCY"

	// CodeIdentityCollision indicates two distinct classes derived the same identity
	CodeIdentityCollision = "IDENTITY_COLLISION"

	// CodeConstructionFailed indicates a constructor, field assignment or post-construct hook failed
	CodeConstructionFailed = "CONSTRUCTION_FAILED"

	// CodeBootstrapFailed indicates module discovery or auto-creation failed
	CodeBootstrapFailed = "BOOTSTRAP_FAILED"

	// CodeTypeMismatch indicates a resolved value does not fit the requested type
	CodeTypeMismatch = "TYPE_MISMATCH"

	// CodeInvalidClass indicates a class reference is nil or cannot be instantiated
	CodeInvalidClass = "INVALID_CLASS"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrDependencyNotFoundSentinel is a sentinel error for missing aliases (for error checking).
var ErrDependencyNotFoundSentinel = errs.NewError(CodeDependencyNotFound, "dependency not found", nil)

// ErrCyclicDependencySentinel is a sentinel error for dependency cycles (for error checking).
var ErrCyclicDependencySentinel = errs.NewError(CodeCyclicDependency, "cyclic dependency", nil)

// ErrIdentityCollisionSentinel is a sentinel error for identity collisions (for error checking).
var ErrIdentityCollisionSentinel = errs.NewError(CodeIdentityCollision, "identity collision", nil)

// ErrConstructionFailedSentinel is a sentinel error for construction failures (for error checking).
var ErrConstructionFailedSentinel = errs.NewError(CodeConstructionFailed, "construction failed", nil)

// ErrBootstrapFailedSentinel is a sentinel error for bootstrap failures (for error checking).
var ErrBootstrapFailedSentinel = errs.NewError(CodeBootstrapFailed, "bootstrap failed", nil)

// ErrTypeMismatchSentinel is a sentinel error for type mismatch during resolution.
var ErrTypeMismatchSentinel = errs.NewError(CodeTypeMismatch, "type mismatch", nil)

// ErrInvalidClass is returned when a nil class is registered or resolved.
var ErrInvalidClass = errs.NewError(CodeInvalidClass, "class cannot be nil", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// ErrDependencyNotFound creates an error for a target/qualifier pair without alias.
func ErrDependencyNotFound(targetID, qualifier string) *errs.Error {
	return errs.NewError(
		CodeDependencyNotFound,
		fmt.Sprintf("dependency not found: %s[%s]", targetID, qualifier),
		nil,
	).WithContext("target", targetID).
		WithContext("qualifier", qualifier).(*errs.Error)
}

// ErrCyclicDependency creates an error for a cycle in the component graph.
func ErrCyclicDependency(cycle []string) *errs.Error {
	return errs.NewError(
		CodeCyclicDependency,
		fmt.Sprintf("cyclic dependency detected: %s", joinStrings(cycle, " -> ")),
		nil,
	).WithContext("cycle", cycle).(*errs.Error)
}

// ErrIdentityCollision creates an error for two classes sharing one identity.
func ErrIdentityCollision(id string, existing, incoming *Class) *errs.Error {
	return errs.NewError(
		CodeIdentityCollision,
		fmt.Sprintf("identity '%s' already belongs to %s, cannot register %s", id, existing.typeName(), incoming.typeName()),
		nil,
	).WithContext("identity", id).(*errs.Error)
}

// NewConstructionError creates an error for a failed construction step.
func NewConstructionError(classID, step string, cause error) *errs.Error {
	return errs.NewError(
		CodeConstructionFailed,
		fmt.Sprintf("class '%s' failed during %s", classID, step),
		cause,
	).WithContext("class", classID).
		WithContext("step", step).(*errs.Error)
}

// NewBootstrapError creates an error for a failed initialization phase.
func NewBootstrapError(phase string, cause error) *errs.Error {
	return errs.NewError(
		CodeBootstrapFailed,
		fmt.Sprintf("bootstrap failed during %s", phase),
		cause,
	).WithContext("phase", phase).(*errs.Error)
}

// ErrTypeMismatch creates an error for type mismatch during resolution.
func ErrTypeMismatch(subject string, expected string, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("%s type mismatch: expected %s, got %T", subject, expected, actual),
		nil,
	).WithContext("subject", subject).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

// NewInvalidClassError creates an error for a class that cannot be used as requested.
func NewInvalidClassError(classID, reason string) *errs.Error {
	return errs.NewError(
		CodeInvalidClass,
		fmt.Sprintf("class '%s' is invalid: %s", classID, reason),
		nil,
	).WithContext("class", classID).(*errs.Error)
}

// joinStrings is a helper to join strings.
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for i := 1; i < len(strs); i++ {
		result += sep + strs[i]
	}
	return result
}
