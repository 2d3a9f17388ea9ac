package weiroll

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for planning failures. All planning errors are terminal:
// no partial commands or state are returned alongside them.
var (
	// ErrArityMismatch indicates the argument count doesn't match the
	// function signature.
	ErrArityMismatch = errors.New("weiroll: argument count does not match function signature")

	// ErrStaticValueConflict indicates an ether value was combined with a
	// STATICCALL or DELEGATECALL dispatch.
	ErrStaticValueConflict = errors.New("weiroll: cannot send value with a staticcall or delegatecall")

	// ErrScopeViolation indicates a return value was referenced outside the
	// scope that produced it (e.g. a read-only subplan's result used in the
	// parent planner).
	ErrScopeViolation = errors.New("weiroll: return value referenced outside its producing scope")

	// ErrForwardReference indicates a return value was referenced before its
	// producing command is recorded.
	ErrForwardReference = errors.New("weiroll: return value referenced before its producing command")

	// ErrInvalidSubplan indicates the wrapping call doesn't take exactly one
	// planner argument and one state argument, or returns something other
	// than bytes[] or nothing.
	ErrInvalidSubplan = errors.New("weiroll: subplan call must take one planner and one state argument")

	// ErrSlotOverflow indicates the plan needs more state slots or commands
	// than the VM can address.
	ErrSlotOverflow = errors.New("weiroll: state slot limit exceeded (max index 253)")

	// ErrCyclicPlanner indicates a planner references itself through subplans.
	ErrCyclicPlanner = errors.New("weiroll: cyclic planner reference detected")

	// ErrAlreadyPlanned indicates the planner was mutated or planned again
	// after Plan was called. Planners are single use.
	ErrAlreadyPlanned = errors.New("weiroll: planner is already planned")

	// ErrTooManyArguments indicates a single command has more arguments than
	// the extended encoding can carry.
	ErrTooManyArguments = errors.New("weiroll: too many arguments for a single command")

	// ErrInvalidCallType indicates an operation isn't valid for the call's
	// dispatch type.
	ErrInvalidCallType = errors.New("weiroll: invalid operation for this call type")

	// ErrNoReturnValue indicates the function has no return value to capture.
	ErrNoReturnValue = errors.New("weiroll: function has no return value")
)

// MethodNotFoundError indicates the contract doesn't have the requested method.
type MethodNotFoundError struct {
	Contract common.Address
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("weiroll: method %q not found in contract %s", e.Method, e.Contract.Hex())
}

// ArgumentError indicates an issue with a function argument.
type ArgumentError struct {
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("weiroll: argument %d for method %q: %v", e.Index, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TypeMismatchError indicates a value's type doesn't match the expected
// parameter type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("weiroll: type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// PlanError wraps an error detected while planning, identifying the
// offending command.
type PlanError struct {
	CommandIndex int
	Method       string
	Err          error
}

func (e *PlanError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("weiroll: command %d (%s): %v", e.CommandIndex, e.Method, e.Err)
	}
	return fmt.Sprintf("weiroll: command %d: %v", e.CommandIndex, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// EncodingError indicates a failure while ABI-encoding a value.
type EncodingError struct {
	Value any
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("weiroll: encoding error for value %T: %v", e.Value, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
