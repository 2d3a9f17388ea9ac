package weiroll

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestErrorMessages(t *testing.T) {
	sentinels := []error{
		ErrArityMismatch,
		ErrStaticValueConflict,
		ErrScopeViolation,
		ErrForwardReference,
		ErrInvalidSubplan,
		ErrSlotOverflow,
		ErrCyclicPlanner,
		ErrAlreadyPlanned,
		ErrTooManyArguments,
		ErrInvalidCallType,
		ErrNoReturnValue,
	}
	for _, err := range sentinels {
		if !strings.HasPrefix(err.Error(), "weiroll: ") {
			t.Errorf("Sentinel %q missing package prefix", err.Error())
		}
	}
}

func TestMethodNotFoundError(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	err := &MethodNotFoundError{Contract: addr, Method: "missing"}

	if !strings.Contains(err.Error(), "missing") {
		t.Error("Message should name the method")
	}
	if !strings.Contains(err.Error(), addr.Hex()) {
		t.Error("Message should name the contract")
	}
}

func TestArgumentErrorUnwrap(t *testing.T) {
	err := &ArgumentError{Method: "add", Index: 1, Err: ErrArityMismatch}

	if !errors.Is(err, ErrArityMismatch) {
		t.Error("ArgumentError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "add") || !strings.Contains(err.Error(), "1") {
		t.Errorf("Message should name the method and index: %s", err.Error())
	}
}

func TestPlanErrorUnwrap(t *testing.T) {
	t.Run("with method", func(t *testing.T) {
		err := &PlanError{CommandIndex: 3, Method: "swap", Err: ErrForwardReference}
		if !errors.Is(err, ErrForwardReference) {
			t.Error("PlanError should unwrap to its cause")
		}
		if !strings.Contains(err.Error(), "command 3") || !strings.Contains(err.Error(), "swap") {
			t.Errorf("Message should identify the command: %s", err.Error())
		}
	})

	t.Run("without method", func(t *testing.T) {
		err := &PlanError{CommandIndex: 0, Err: ErrSlotOverflow}
		if !strings.Contains(err.Error(), "command 0") {
			t.Errorf("Message should identify the command: %s", err.Error())
		}
	})

	t.Run("errors.As recovers the wrapper", func(t *testing.T) {
		var wrapped error = &PlanError{CommandIndex: 7, Method: "f", Err: ErrScopeViolation}
		var planErr *PlanError
		if !errors.As(wrapped, &planErr) {
			t.Fatal("Expected errors.As to match")
		}
		if planErr.CommandIndex != 7 {
			t.Errorf("Expected command index 7, got %d", planErr.CommandIndex)
		}
	})
}

func TestEncodingErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &EncodingError{Value: "v", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("EncodingError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "string") {
		t.Errorf("Message should name the value type: %s", err.Error())
	}
}

func TestTypeMismatchErrorMessage(t *testing.T) {
	err := &TypeMismatchError{Expected: "uint256", Got: "string"}
	if !strings.Contains(err.Error(), "uint256") || !strings.Contains(err.Error(), "string") {
		t.Errorf("Message should name both types: %s", err.Error())
	}
}
