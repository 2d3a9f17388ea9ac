package weiroll

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Value represents any value usable as a weiroll command argument.
// This is a sealed interface; only types within this package implement it.
type Value interface {
	// isValue is unexported to seal the interface.
	isValue()

	// IsDynamic returns true if this value has a dynamic ABI type
	// (string, bytes, slices, or composites containing them).
	IsDynamic() bool

	// Type returns the ABI type of this value.
	Type() abi.Type
}

// LiteralValue is a constant known at planning time. Each occurrence of a
// literal argument is assigned its own state slot; literals are never
// deduplicated or shared between commands.
type LiteralValue struct {
	abiType abi.Type
	data    []byte
}

func (v *LiteralValue) isValue() {}

// IsDynamic returns true if the literal has a dynamic ABI type.
func (v *LiteralValue) IsDynamic() bool {
	return isDynamicType(v.abiType)
}

// Type returns the ABI type of this literal.
func (v *LiteralValue) Type() abi.Type {
	return v.abiType
}

// Data returns the ABI-encoded data. For dynamic types the offset word is
// stripped, leaving the length-prefixed tail the VM expects in a state slot.
func (v *LiteralValue) Data() []byte {
	return v.data
}

// ReturnValue references the output of a previously added command. It is
// immutable once created: consuming it never changes it, only records a
// dependency on the producing command.
type ReturnValue struct {
	command *Command
	abiType abi.Type
}

func (v *ReturnValue) isValue() {}

// IsDynamic returns true if the return value has a dynamic ABI type.
// Raw-bytes captures are always dynamic.
func (v *ReturnValue) IsDynamic() bool {
	return isDynamicType(v.abiType)
}

// Type returns the ABI type of this return value.
func (v *ReturnValue) Type() abi.Type {
	return v.abiType
}

// Command returns the command that produces this return value.
func (v *ReturnValue) Command() *Command {
	return v.command
}

// StateValue is a placeholder for the VM's state array at execution time,
// passed as the state argument of a subplan call. It encodes as the 0xfe
// pseudo-slot.
type StateValue struct {
	planner *Planner
}

func (v *StateValue) isValue() {}

// IsDynamic returns true (state is always bytes[]).
func (v *StateValue) IsDynamic() bool {
	return true
}

// Type returns the ABI type for bytes[].
func (v *StateValue) Type() abi.Type {
	t, _ := abi.NewType("bytes[]", "", nil)
	return t
}

// SubplanValue wraps a nested Planner for use as the program argument of a
// subplan call. At plan time it is replaced by the nested planner's encoded
// command words, stored as a bytes32[] literal in a state slot.
type SubplanValue struct {
	subplanner *Planner
}

func (v *SubplanValue) isValue() {}

// IsDynamic returns true (an encoded program is bytes32[]).
func (v *SubplanValue) IsDynamic() bool {
	return true
}

// Type returns the ABI type for bytes32[].
func (v *SubplanValue) Type() abi.Type {
	t, _ := abi.NewType("bytes32[]", "", nil)
	return t
}

// Planner returns the nested planner.
func (v *SubplanValue) Planner() *Planner {
	return v.subplanner
}

// isDynamicType reports whether an ABI type uses variable-length encoding.
func isDynamicType(t abi.Type) bool {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy:
		return true
	case abi.ArrayTy:
		return isDynamicType(*t.Elem)
	case abi.TupleTy:
		for _, elem := range t.TupleElems {
			if isDynamicType(*elem) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// NewLiteral creates a literal value from a Go value.
// Supported inputs include *big.Int and Go integers (for uintN/intN),
// common.Address, common.Hash, [N]byte, []byte, string, and bool.
func NewLiteral(abiType abi.Type, value any) (*LiteralValue, error) {
	args := abi.Arguments{{Type: abiType}}

	data, err := args.Pack(convertToABIType(value, abiType))
	if err != nil {
		return nil, &EncodingError{Value: value, Err: err}
	}

	// Dynamic values are stored in state without the leading offset word.
	if isDynamicType(abiType) && len(data) > 32 {
		data = data[32:]
	}

	return &LiteralValue{
		abiType: abiType,
		data:    data,
	}, nil
}

// MustLiteral is like NewLiteral but panics on error.
// Use only with compile-time constant values.
func MustLiteral(abiType abi.Type, value any) *LiteralValue {
	v, err := NewLiteral(abiType, value)
	if err != nil {
		panic(err)
	}
	return v
}

// NewLiteralFromType creates a literal from an ABI type string such as
// "uint256", "address", "bytes32", "string", or "bool".
func NewLiteralFromType(typeStr string, value any) (*LiteralValue, error) {
	abiType, err := abi.NewType(typeStr, "", nil)
	if err != nil {
		return nil, &EncodingError{Value: value, Err: err}
	}
	return NewLiteral(abiType, value)
}

// MustLiteralFromType is like NewLiteralFromType but panics on error.
func MustLiteralFromType(typeStr string, value any) *LiteralValue {
	v, err := NewLiteralFromType(typeStr, value)
	if err != nil {
		panic(err)
	}
	return v
}

// convertToABIType handles common Go type conversions for ABI encoding.
func convertToABIType(value any, abiType abi.Type) any {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v))
	case int64:
		return big.NewInt(v)
	case uint64:
		return new(big.Int).SetUint64(v)
	case int32:
		return big.NewInt(int64(v))
	case uint32:
		return new(big.Int).SetUint64(uint64(v))
	default:
		return v
	}
}

// Uint256 creates a uint256 literal from a *big.Int.
func Uint256(v *big.Int) *LiteralValue {
	return MustLiteralFromType("uint256", v)
}

// Int256 creates an int256 literal from a *big.Int.
func Int256(v *big.Int) *LiteralValue {
	return MustLiteralFromType("int256", v)
}

// Address creates an address literal from a common.Address.
func Address(v common.Address) *LiteralValue {
	return MustLiteralFromType("address", v)
}

// Bytes32 creates a bytes32 literal from a common.Hash.
func Bytes32(v common.Hash) *LiteralValue {
	return MustLiteralFromType("bytes32", v)
}

// Bool creates a bool literal.
func Bool(v bool) *LiteralValue {
	return MustLiteralFromType("bool", v)
}

// String creates a string literal.
func String(v string) *LiteralValue {
	return MustLiteralFromType("string", v)
}

// Bytes creates a bytes literal.
func Bytes(v []byte) *LiteralValue {
	return MustLiteralFromType("bytes", v)
}

// toValue converts an argument to a Value, creating a LiteralValue when the
// argument is a plain Go value. Passing a *Planner wraps it as a
// SubplanValue for use with AddSubplan.
func toValue(v any, expectedType abi.Type) (Value, error) {
	if val, ok := v.(Value); ok {
		if val.Type().String() != expectedType.String() {
			return nil, &TypeMismatchError{
				Expected: expectedType.String(),
				Got:      val.Type().String(),
			}
		}
		return val, nil
	}
	if sub, ok := v.(*Planner); ok {
		return &SubplanValue{subplanner: sub}, nil
	}
	return NewLiteral(expectedType, v)
}
