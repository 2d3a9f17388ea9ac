package weiroll

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Call represents one planned invocation: a target method with arguments
// bound, a dispatch mode, an optional ether value, and an output capture
// mode. Call is immutable; modifier methods return new instances.
type Call struct {
	contract  *Contract
	method    abi.Method
	args      []Value
	flags     CallFlags
	value     *big.Int // ether value for CALL_WITH_VALUE
	rawReturn bool     // capture the return data as a raw bytes blob
	discard   bool     // drop the return value without storing it
}

// newCall binds arguments positionally to the method's declared inputs.
func newCall(contract *Contract, method abi.Method, rawArgs []any) (*Call, error) {
	if len(rawArgs) != len(method.Inputs) {
		return nil, &ArgumentError{
			Method: method.Name,
			Index:  len(rawArgs),
			Err:    ErrArityMismatch,
		}
	}

	args := make([]Value, len(rawArgs))

	for i, arg := range rawArgs {
		val, err := toValue(arg, method.Inputs[i].Type)
		if err != nil {
			return nil, &ArgumentError{
				Method: method.Name,
				Index:  i,
				Err:    err,
			}
		}
		args[i] = val
	}

	return &Call{
		contract: contract,
		method:   method,
		args:     args,
		flags:    contract.defaultFlags(),
	}, nil
}

// Contract returns the target contract for this call.
func (c *Call) Contract() *Contract {
	return c.contract
}

// Method returns the ABI method for this call.
func (c *Call) Method() abi.Method {
	return c.method
}

// Args returns the bound arguments for this call.
func (c *Call) Args() []Value {
	return c.args
}

// Flags returns the call flags.
func (c *Call) Flags() CallFlags {
	return c.flags
}

// EthValue returns the ether value for this call (nil if none).
func (c *Call) EthValue() *big.Int {
	return c.value
}

// HasReturnValue returns true if the call captures a return value: either a
// single declared output or a raw-bytes capture, and not discarded.
func (c *Call) HasReturnValue() bool {
	if c.discard {
		return false
	}
	return c.rawReturn || len(c.method.Outputs) == 1
}

// ReturnType returns the ABI type the captured value will have, or nil if
// nothing is captured. Raw-bytes captures are typed bytes.
func (c *Call) ReturnType() *abi.Type {
	if c.discard {
		return nil
	}
	if c.rawReturn {
		t, _ := abi.NewType("bytes", "", nil)
		return &t
	}
	if len(c.method.Outputs) != 1 {
		return nil
	}
	return &c.method.Outputs[0].Type
}

// Selector returns the 4-byte function selector.
func (c *Call) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], c.method.ID[:4])
	return sel
}

// WithValue attaches ether to the call, converting it to CALL_WITH_VALUE.
// The value is encoded as an implicit extra argument consumed ahead of the
// declared parameters. Fails with ErrStaticValueConflict for STATICCALL or
// DELEGATECALL dispatch.
func (c *Call) WithValue(amount *big.Int) (*Call, error) {
	switch c.flags.CallType() {
	case FlagCall, FlagCallWithValue:
	default:
		return nil, ErrStaticValueConflict
	}
	clone := c.clone()
	clone.value = new(big.Int).Set(amount)
	clone.flags = (clone.flags &^ FlagCallTypeMask) | FlagCallWithValue
	return clone, nil
}

// MustWithValue is like WithValue but panics on error.
func (c *Call) MustWithValue(amount *big.Int) *Call {
	call, err := c.WithValue(amount)
	if err != nil {
		panic(err)
	}
	return call
}

// Static forces the call to use STATICCALL. Only plain CALL operations can
// be made static; a call carrying ether fails with ErrStaticValueConflict.
func (c *Call) Static() (*Call, error) {
	switch c.flags.CallType() {
	case FlagCall:
	case FlagCallWithValue:
		return nil, ErrStaticValueConflict
	default:
		return nil, ErrInvalidCallType
	}
	clone := c.clone()
	clone.flags = (clone.flags &^ FlagCallTypeMask) | FlagStaticCall
	return clone, nil
}

// MustStatic is like Static but panics on error.
func (c *Call) MustStatic() *Call {
	call, err := c.Static()
	if err != nil {
		panic(err)
	}
	return call
}

// RawReturn captures the call's full return data as a raw bytes blob.
// This permits capturing the output of functions with multiple return
// values, which the VM cannot otherwise store in a single slot.
func (c *Call) RawReturn() *Call {
	clone := c.clone()
	clone.rawReturn = true
	clone.discard = false
	clone.flags |= FlagTupleReturn
	return clone
}

// Discard drops the call's return value instead of storing it in a slot.
func (c *Call) Discard() *Call {
	clone := c.clone()
	clone.discard = true
	clone.rawReturn = false
	clone.flags &^= FlagTupleReturn
	return clone
}

// clone creates a copy of the Call with its own args slice.
func (c *Call) clone() *Call {
	clone := *c
	clone.args = make([]Value, len(c.args))
	copy(clone.args, c.args)
	return &clone
}

// computeFlags computes the final flag byte for encoding.
func (c *Call) computeFlags(isExtended bool) CallFlags {
	flags := c.flags
	if isExtended {
		flags |= FlagExtendedCommand
	}
	return flags
}
