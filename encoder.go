package weiroll

import (
	"github.com/ethereum/go-ethereum/common"
)

// Command encoding constants. These values are the binary contract with the
// weiroll VM and must not change.
const (
	// CommandSize is the size of one command word in bytes.
	CommandSize = 32

	// MaxStandardArgs is the maximum argument count for a single-word command.
	MaxStandardArgs = 6

	// ContinuationArgs is the number of argument indices carried by one
	// continuation word of an extended command.
	ContinuationArgs = 32

	// MaxExtendedArgs is the maximum argument count for an extended command.
	MaxExtendedArgs = 254

	// MaxSlotIndex is the highest addressable state slot. Indices 0xfe and
	// 0xff are reserved sentinels.
	MaxSlotIndex = 0xfd

	// MaxStateSlots is the maximum number of state slots available.
	MaxStateSlots = MaxSlotIndex + 1

	// MaxDynamicSlotIndex is the highest slot index that can carry the
	// dynamic-type marker without colliding with the reserved sentinels.
	MaxDynamicSlotIndex = 0x7d

	// DynamicSlotFlag is OR'd with a slot index to mark a dynamic value.
	DynamicSlotFlag = 0x80

	// StateSlotMarker is the pseudo-slot referencing the whole state array.
	StateSlotMarker = 0xFE

	// ExtendedMarker occupies the first in-word argument position of an
	// extended command, whose indices live in the continuation words.
	ExtendedMarker = 0xFE

	// NoReturnSlot indicates the command's output is discarded.
	NoReturnSlot = 0xFF

	// UnusedSlot pads unused argument positions.
	UnusedSlot = 0xFF
)

// CallFlags is the command flag byte.
type CallFlags uint8

const (
	// FlagDelegateCall dispatches via DELEGATECALL (library contracts).
	FlagDelegateCall CallFlags = 0x00

	// FlagCall dispatches via CALL (external contracts).
	FlagCall CallFlags = 0x01

	// FlagStaticCall dispatches via STATICCALL (read-only calls).
	FlagStaticCall CallFlags = 0x02

	// FlagCallWithValue dispatches via CALL with an ether value, consumed as
	// an implicit first argument.
	FlagCallWithValue CallFlags = 0x03

	// FlagCallTypeMask selects the dispatch-mode bits.
	FlagCallTypeMask CallFlags = 0x03

	// FlagExtendedCommand marks a command whose argument indices are carried
	// in continuation words.
	FlagExtendedCommand CallFlags = 0x40

	// FlagTupleReturn wraps the full return data as a raw bytes blob.
	FlagTupleReturn CallFlags = 0x80
)

// CallType returns just the dispatch-mode portion of the flags.
func (f CallFlags) CallType() CallFlags {
	return f & FlagCallTypeMask
}

// IsExtended returns true if this is an extended command.
func (f CallFlags) IsExtended() bool {
	return f&FlagExtendedCommand != 0
}

// HasTupleReturn returns true if return data is wrapped as raw bytes.
func (f CallFlags) HasTupleReturn() bool {
	return f&FlagTupleReturn != 0
}

// CommandEncoder packs commands into VM command words. It is a pure
// transformation: the same inputs always yield the same bytes.
type CommandEncoder struct{}

// NewCommandEncoder creates a new command encoder.
func NewCommandEncoder() *CommandEncoder {
	return &CommandEncoder{}
}

// Encode produces a single 32-byte command word for up to 6 arguments.
// Layout: [selector:4][flags:1][argIdx:6][out:1][address:20].
func (e *CommandEncoder) Encode(
	selector [4]byte,
	flags CallFlags,
	argSlots []uint8,
	returnSlot uint8,
	address common.Address,
) []byte {
	cmd := make([]byte, CommandSize)

	copy(cmd[0:4], selector[:])
	cmd[4] = byte(flags)

	for i := 0; i < MaxStandardArgs; i++ {
		if i < len(argSlots) {
			cmd[5+i] = argSlots[i]
		} else {
			cmd[5+i] = UnusedSlot
		}
	}

	cmd[11] = returnSlot
	copy(cmd[12:32], address.Bytes())

	return cmd
}

// EncodeExtended produces an extended command for more than 6 arguments.
// The head word carries the selector, flags (with the extended bit set),
// the 0xfe extended marker in the first in-word argument position, the
// output index, and the address. All argument indices follow in one or
// more continuation words of up to 32 indices each, the last one padded
// with the 0xff sentinel when not fully populated.
func (e *CommandEncoder) EncodeExtended(
	selector [4]byte,
	flags CallFlags,
	argSlots []uint8,
	returnSlot uint8,
	address common.Address,
) []byte {
	words := (len(argSlots) + ContinuationArgs - 1) / ContinuationArgs
	cmd := make([]byte, CommandSize*(1+words))

	copy(cmd[0:4], selector[:])
	cmd[4] = byte(flags | FlagExtendedCommand)

	cmd[5] = ExtendedMarker
	for i := 1; i < MaxStandardArgs; i++ {
		cmd[5+i] = UnusedSlot
	}

	cmd[11] = returnSlot
	copy(cmd[12:32], address.Bytes())

	for i := CommandSize; i < len(cmd); i++ {
		cmd[i] = UnusedSlot
	}
	copy(cmd[CommandSize:], argSlots)

	return cmd
}

// EncodeCommand encodes a command, choosing the standard or extended format
// by argument count.
func (e *CommandEncoder) EncodeCommand(
	selector [4]byte,
	flags CallFlags,
	argSlots []uint8,
	returnSlot uint8,
	address common.Address,
) ([]byte, error) {
	if len(argSlots) > MaxExtendedArgs {
		return nil, ErrTooManyArguments
	}

	if len(argSlots) <= MaxStandardArgs {
		return e.Encode(selector, flags, argSlots, returnSlot, address), nil
	}

	return e.EncodeExtended(selector, flags, argSlots, returnSlot, address), nil
}

// DecodeCommand decodes an encoded command back into its components. The
// input must be the full byte sequence of one logical command, including
// any continuation words.
func DecodeCommand(cmd []byte) (
	selector [4]byte,
	flags CallFlags,
	argSlots []uint8,
	returnSlot uint8,
	address common.Address,
	err error,
) {
	if len(cmd) < CommandSize || len(cmd)%CommandSize != 0 {
		err = ErrTooManyArguments
		return
	}

	copy(selector[:], cmd[0:4])
	flags = CallFlags(cmd[4])
	returnSlot = cmd[11]
	address = common.BytesToAddress(cmd[12:32])

	if flags.IsExtended() {
		argSlots = make([]uint8, 0, len(cmd)-CommandSize)
		for i := CommandSize; i < len(cmd); i++ {
			if cmd[i] == UnusedSlot {
				break
			}
			argSlots = append(argSlots, cmd[i])
		}
	} else {
		argSlots = make([]uint8, 0, MaxStandardArgs)
		for i := 0; i < MaxStandardArgs; i++ {
			if cmd[5+i] == UnusedSlot {
				break
			}
			argSlots = append(argSlots, cmd[5+i])
		}
	}

	return
}

// SlotIndex represents a state slot index with an optional dynamic marker.
type SlotIndex uint8

// NewSlotIndex creates a slot index, optionally marking it as dynamic.
func NewSlotIndex(index uint8, isDynamic bool) SlotIndex {
	if isDynamic {
		return SlotIndex(index | DynamicSlotFlag)
	}
	return SlotIndex(index)
}

// Index returns the raw slot index without the dynamic marker.
func (s SlotIndex) Index() uint8 {
	return uint8(s) & ^uint8(DynamicSlotFlag)
}

// IsDynamic returns true if this slot holds a dynamic value.
func (s SlotIndex) IsDynamic() bool {
	return uint8(s)&DynamicSlotFlag != 0
}

// Byte returns the slot as a byte for command encoding.
func (s SlotIndex) Byte() uint8 {
	return uint8(s)
}
