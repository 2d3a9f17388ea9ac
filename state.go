package weiroll

import (
	"encoding/hex"
)

// stateBuilder owns the value slot array while a plan is being encoded.
// Allocation is strictly append-only: every literal occurrence, captured
// return value, and embedded subplan program gets its own slot in
// first-need order, and no slot is ever reused or shared.
type stateBuilder struct {
	state       [][]byte           // slot data; nil marks a run-time placeholder
	returnSlots map[*Command]uint8 // producing command -> its output slot
	maxSlots    int
}

func newStateBuilder(cfg *planConfig) *stateBuilder {
	return &stateBuilder{
		state:       make([][]byte, 0, 32),
		returnSlots: make(map[*Command]uint8),
		maxSlots:    cfg.maxStateSlots,
	}
}

// allocLiteral appends a literal's encoded data and returns its slot index.
func (sb *stateBuilder) allocLiteral(lit *LiteralValue) (uint8, error) {
	return sb.appendSlot(lit.Data())
}

// allocReturn appends a placeholder slot for a command's captured output.
func (sb *stateBuilder) allocReturn(cmd *Command) (uint8, error) {
	slot, err := sb.appendSlot(nil)
	if err != nil {
		return 0, err
	}
	sb.returnSlots[cmd] = slot
	return slot, nil
}

// allocProgram appends an encoded subplan program blob.
func (sb *stateBuilder) allocProgram(data []byte) (uint8, error) {
	return sb.appendSlot(data)
}

func (sb *stateBuilder) appendSlot(data []byte) (uint8, error) {
	if len(sb.state) >= sb.maxSlots {
		return 0, ErrSlotOverflow
	}
	slot := uint8(len(sb.state))
	sb.state = append(sb.state, data)
	return slot, nil
}

// returnSlot returns the slot holding a command's output, if allocated.
func (sb *stateBuilder) returnSlot(cmd *Command) (uint8, bool) {
	slot, ok := sb.returnSlots[cmd]
	return slot, ok
}

// slotByte renders a slot index as an argument or output byte, applying the
// dynamic marker. A marked index above MaxDynamicSlotIndex would collide
// with the 0xfe/0xff sentinels and is rejected.
func (sb *stateBuilder) slotByte(slot uint8, dynamic bool) (uint8, error) {
	if !dynamic {
		return slot, nil
	}
	if slot > MaxDynamicSlotIndex {
		return 0, ErrSlotOverflow
	}
	return slot | DynamicSlotFlag, nil
}

// finalize returns the completed state array. Placeholder slots awaiting
// run-time values become zero-filled 32-byte words.
func (sb *stateBuilder) finalize() [][]byte {
	result := make([][]byte, len(sb.state))
	for i, data := range sb.state {
		if data == nil {
			result[i] = make([]byte, 32)
		} else {
			result[i] = data
		}
	}
	return result
}

// finalizeAsHex returns the state as 0x-prefixed hex strings, for debugging
// and tests.
func (sb *stateBuilder) finalizeAsHex() []string {
	final := sb.finalize()
	result := make([]string, len(final))
	for i, data := range final {
		result[i] = "0x" + hex.EncodeToString(data)
	}
	return result
}
