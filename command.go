package weiroll

// CommandType specifies the kind of command operation.
type CommandType uint8

const (
	// CommandTypeCall is a normal function call.
	CommandTypeCall CommandType = iota

	// CommandTypeRawCall is a state replacement call.
	CommandTypeRawCall

	// CommandTypeSubplan is a nested planner execution.
	CommandTypeSubplan
)

// Command is a single recorded operation in a plan. Commands are created by
// the planner in insertion order and never mutated afterwards.
type Command struct {
	call    *Call
	cmdType CommandType
	planner *Planner // the builder this command was recorded in
}

// Call returns the underlying function call.
func (c *Command) Call() *Call {
	return c.call
}

// Type returns the command type.
func (c *Command) Type() CommandType {
	return c.cmdType
}
