package weiroll

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Planner accumulates commands in insertion order and compiles them into
// the VM's binary command stream plus the initial state array.
//
// A Planner advances monotonically from building to planned: once Plan has
// been called, every further operation fails with ErrAlreadyPlanned. A
// single Planner must not be mutated concurrently; independent programs
// should each use their own instance.
type Planner struct {
	commands []*Command
	parent   *Planner // enclosing planner, set when added as a subplan
	readOnly bool     // true when added as a subplan whose wrapper returns nothing
	planned  bool
}

// New creates a new Planner.
func New() *Planner {
	return &Planner{
		commands: make([]*Command, 0, 16),
	}
}

// Add appends a function call to the plan. Calls execute in the order they
// are added.
//
// If the call captures a return value, Add returns a ReturnValue that later
// calls may consume as an argument. It returns nil for calls whose output
// is discarded: functions with no outputs, functions with multiple outputs
// not wrapped by RawReturn, and calls marked with Discard.
//
// Add fails with ErrScopeViolation when an argument references the result
// of a read-only subplan nested below this planner, and with
// ErrAlreadyPlanned after Plan has been called.
func (p *Planner) Add(call *Call) (*ReturnValue, error) {
	if p.planned {
		return nil, ErrAlreadyPlanned
	}

	for i, arg := range call.Args() {
		switch v := arg.(type) {
		case *SubplanValue:
			return nil, &ArgumentError{Method: call.method.Name, Index: i, Err: ErrInvalidSubplan}
		case *ReturnValue:
			if err := p.checkRefScope(v); err != nil {
				return nil, &ArgumentError{Method: call.method.Name, Index: i, Err: err}
			}
		}
	}

	cmd := &Command{
		call:    call,
		cmdType: CommandTypeCall,
		planner: p,
	}
	p.commands = append(p.commands, cmd)

	if !call.HasReturnValue() {
		return nil, nil
	}

	return &ReturnValue{
		command: cmd,
		abiType: *call.ReturnType(),
	}, nil
}

// MustAdd is like Add but panics on error.
func (p *Planner) MustAdd(call *Call) *ReturnValue {
	rv, err := p.Add(call)
	if err != nil {
		panic(err)
	}
	return rv
}

// AddSubplan adds a nested planner execution, used for callbacks such as
// flash loans. The wrapping call must take exactly one planner argument
// (Planner.Subplan, or the *Planner itself) and exactly one state argument
// (Planner.State), and must return either nothing or a single bytes[].
//
// If the wrapper returns bytes[], the subplan is state-returning: it
// replaces the parent's state at run time, and values produced inside it
// stay usable in later commands of the enclosing scopes. If it returns
// nothing, the subplan is read-only and its values never leave that scope.
func (p *Planner) AddSubplan(call *Call) error {
	if p.planned {
		return ErrAlreadyPlanned
	}

	var sub *Planner
	hasState := false

	for i, arg := range call.Args() {
		switch v := arg.(type) {
		case *SubplanValue:
			if sub != nil {
				return ErrInvalidSubplan
			}
			sub = v.subplanner
		case *StateValue:
			if hasState {
				return ErrInvalidSubplan
			}
			hasState = true
		case *ReturnValue:
			if err := p.checkRefScope(v); err != nil {
				return &ArgumentError{Method: call.method.Name, Index: i, Err: err}
			}
		}
	}

	if sub == nil || !hasState {
		return ErrInvalidSubplan
	}

	switch outputs := call.method.Outputs; len(outputs) {
	case 0:
		sub.readOnly = true
	case 1:
		if outputs[0].Type.String() != "bytes[]" {
			return ErrInvalidSubplan
		}
	default:
		return ErrInvalidSubplan
	}

	if err := p.checkCycle(sub); err != nil {
		return err
	}
	sub.parent = p

	p.commands = append(p.commands, &Command{
		call:    call,
		cmdType: CommandTypeSubplan,
		planner: p,
	})
	return nil
}

// ReplaceState adds a call whose bytes[] return value replaces the whole
// planner state at run time. The planner does not track what such a call
// does to the state contents, only its slot numbering.
func (p *Planner) ReplaceState(call *Call) error {
	if p.planned {
		return ErrAlreadyPlanned
	}

	if len(call.method.Outputs) == 0 {
		return ErrNoReturnValue
	}
	if len(call.method.Outputs) != 1 || call.method.Outputs[0].Type.String() != "bytes[]" {
		got := "multiple values"
		if len(call.method.Outputs) == 1 {
			got = call.method.Outputs[0].Type.String()
		}
		return &TypeMismatchError{Expected: "bytes[]", Got: got}
	}

	p.commands = append(p.commands, &Command{
		call:    call,
		cmdType: CommandTypeRawCall,
		planner: p,
	})
	return nil
}

// State returns the placeholder for this planner's run-time state array,
// for use as the state argument of subplan calls.
func (p *Planner) State() *StateValue {
	return &StateValue{planner: p}
}

// Subplan returns this planner wrapped for use as the program argument of
// an enclosing subplan call.
func (p *Planner) Subplan() *SubplanValue {
	return &SubplanValue{subplanner: p}
}

// Len returns the number of commands recorded in this planner.
func (p *Planner) Len() int {
	return len(p.commands)
}

// CommandAt returns the command at the given index, or nil if out of range.
func (p *Planner) CommandAt(i int) *Command {
	if i < 0 || i >= len(p.commands) {
		return nil
	}
	return p.commands[i]
}

// Plan compiles the recorded commands into executable form: the encoded
// command words and the initial state array. Plan is terminal; the planner
// cannot be reused afterwards, and a failed Plan returns no partial output.
func (p *Planner) Plan(opts ...PlanOption) (*CompiledPlan, error) {
	if p.planned {
		return nil, ErrAlreadyPlanned
	}
	p.planned = true

	cfg := defaultPlanConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	seen := make(map[*Command]bool)
	sealed := make(map[*Command]bool)
	planners := make(map[*Planner]bool)
	if err := p.preplan(seen, sealed, planners); err != nil {
		return nil, err
	}

	sb := newStateBuilder(cfg)
	encoder := NewCommandEncoder()

	total := 0
	commands, err := p.buildCommands(sb, encoder, cfg, &total)
	if err != nil {
		return nil, err
	}

	return &CompiledPlan{
		Commands: commands,
		State:    sb.finalize(),
	}, nil
}

// preplan walks the command tree in execution order, validating that every
// consumed return value has a producer ordered strictly before its use and
// within a visible scope.
//
// seen holds the producers visible at the current point. A read-only
// subplan walks a private copy, and every command it contributes is sealed
// afterwards: referencing a sealed command is a scope violation, while
// referencing a command that is neither seen nor sealed is a forward
// reference.
func (p *Planner) preplan(seen, sealed map[*Command]bool, planners map[*Planner]bool) error {
	if planners[p] {
		return ErrCyclicPlanner
	}
	planners[p] = true

	for i, cmd := range p.commands {
		for _, arg := range cmd.call.Args() {
			switch v := arg.(type) {
			case *ReturnValue:
				if seen[v.command] {
					continue
				}
				err := ErrForwardReference
				if sealed[v.command] {
					err = ErrScopeViolation
				}
				return &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: err}

			case *SubplanValue:
				if cmd.cmdType != CommandTypeSubplan {
					return &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: ErrInvalidSubplan}
				}
				child := v.subplanner
				if child.readOnly {
					childSeen := make(map[*Command]bool, len(seen))
					for c := range seen {
						childSeen[c] = true
					}
					if err := child.preplan(childSeen, sealed, planners); err != nil {
						return err
					}
					for c := range childSeen {
						if !seen[c] {
							sealed[c] = true
						}
					}
				} else {
					if err := child.preplan(seen, sealed, planners); err != nil {
						return err
					}
				}
			}
		}
		seen[cmd] = true
	}

	return nil
}

// buildCommands encodes this planner's commands in insertion order,
// allocating state slots as values are first needed. Subplan commands
// recurse first, so a nested program's slots and encoded blob precede the
// wrapping command's own argument slots.
func (p *Planner) buildCommands(sb *stateBuilder, encoder *CommandEncoder, cfg *planConfig, total *int) ([][]byte, error) {
	encoded := make([][]byte, 0, len(p.commands))

	for i, cmd := range p.commands {
		*total++
		if *total > cfg.maxCommands {
			return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: ErrSlotOverflow}
		}

		programSlot := uint8(0)
		hasProgram := false
		if cmd.cmdType == CommandTypeSubplan {
			child := subplannerOf(cmd.call)
			if child == nil {
				return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: ErrInvalidSubplan}
			}
			subCommands, err := child.buildCommands(sb, encoder, cfg, total)
			if err != nil {
				return nil, err
			}
			blob, err := encodeProgram(subCommands)
			if err != nil {
				return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: err}
			}
			programSlot, err = sb.allocProgram(blob)
			if err != nil {
				return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: err}
			}
			hasProgram = true
		}

		argSlots, err := p.buildArgSlots(cmd, sb, programSlot, hasProgram)
		if err != nil {
			return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: err}
		}

		returnSlot, err := p.buildReturnSlot(cmd, sb)
		if err != nil {
			return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: err}
		}

		flags := cmd.call.computeFlags(len(argSlots) > MaxStandardArgs)

		word, err := encoder.EncodeCommand(
			cmd.call.Selector(),
			flags,
			argSlots,
			returnSlot,
			cmd.call.contract.Address(),
		)
		if err != nil {
			return nil, &PlanError{CommandIndex: i, Method: cmd.call.method.Name, Err: err}
		}
		encoded = append(encoded, word)
	}

	return encoded, nil
}

// buildArgSlots allocates and resolves the argument index list for one
// command. The ether value, when present, is an implicit first argument.
func (p *Planner) buildArgSlots(cmd *Command, sb *stateBuilder, programSlot uint8, hasProgram bool) ([]uint8, error) {
	args := cmd.call.Args()
	inargs := make([]Value, 0, len(args)+1)

	if cmd.call.flags.CallType() == FlagCallWithValue {
		if cmd.call.value == nil {
			return nil, ErrInvalidCallType
		}
		lit, err := NewLiteralFromType("uint256", cmd.call.value)
		if err != nil {
			return nil, err
		}
		inargs = append(inargs, lit)
	}
	inargs = append(inargs, args...)

	slots := make([]uint8, 0, len(inargs))
	for _, arg := range inargs {
		switch v := arg.(type) {
		case *LiteralValue:
			slot, err := sb.allocLiteral(v)
			if err != nil {
				return nil, err
			}
			b, err := sb.slotByte(slot, v.IsDynamic())
			if err != nil {
				return nil, err
			}
			slots = append(slots, b)

		case *ReturnValue:
			slot, ok := sb.returnSlot(v.command)
			if !ok {
				return nil, ErrForwardReference
			}
			b, err := sb.slotByte(slot, v.IsDynamic())
			if err != nil {
				return nil, err
			}
			slots = append(slots, b)

		case *StateValue:
			slots = append(slots, StateSlotMarker)

		case *SubplanValue:
			if !hasProgram {
				return nil, ErrInvalidSubplan
			}
			b, err := sb.slotByte(programSlot, true)
			if err != nil {
				return nil, err
			}
			slots = append(slots, b)

		default:
			return nil, &EncodingError{Value: arg, Err: ErrInvalidCallType}
		}
	}

	return slots, nil
}

// buildReturnSlot picks the output byte for a command: 0xff for discarded
// outputs, 0xfe for state replacement, otherwise a freshly allocated slot.
func (p *Planner) buildReturnSlot(cmd *Command, sb *stateBuilder) (uint8, error) {
	switch cmd.cmdType {
	case CommandTypeRawCall:
		return StateSlotMarker, nil
	case CommandTypeSubplan:
		if len(cmd.call.method.Outputs) == 1 {
			return StateSlotMarker, nil
		}
		return NoReturnSlot, nil
	}

	if !cmd.call.HasReturnValue() {
		return NoReturnSlot, nil
	}

	slot, err := sb.allocReturn(cmd)
	if err != nil {
		return 0, err
	}
	return sb.slotByte(slot, isDynamicType(*cmd.call.ReturnType()))
}

// checkRefScope rejects, at Add time, references that are already known to
// be confined to a read-only subplan nested below this planner. References
// whose nesting is not yet established are validated later, at Plan.
func (p *Planner) checkRefScope(rv *ReturnValue) error {
	owner := rv.command.planner
	if owner == nil || owner == p {
		return nil
	}
	sealed := false
	for q := owner; q != nil; q = q.parent {
		if q == p {
			if sealed {
				return ErrScopeViolation
			}
			return nil
		}
		if q.readOnly {
			sealed = true
		}
	}
	return nil
}

// checkCycle rejects subplans that would make a planner contain itself.
func (p *Planner) checkCycle(sub *Planner) error {
	for q := p; q != nil; q = q.parent {
		if q == sub {
			return ErrCyclicPlanner
		}
	}
	return nil
}

// subplannerOf returns the nested planner of a subplan call, or nil.
func subplannerOf(call *Call) *Planner {
	for _, arg := range call.Args() {
		if v, ok := arg.(*SubplanValue); ok {
			return v.subplanner
		}
	}
	return nil
}

// encodeProgram packs a command sequence as the tail of a bytes32[] ABI
// encoding (length word followed by the command words), the form the VM
// expects an embedded program literal to take in a state slot.
func encodeProgram(commands [][]byte) ([]byte, error) {
	var words [][32]byte
	for _, cmd := range commands {
		for off := 0; off+CommandSize <= len(cmd); off += CommandSize {
			var w [32]byte
			copy(w[:], cmd[off:off+CommandSize])
			words = append(words, w)
		}
	}

	typ, err := abi.NewType("bytes32[]", "", nil)
	if err != nil {
		return nil, &EncodingError{Value: commands, Err: err}
	}
	data, err := abi.Arguments{{Type: typ}}.Pack(words)
	if err != nil {
		return nil, &EncodingError{Value: commands, Err: err}
	}
	// Strip the offset word; state slots hold the length-prefixed tail.
	return data[32:], nil
}

// CompiledPlan is the output of Plan, ready for VM execution.
type CompiledPlan struct {
	// Commands holds one entry per logical command: 32 bytes for a standard
	// command, 32 plus one or more 32-byte continuation words for an
	// extended command.
	Commands [][]byte

	// State is the initial value slot array. Literal slots are populated;
	// return-value slots are zero-filled placeholders.
	State [][]byte
}

// CommandsAsBytes32 flattens the command stream into 32-byte words for
// submission to the VM contract.
func (cp *CompiledPlan) CommandsAsBytes32() [][32]byte {
	result := make([][32]byte, 0, len(cp.Commands))
	for _, cmd := range cp.Commands {
		for off := 0; off+CommandSize <= len(cmd); off += CommandSize {
			var w [32]byte
			copy(w[:], cmd[off:off+CommandSize])
			result = append(result, w)
		}
	}
	return result
}

// StateAsBytes returns the state array for submission to the VM contract.
func (cp *CompiledPlan) StateAsBytes() [][]byte {
	return cp.State
}

// CommandCount returns the number of logical commands, not counting
// continuation words.
func (cp *CompiledPlan) CommandCount() int {
	return len(cp.Commands)
}
