package weiroll

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// subplanTestABI holds wrapper shapes that are invalid for AddSubplan.
func subplanTestABI() abi.ABI {
	const abiJSON = `[
		{
			"name": "execNoState",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "commands", "type": "bytes32[]"}
			],
			"outputs": []
		},
		{
			"name": "execNoProgram",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "state", "type": "bytes[]"}
			],
			"outputs": []
		},
		{
			"name": "execTwoOut",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "commands", "type": "bytes32[]"},
				{"name": "state", "type": "bytes[]"}
			],
			"outputs": [
				{"name": "", "type": "bytes[]"},
				{"name": "", "type": "bytes[]"}
			]
		}
	]`
	return MustParseABI(abiJSON)
}

func TestAddSubplanReadOnly(t *testing.T) {
	vm := NewContract(vmAddr, vmTestABI())
	math := NewLibrary(mathAddr, mathTestABI())

	sub := New()
	sub.MustAdd(math.MustInvoke("add", big.NewInt(1), big.NewInt(2)))

	p := New()
	if err := p.AddSubplan(vm.MustInvoke("exec", sub, p.State())); err != nil {
		t.Fatalf("AddSubplan failed: %v", err)
	}

	plan, err := p.Plan()
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	t.Run("only the wrapping command is emitted", func(t *testing.T) {
		if len(plan.Commands) != 1 {
			t.Fatalf("Expected 1 command, got %d", len(plan.Commands))
		}
	})

	t.Run("wrapper args reference the program and state", func(t *testing.T) {
		_, _, args, ret, _, err := DecodeCommand(plan.Commands[0])
		if err != nil {
			t.Fatalf("DecodeCommand failed: %v", err)
		}
		// Nested slots first: two literals, one output placeholder, then
		// the program blob in slot 3, marked dynamic.
		if !bytes.Equal(args, []uint8{3 | DynamicSlotFlag, StateSlotMarker}) {
			t.Errorf("Expected args [0x83 0xfe], got %v", args)
		}
		if ret != NoReturnSlot {
			t.Errorf("Read-only wrapper should discard output, got %#x", ret)
		}
	})

	t.Run("program blob holds the nested command", func(t *testing.T) {
		if len(plan.State) != 4 {
			t.Fatalf("Expected 4 state slots, got %d", len(plan.State))
		}
		blob := plan.State[3]
		if len(blob) != 64 {
			t.Fatalf("Expected length word plus one command, got %d bytes", len(blob))
		}
		if count := new(big.Int).SetBytes(blob[:32]); count.Int64() != 1 {
			t.Errorf("Expected 1 nested command, got %d", count.Int64())
		}
		sel, _, args, ret, addr, err := DecodeCommand(blob[32:64])
		if err != nil {
			t.Fatalf("DecodeCommand on nested word failed: %v", err)
		}
		method := mathTestABI().Methods["add"]
		if !bytes.Equal(sel[:], method.ID[:4]) {
			t.Error("Nested selector mismatch")
		}
		if !bytes.Equal(args, []uint8{0, 1}) {
			t.Errorf("Nested args: expected [0 1], got %v", args)
		}
		if ret != 2 {
			t.Errorf("Nested output: expected slot 2, got %d", ret)
		}
		if addr != mathAddr {
			t.Error("Nested address mismatch")
		}
	})
}

func TestAddSubplanScopeRules(t *testing.T) {
	vm := NewContract(vmAddr, vmTestABI())
	math := NewLibrary(mathAddr, mathTestABI())
	events := NewLibrary(eventsAddr, eventsTestABI())

	t.Run("read-only result rejected in parent at add time", func(t *testing.T) {
		sub := New()
		inner := sub.MustAdd(math.MustInvoke("add", big.NewInt(1), big.NewInt(2)))

		p := New()
		if err := p.AddSubplan(vm.MustInvoke("exec", sub, p.State())); err != nil {
			t.Fatalf("AddSubplan failed: %v", err)
		}

		_, err := p.Add(events.MustInvoke("logUint", inner))
		if !errors.Is(err, ErrScopeViolation) {
			t.Errorf("Expected ErrScopeViolation, got %v", err)
		}
	})

	t.Run("use before the subplan is a forward reference", func(t *testing.T) {
		sub := New()
		inner := sub.MustAdd(math.MustInvoke("add", big.NewInt(1), big.NewInt(2)))

		p := New()
		// Nesting is not established yet, so the add itself succeeds.
		if _, err := p.Add(events.MustInvoke("logUint", inner)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if err := p.AddSubplan(vm.MustInvoke("execute", sub, p.State())); err != nil {
			t.Fatalf("AddSubplan failed: %v", err)
		}

		_, err := p.Plan()
		if !errors.Is(err, ErrForwardReference) {
			t.Errorf("Expected ErrForwardReference, got %v", err)
		}
	})

	t.Run("state-returning result stays visible", func(t *testing.T) {
		sub := New()
		inner := sub.MustAdd(math.MustInvoke("add", big.NewInt(1), big.NewInt(2)))

		p := New()
		if err := p.AddSubplan(vm.MustInvoke("execute", sub, p.State())); err != nil {
			t.Fatalf("AddSubplan failed: %v", err)
		}
		p.MustAdd(events.MustInvoke("logUint", inner))

		plan, err := p.Plan()
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if len(plan.Commands) != 2 {
			t.Fatalf("Expected 2 commands, got %d", len(plan.Commands))
		}

		_, _, _, ret, _, _ := DecodeCommand(plan.Commands[0])
		if ret != StateSlotMarker {
			t.Errorf("State-returning wrapper should write the state marker, got %#x", ret)
		}

		_, _, args, _, _, _ := DecodeCommand(plan.Commands[1])
		if !bytes.Equal(args, []uint8{2}) {
			t.Errorf("Expected nested output slot 2 consumed, got %v", args)
		}
	})

	t.Run("values flow up through nested state-returning subplans", func(t *testing.T) {
		inner := New()
		v := inner.MustAdd(math.MustInvoke("add", big.NewInt(1), big.NewInt(2)))

		mid := New()
		if err := mid.AddSubplan(vm.MustInvoke("execute", inner, mid.State())); err != nil {
			t.Fatalf("AddSubplan (mid) failed: %v", err)
		}

		top := New()
		if err := top.AddSubplan(vm.MustInvoke("execute", mid, top.State())); err != nil {
			t.Fatalf("AddSubplan (top) failed: %v", err)
		}
		top.MustAdd(events.MustInvoke("logUint", v))

		plan, err := top.Plan()
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if len(plan.Commands) != 2 {
			t.Fatalf("Expected 2 top-level commands, got %d", len(plan.Commands))
		}
		// Slots: inner literals (0,1), inner output (2), inner blob (3),
		// mid blob (4).
		if len(plan.State) != 5 {
			t.Errorf("Expected 5 state slots, got %d", len(plan.State))
		}
		_, _, args, _, _, _ := DecodeCommand(plan.Commands[1])
		if !bytes.Equal(args, []uint8{2}) {
			t.Errorf("Expected innermost output slot 2 consumed, got %v", args)
		}
	})
}

func TestAddSubplanInvalidSignatures(t *testing.T) {
	vm := NewContract(vmAddr, vmTestABI())
	bad := NewContract(vmAddr, subplanTestABI())
	math := NewLibrary(mathAddr, mathTestABI())

	sub := New()
	sub.MustAdd(math.MustInvoke("add", big.NewInt(1), big.NewInt(2)))

	cases := []struct {
		name string
		call func(p *Planner) *Call
	}{
		{"missing state argument", func(p *Planner) *Call {
			return bad.MustInvoke("execNoState", sub)
		}},
		{"missing planner argument", func(p *Planner) *Call {
			return bad.MustInvoke("execNoProgram", p.State())
		}},
		{"two planner arguments", func(p *Planner) *Call {
			return vm.MustInvoke("execTwo", sub, New(), p.State())
		}},
		{"wrong output type", func(p *Planner) *Call {
			return vm.MustInvoke("execBadReturn", sub, p.State())
		}},
		{"multiple outputs", func(p *Planner) *Call {
			return bad.MustInvoke("execTwoOut", sub, p.State())
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New()
			if err := p.AddSubplan(tc.call(p)); !errors.Is(err, ErrInvalidSubplan) {
				t.Errorf("Expected ErrInvalidSubplan, got %v", err)
			}
		})
	}

	t.Run("subplan value rejected by plain Add", func(t *testing.T) {
		p := New()
		_, err := p.Add(vm.MustInvoke("exec", sub, p.State()))
		if !errors.Is(err, ErrInvalidSubplan) {
			t.Errorf("Expected ErrInvalidSubplan, got %v", err)
		}
	})

	t.Run("add subplan after plan fails", func(t *testing.T) {
		p := New()
		if _, err := p.Plan(); err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		err := p.AddSubplan(vm.MustInvoke("exec", sub, p.State()))
		if !errors.Is(err, ErrAlreadyPlanned) {
			t.Errorf("Expected ErrAlreadyPlanned, got %v", err)
		}
	})
}

func TestAddSubplanCycles(t *testing.T) {
	vm := NewContract(vmAddr, vmTestABI())

	t.Run("direct self reference", func(t *testing.T) {
		p := New()
		err := p.AddSubplan(vm.MustInvoke("execute", p, p.State()))
		if !errors.Is(err, ErrCyclicPlanner) {
			t.Errorf("Expected ErrCyclicPlanner, got %v", err)
		}
	})

	t.Run("indirect cycle through a child", func(t *testing.T) {
		p := New()
		sub := New()
		if err := p.AddSubplan(vm.MustInvoke("execute", sub, p.State())); err != nil {
			t.Fatalf("AddSubplan failed: %v", err)
		}
		err := sub.AddSubplan(vm.MustInvoke("execute", p, sub.State()))
		if !errors.Is(err, ErrCyclicPlanner) {
			t.Errorf("Expected ErrCyclicPlanner, got %v", err)
		}
	})
}
