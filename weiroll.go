// Package weiroll plans and compiles weiroll programs for Ethereum.
//
// Weiroll is a stack-free, slot-addressed virtual machine that executes a
// linear sequence of contract calls inside a single transaction. This
// library is the planner side of that contract: callers describe which
// functions to invoke and with which arguments (literals or results of
// earlier calls), and the planner resolves the data dependencies, assigns
// state slots, and emits the packed binary command words together with the
// initial state array the VM executes against.
//
// # Basic Usage
//
//	mathABI := weiroll.MustParseABI(mathABIJSON)
//	tokenABI := weiroll.MustParseABI(tokenABIJSON)
//
//	mathLib := weiroll.NewLibrary(mathAddr, mathABI)
//	token := weiroll.NewContract(tokenAddr, tokenABI)
//
//	planner := weiroll.New()
//
//	sum, _ := planner.Add(mathLib.MustInvoke("add", big.NewInt(1), big.NewInt(2)))
//	product, _ := planner.Add(mathLib.MustInvoke("multiply", sum, big.NewInt(10)))
//	planner.Add(token.MustInvoke("transfer", recipient, product))
//
//	plan, err := planner.Plan()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	commands := plan.CommandsAsBytes32()
//	state := plan.StateAsBytes()
//
// A planner is single use: once Plan has been called the builder is
// finished, and any further mutation fails with ErrAlreadyPlanned.
//
// # Contract Types
//
// Contracts wrapped with NewLibrary are dispatched via DELEGATECALL and
// execute in the VM's own context; contracts wrapped with NewContract are
// dispatched via CALL (or STATICCALL with the WithStaticCalls option).
// Individual calls can further be modified with Call.WithValue,
// Call.Static, Call.RawReturn, and Call.Discard.
//
// # State Slots
//
// Every literal argument and every captured return value occupies exactly
// one slot in the state array. Slots are assigned in the order values are
// first needed - for each command the ether value (if any), then literal
// arguments in position order, then the output slot - and are never reused
// or shared. Slot indices run from 0 to 253; 0xfe and 0xff are reserved
// sentinels.
//
// # Command Encoding
//
// A command with up to 6 arguments packs into a single 32-byte word.
// Commands with more arguments set the extended flag and are followed by
// continuation words carrying up to 32 argument indices each.
//
// # Subplans
//
// A nested planner can be embedded as a single argument of an enclosing
// call (flash loans, callbacks). If the wrapping call returns a bytes[]
// replacement state, values produced inside the subplan remain usable
// afterwards; if it returns nothing, the subplan is read-only and its
// values never escape that scope.
//
// # References
//
// For the VM this planner targets, see:
//   - https://github.com/weiroll/weiroll (Solidity VM implementation)
//   - https://github.com/weiroll/weiroll.js (JavaScript planner)
package weiroll
