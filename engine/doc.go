// Package engine provides the low-level wazero integration used by the
// native delegate.
//
// # Architecture
//
// The engine package provides three main types:
//
//	WazeroEngine   - Owns a wazero runtime and the host modules bound to it
//	WazeroModule   - A compiled core module, can create instances
//	WazeroInstance - A running instance with cached exports and memory
//
// # Instantiation Flow
//
//  1. WazeroEngine.RegisterHostModule() binds Go functions that guests import
//  2. WazeroEngine.LoadModule() compiles the binary
//  3. WazeroModule.Instantiate() links imports and creates a WazeroInstance
//  4. WazeroInstance.Call() invokes exports with raw core values
//
// # Core Values
//
// Call takes and returns raw uint64 stack values as wazero does. An i32 is
// carried in the low 32 bits; use api.EncodeI32 and api.DecodeI32 to convert
// signed values.
//
// # Traps
//
// A trap (unreachable, out-of-bounds access, integer divide by zero) aborts
// the call and is returned as an error wrapping wazero's. The instance stays
// usable afterwards. With Config.CloseOnContextDone set, cancelling the call
// context interrupts a running guest.
//
// # Thread Safety
//
// WazeroEngine and WazeroModule are safe for concurrent use. WazeroInstance
// is NOT: callers serialize access to a single instance.
package engine
