// Package native defines the delegate that performs the binding adapter's
// "native" operations and provides two implementations of it.
//
//	GoDelegate   - in-process Go arithmetic
//	WasmDelegate - a WebAssembly core module executed by wazero
//
// Both implement Delegate with identical results for identical inputs; the
// adapter can swap one for the other without changing its public contract.
//
// # Native Module ABI
//
// The module assembled by Assemble, or any module supplied through
// WasmConfig.ModuleBytes, must export:
//
//	add:           func(a: s32, b: s32) -> s32
//	accumulate:    func(count: s32, n: s32) -> s32
//	sync:          func(x: s32) -> s32
//	compute:       func(ms: u32) -> u32
//	modify-arr:    func(seq: list<s32>)          ;; in place, each element + 100
//	emit-messages: func(count: u32)
//	memory
//
// and may import:
//
//	host.emit:     func(value: string, id: s32)
//
// WIT types are flattened to core types by the canonical ABI rules: integers
// up to 32 bits become i32, list and string become (ptr, len) as i32×2.
// Export names use snake_case in the binary (modify_arr, emit_messages).
//
// # Thread Safety
//
// GoDelegate is stateless and safe for concurrent use. WasmDelegate
// serializes calls into its single instance.
package native
