// Package wasmbinding exposes host-side functions, records and a stateful
// counter class whose arithmetic runs in a native delegate.
//
// The native side is a small WebAssembly core module assembled in Go and
// executed with wazero, so the boundary crossing is real: host values are
// coerced, lowered to i32 arguments or linear memory, and lifted back.
//
// # Architecture Overview
//
//	wasmbinding/         Root package with the Memory interface
//	├── binding/         Host-facing adapter: add, sync, sleep, obj, modifyObj,
//	│                    modifyArr, TestClass, addCb; config, event loop, metrics
//	├── native/          Delegate contract, Go and WASM delegates, module assembler
//	├── engine/          Low-level wazero integration
//	├── wasm/            Core WASM binary encoder
//	└── errors/          Structured error types
//
// # Quick Start
//
//	ctx := context.Background()
//	a, err := binding.New(ctx, binding.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close(ctx)
//
//	sum, _ := a.Add(ctx, 1, 2)          // 3
//	v, _ := a.Sync(ctx, 0)              // 100
//
//	c, _ := a.NewTestClass(1)
//	c.AddCount(100)                     // 101
//	c.AddNativeCount(ctx, 100)          // 201
//
//	d, _ := a.Sleep(ctx, 10)
//	res, _ := d.Await(ctx)              // 20
//
// # Thread Safety
//
// Adapter is safe for concurrent use; calls into the WASM delegate are
// serialized. Counter is NOT thread-safe: it is owned by one caller.
package wasmbinding
