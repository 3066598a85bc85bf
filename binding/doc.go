// Package binding is the host-facing side of the native binding.
//
// An Adapter accepts dynamically typed host values, coerces them to the
// native boundary types (s32, u32, list<s32>), runs the native part on a
// native.Delegate and returns plain Go values.
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
//	sum, _ := a.Add(ctx, 1, 2)            // 3
//	v, _ := a.Sync(ctx, 0)                // 100
//	arr, _ := a.ModifyArr(ctx, []int{1})  // [101]
//
//	c, _ := a.NewTestClass(1)
//	c.AddCount(100)                       // 101
//	c.AddNativeCount(ctx, 100)            // 201
//
// # Asynchronous Results
//
// Sleep returns a Deferred immediately. Wait for it with Await, or register
// a continuation with Then. Continuations and AddCb callbacks run on the
// adapter's Loop, one at a time and in order, never on the caller's
// goroutine.
//
//	d, _ := a.Sleep(ctx, 50)
//	d.Then(func(v uint32, err error) {
//	    fmt.Println(v) // 100
//	})
//
// # Configuration
//
// Config comes from DefaultConfig, a YAML file (LoadConfig) and
// WASM_BINDING_* environment variables (Config.ApplyEnv):
//
//	delegate: wasm            # or "go"
//	module_path: ""           # custom native module, wasm delegate only
//	memory_limit_pages: 0
//	callback_repeat: 11
//	queue_size: 64
//
// # Errors
//
// Rejected host values fail before the delegate runs and satisfy
// errors.IsInvalidArgument. Failures on the native side satisfy
// errors.IsDelegateFailure.
package binding
