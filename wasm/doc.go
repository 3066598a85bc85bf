// Package wasm provides a minimal WebAssembly binary encoder.
//
// It covers the subset of the WebAssembly 1.0 core format needed to
// assemble small native modules in Go: function types, function imports,
// functions, a single linear memory, exports, code bodies and active data
// segments. There is no decoder; modules are validated structurally with
// Validate and semantically by the runtime that compiles them.
//
// # Building a module
//
//	m := &wasm.Module{
//	    Types: []wasm.FuncType{{
//	        Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
//	        Results: []wasm.ValType{wasm.ValI32},
//	    }},
//	    Funcs:   []uint32{0},
//	    Exports: []wasm.Export{{Name: "add", Kind: wasm.KindFunc, Idx: 0}},
//	}
//
//	body := wasm.NewCodeBuilder().
//	    LocalGet(0).
//	    LocalGet(1).
//	    Op(wasm.OpI32Add).
//	    End()
//	m.Code = append(m.Code, body.Body(nil))
//
//	if err := m.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	bin := m.Encode()
//
// # Index spaces
//
// Function indices count imported functions first, then functions declared
// in Funcs. Export.Idx and CodeBuilder.Call use that combined index space.
package wasm
