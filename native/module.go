package native

import (
	"sync"

	"github.com/wippyai/wasm-binding/wasm"
)

// Linear memory layout of the assembled module.
const (
	// MessageOffset holds MessageValue, placed by an active data segment.
	MessageOffset = 1024

	// HeapBase is where the host lowers list arguments.
	HeapBase = 4096
)

var (
	assembled     []byte
	assembledOnce sync.Once
)

// Assemble returns the binary of the built-in native module.
// The result is shared; callers must not modify it.
func Assemble() []byte {
	assembledOnce.Do(func() {
		assembled = BuildModule().Encode()
	})
	return assembled
}

// BuildModule constructs the built-in native module.
func BuildModule() *wasm.Module {
	m := &wasm.Module{}

	emitType := m.AddType(HostEmitSignature.CoreType())
	m.Imports = []wasm.Import{{
		Module: HostModule,
		Name:   HostEmit,
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: emitType},
	}}
	const emitFunc = 0

	bodies := map[string]wasm.FuncBody{
		ExportAdd:          addBody(),
		ExportSync:         syncBody(),
		ExportCompute:      computeBody(),
		ExportModifyArr:    modifyArrBody(),
		ExportEmitMessages: emitMessagesBody(emitFunc),
	}

	funcIdx := make(map[string]uint32, len(bodies))
	for _, sig := range ExportSignatures {
		if sig.Name == ExportAccumulate {
			continue
		}
		funcIdx[sig.Name] = uint32(m.NumImportedFuncs() + len(m.Funcs))
		m.Funcs = append(m.Funcs, m.AddType(sig.CoreType()))
		m.Code = append(m.Code, bodies[sig.Name])
	}
	// accumulate is the same function as add
	funcIdx[ExportAccumulate] = funcIdx[ExportAdd]

	for _, sig := range ExportSignatures {
		m.Exports = append(m.Exports, wasm.Export{Name: sig.Name, Kind: wasm.KindFunc, Idx: funcIdx[sig.Name]})
	}

	m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}}
	m.Exports = append(m.Exports, wasm.Export{Name: ExportMemory, Kind: wasm.KindMemory, Idx: 0})
	m.Data = []wasm.DataSegment{{Offset: MessageOffset, Init: []byte(MessageValue)}}

	return m
}

// (a, b) -> a + b
func addBody() wasm.FuncBody {
	return wasm.NewCodeBuilder().
		LocalGet(0).
		LocalGet(1).
		Op(wasm.OpI32Add).
		End().
		Body(nil)
}

// x -> x + SyncOffset
func syncBody() wasm.FuncBody {
	return wasm.NewCodeBuilder().
		LocalGet(0).
		I32Const(SyncOffset).
		Op(wasm.OpI32Add).
		End().
		Body(nil)
}

// ms -> ms * ComputeFactor
func computeBody() wasm.FuncBody {
	return wasm.NewCodeBuilder().
		LocalGet(0).
		I32Const(ComputeFactor).
		Op(wasm.OpI32Mul).
		End().
		Body(nil)
}

// (ptr, len): adds ArrOffset to len i32 values starting at ptr.
// Local 2 holds the end address.
func modifyArrBody() wasm.FuncBody {
	const ptr, length, end = 0, 1, 2
	return wasm.NewCodeBuilder().
		LocalGet(length).I32Const(2).Op(wasm.OpI32Shl).
		LocalGet(ptr).Op(wasm.OpI32Add).
		LocalSet(end).
		Block().
		Loop().
		LocalGet(ptr).LocalGet(end).Op(wasm.OpI32GeU).BrIf(1).
		LocalGet(ptr).
		LocalGet(ptr).I32Load(0).I32Const(ArrOffset).Op(wasm.OpI32Add).
		I32Store(0).
		LocalGet(ptr).I32Const(4).Op(wasm.OpI32Add).LocalSet(ptr).
		Br(0).
		End().
		End().
		End().
		Body([]wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}})
}

// count: calls host emit(MessageOffset, len(MessageValue), MessageID) count times.
// Local 1 is the loop counter.
func emitMessagesBody(emitFunc uint32) wasm.FuncBody {
	const count, i = 0, 1
	return wasm.NewCodeBuilder().
		Block().
		Loop().
		LocalGet(i).LocalGet(count).Op(wasm.OpI32GeU).BrIf(1).
		I32Const(MessageOffset).
		I32Const(int32(len(MessageValue))).
		I32Const(MessageID).
		Call(emitFunc).
		LocalGet(i).I32Const(1).Op(wasm.OpI32Add).LocalSet(i).
		Br(0).
		End().
		End().
		End().
		Body([]wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}})
}
