package native

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-binding/errors"
	"github.com/wippyai/wasm-binding/wasm"
)

// Export and import names of the native module.
const (
	ExportAdd          = "add"
	ExportAccumulate   = "accumulate"
	ExportSync         = "sync"
	ExportCompute      = "compute"
	ExportModifyArr    = "modify_arr"
	ExportEmitMessages = "emit_messages"
	ExportMemory       = "memory"

	HostModule = "host"
	HostEmit   = "emit"
)

// Signature declares a native function in WIT terms.
type Signature struct {
	Name    string
	Params  []wit.Type
	Results []wit.Type
}

func listOf(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.List{Type: t}}
}

// ExportSignatures lists the functions every native module must export.
var ExportSignatures = []Signature{
	{Name: ExportAdd, Params: []wit.Type{wit.S32{}, wit.S32{}}, Results: []wit.Type{wit.S32{}}},
	{Name: ExportAccumulate, Params: []wit.Type{wit.S32{}, wit.S32{}}, Results: []wit.Type{wit.S32{}}},
	{Name: ExportSync, Params: []wit.Type{wit.S32{}}, Results: []wit.Type{wit.S32{}}},
	{Name: ExportCompute, Params: []wit.Type{wit.U32{}}, Results: []wit.Type{wit.U32{}}},
	{Name: ExportModifyArr, Params: []wit.Type{listOf(wit.S32{})}},
	{Name: ExportEmitMessages, Params: []wit.Type{wit.U32{}}},
}

// HostEmitSignature is the host function the module calls once per message.
var HostEmitSignature = Signature{
	Name:   HostEmit,
	Params: []wit.Type{wit.String{}, wit.S32{}},
}

// CoreType flattens the signature to a core function type.
func (s Signature) CoreType() wasm.FuncType {
	var ft wasm.FuncType
	for _, p := range s.Params {
		ft.Params = append(ft.Params, flatten(p)...)
	}
	for _, r := range s.Results {
		ft.Results = append(ft.Results, flatten(r)...)
	}
	return ft
}

// String renders the signature in WIT syntax.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(": func(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(witName(p))
	}
	b.WriteByte(')')
	if len(s.Results) == 1 {
		b.WriteString(" -> ")
		b.WriteString(witName(s.Results[0]))
	}
	return b.String()
}

// flatten maps a WIT type to its canonical ABI core representation.
func flatten(t wit.Type) []wasm.ValType {
	switch v := t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return []wasm.ValType{wasm.ValI32}
	case wit.U64, wit.S64:
		return []wasm.ValType{wasm.ValI64}
	case wit.F32:
		return []wasm.ValType{wasm.ValF32}
	case wit.F64:
		return []wasm.ValType{wasm.ValF64}
	case wit.String:
		return []wasm.ValType{wasm.ValI32, wasm.ValI32}
	case *wit.TypeDef:
		if _, ok := v.Kind.(*wit.List); ok {
			return []wasm.ValType{wasm.ValI32, wasm.ValI32}
		}
	}
	return nil
}

func witName(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if l, ok := v.Kind.(*wit.List); ok {
			return "list<" + witName(l.Type) + ">"
		}
	}
	return "unknown"
}

func coreFromAPI(types []api.ValueType) []wasm.ValType {
	out := make([]wasm.ValType, len(types))
	for i, t := range types {
		out[i] = wasm.ValType(t)
	}
	return out
}

type exportedFunctions interface {
	ExportedFunctions() map[string]api.FunctionDefinition
	ExportedMemories() map[string]api.MemoryDefinition
}

// CheckExports verifies that mod exports every function in ExportSignatures
// with the flattened core type, plus a memory.
func CheckExports(mod exportedFunctions) error {
	funcs := mod.ExportedFunctions()

	var missing []string
	for _, sig := range ExportSignatures {
		def, ok := funcs[sig.Name]
		if !ok {
			missing = append(missing, sig.String())
			continue
		}
		want := sig.CoreType()
		got := wasm.FuncType{
			Params:  coreFromAPI(def.ParamTypes()),
			Results: coreFromAPI(def.ResultTypes()),
		}
		if !want.Equal(got) {
			return errors.SignatureMismatch(sig.Name, want.String(), got.String())
		}
	}
	if _, ok := mod.ExportedMemories()[ExportMemory]; !ok {
		missing = append(missing, ExportMemory)
	}

	if len(missing) > 0 {
		return errors.Wrap(errors.PhaseLoad, errors.KindNotFound,
			&errors.MissingExportsError{Exports: missing}, "check native exports")
	}
	return nil
}
