package wasm

import "encoding/binary"

// Encode writes the module in the WebAssembly binary format. Empty sections
// are omitted.
func (m *Module) Encode() []byte {
	out := binary.LittleEndian.AppendUint32(nil, Magic)
	out = binary.LittleEndian.AppendUint32(out, Version)

	out = appendSection(out, SectionType, len(m.Types), func(b []byte, i int) []byte {
		ft := m.Types[i]
		b = append(b, FuncTypeByte)
		b = appendValTypes(b, ft.Params)
		return appendValTypes(b, ft.Results)
	})

	out = appendSection(out, SectionImport, len(m.Imports), func(b []byte, i int) []byte {
		imp := m.Imports[i]
		b = appendName(b, imp.Module)
		b = appendName(b, imp.Name)
		b = append(b, imp.Desc.Kind)
		switch imp.Desc.Kind {
		case KindFunc:
			b = appendU32(b, imp.Desc.TypeIdx)
		case KindMemory:
			if imp.Desc.Memory != nil {
				b = appendLimits(b, imp.Desc.Memory.Limits)
			}
		}
		return b
	})

	out = appendSection(out, SectionFunction, len(m.Funcs), func(b []byte, i int) []byte {
		return appendU32(b, m.Funcs[i])
	})

	out = appendSection(out, SectionMemory, len(m.Memories), func(b []byte, i int) []byte {
		return appendLimits(b, m.Memories[i].Limits)
	})

	out = appendSection(out, SectionExport, len(m.Exports), func(b []byte, i int) []byte {
		exp := m.Exports[i]
		b = appendName(b, exp.Name)
		b = append(b, exp.Kind)
		return appendU32(b, exp.Idx)
	})

	out = appendSection(out, SectionCode, len(m.Code), func(b []byte, i int) []byte {
		return appendSized(b, m.Code[i].encode())
	})

	// active segments on memory 0, offset given as an i32.const expression
	out = appendSection(out, SectionData, len(m.Data), func(b []byte, i int) []byte {
		seg := m.Data[i]
		b = appendU32(b, 0)
		b = append(b, OpI32Const)
		b = appendS32(b, int32(seg.Offset))
		b = append(b, OpEnd)
		return appendSized(b, seg.Init)
	})

	return out
}

// encode returns the body without its size prefix: local declarations
// followed by the instructions.
func (f FuncBody) encode() []byte {
	b := appendU32(nil, uint32(len(f.Locals)))
	for _, l := range f.Locals {
		b = appendU32(b, l.Count)
		b = append(b, byte(l.ValType))
	}
	return append(b, f.Code...)
}

// appendSection appends section id holding a vector of n items, each
// produced by item. Nothing is written when n is zero.
func appendSection(out []byte, id byte, n int, item func(b []byte, i int) []byte) []byte {
	if n == 0 {
		return out
	}
	body := appendU32(nil, uint32(n))
	for i := 0; i < n; i++ {
		body = item(body, i)
	}
	out = append(out, id)
	return appendSized(out, body)
}

func appendValTypes(b []byte, types []ValType) []byte {
	b = appendU32(b, uint32(len(types)))
	for _, t := range types {
		b = append(b, byte(t))
	}
	return b
}

func appendLimits(b []byte, l Limits) []byte {
	if l.Max != nil {
		b = append(b, LimitsHasMax)
		b = appendU32(b, l.Min)
		return appendU32(b, *l.Max)
	}
	b = append(b, LimitsNoMax)
	return appendU32(b, l.Min)
}
