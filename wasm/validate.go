package wasm

import "fmt"

// Validate checks the module for structural validity.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateCodeCount(); err != nil {
		return err
	}
	if err := m.validateMemories(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	return m.validateData()
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))

	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d references invalid type index %d (have %d types)", i, typeIdx, numTypes)
		}
	}

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}
	return nil
}

func (m *Module) validateCodeCount() error {
	if len(m.Code) != len(m.Funcs) {
		return fmt.Errorf("code count %d does not match function count %d", len(m.Code), len(m.Funcs))
	}
	for i, body := range m.Code {
		if len(body.Code) == 0 || body.Code[len(body.Code)-1] != OpEnd {
			return fmt.Errorf("function body %d does not end with end opcode", i)
		}
	}
	return nil
}

func (m *Module) validateMemories() error {
	total := m.NumImportedMemories() + len(m.Memories)
	if total > 1 {
		return fmt.Errorf("at most one memory allowed, got %d", total)
	}
	for i, mem := range m.Memories {
		if mem.Limits.Max != nil && *mem.Limits.Max < mem.Limits.Min {
			return fmt.Errorf("memory %d max %d is below min %d", i, *mem.Limits.Max, mem.Limits.Min)
		}
		if mem.Limits.Min > 65536 {
			return fmt.Errorf("memory %d min %d exceeds 65536 pages", i, mem.Limits.Min)
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))
	numMems := uint32(m.NumImportedMemories() + len(m.Memories))
	seen := make(map[string]bool, len(m.Exports))

	for _, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q", exp.Name)
		}
		seen[exp.Name] = true

		switch exp.Kind {
		case KindFunc:
			if exp.Idx >= numFuncs {
				return fmt.Errorf("export %q references invalid function index %d", exp.Name, exp.Idx)
			}
		case KindMemory:
			if exp.Idx >= numMems {
				return fmt.Errorf("export %q references invalid memory index %d", exp.Name, exp.Idx)
			}
		default:
			return fmt.Errorf("export %q has unsupported kind %d", exp.Name, exp.Kind)
		}
	}
	return nil
}

func (m *Module) validateData() error {
	if len(m.Data) == 0 {
		return nil
	}
	if m.NumImportedMemories()+len(m.Memories) == 0 {
		return fmt.Errorf("data segments require a memory")
	}
	if len(m.Memories) == 0 {
		return nil
	}
	limit := uint64(m.Memories[0].Limits.Min) * PageSize
	for i, d := range m.Data {
		if uint64(d.Offset)+uint64(len(d.Init)) > limit {
			return fmt.Errorf("data segment %d [%d, %d) exceeds initial memory of %d bytes", i, d.Offset, uint64(d.Offset)+uint64(len(d.Init)), limit)
		}
	}
	return nil
}
