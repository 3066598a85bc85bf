package wasm

// CodeBuilder assembles a function body instruction by instruction.
// Methods return the builder so bodies read top to bottom like WAT.
type CodeBuilder struct {
	code  []byte
	depth int
}

// NewCodeBuilder creates an empty code builder.
func NewCodeBuilder() *CodeBuilder {
	return &CodeBuilder{}
}

// Op emits a single opcode with no immediates.
func (c *CodeBuilder) Op(op byte) *CodeBuilder {
	c.code = append(c.code, op)
	return c
}

func (c *CodeBuilder) LocalGet(idx uint32) *CodeBuilder {
	c.code = append(c.code, OpLocalGet)
	c.code = appendU32(c.code, idx)
	return c
}

func (c *CodeBuilder) LocalSet(idx uint32) *CodeBuilder {
	c.code = append(c.code, OpLocalSet)
	c.code = appendU32(c.code, idx)
	return c
}

func (c *CodeBuilder) I32Const(v int32) *CodeBuilder {
	c.code = append(c.code, OpI32Const)
	c.code = appendS32(c.code, v)
	return c
}

// I32Load emits i32.load with natural alignment.
func (c *CodeBuilder) I32Load(offset uint32) *CodeBuilder {
	c.code = append(c.code, OpI32Load)
	c.code = appendU32(c.code, 2)
	c.code = appendU32(c.code, offset)
	return c
}

// I32Store emits i32.store with natural alignment.
func (c *CodeBuilder) I32Store(offset uint32) *CodeBuilder {
	c.code = append(c.code, OpI32Store)
	c.code = appendU32(c.code, 2)
	c.code = appendU32(c.code, offset)
	return c
}

func (c *CodeBuilder) Call(funcIdx uint32) *CodeBuilder {
	c.code = append(c.code, OpCall)
	c.code = appendU32(c.code, funcIdx)
	return c
}

// Block opens a void block. Close it with End.
func (c *CodeBuilder) Block() *CodeBuilder {
	c.code = append(c.code, OpBlock)
	c.code = append(c.code, BlockTypeVoid)
	c.depth++
	return c
}

// Loop opens a void loop. Close it with End.
func (c *CodeBuilder) Loop() *CodeBuilder {
	c.code = append(c.code, OpLoop)
	c.code = append(c.code, BlockTypeVoid)
	c.depth++
	return c
}

func (c *CodeBuilder) Br(label uint32) *CodeBuilder {
	c.code = append(c.code, OpBr)
	c.code = appendU32(c.code, label)
	return c
}

func (c *CodeBuilder) BrIf(label uint32) *CodeBuilder {
	c.code = append(c.code, OpBrIf)
	c.code = appendU32(c.code, label)
	return c
}

// End closes the innermost block, or the function body at depth zero.
func (c *CodeBuilder) End() *CodeBuilder {
	c.code = append(c.code, OpEnd)
	c.depth--
	return c
}

// Balanced reports whether every block and the function body are closed.
func (c *CodeBuilder) Balanced() bool {
	return c.depth == -1
}

// Bytes returns the instruction bytes emitted so far.
func (c *CodeBuilder) Bytes() []byte {
	return c.code
}

// Body wraps the emitted instructions into a FuncBody with the given locals.
func (c *CodeBuilder) Body(locals []LocalEntry) FuncBody {
	return FuncBody{Locals: locals, Code: append([]byte(nil), c.code...)}
}
