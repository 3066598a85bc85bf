package wasm_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/wasm-binding/wasm"
)

func TestCodeBuilder_Bytes(t *testing.T) {
	c := wasm.NewCodeBuilder().
		Block().
		Loop().
		LocalGet(0).
		I32Const(100).
		Op(wasm.OpI32GeU).
		BrIf(1).
		Br(0).
		End().
		End().
		End()

	want := []byte{
		0x02, 0x40,
		0x03, 0x40,
		0x20, 0x00,
		0x41, 0xE4, 0x00,
		0x4F,
		0x0D, 0x01,
		0x0C, 0x00,
		0x0B,
		0x0B,
		0x0B,
	}
	if !bytes.Equal(c.Bytes(), want) {
		t.Errorf("bytes = %x, want %x", c.Bytes(), want)
	}
	if !c.Balanced() {
		t.Error("builder should be balanced")
	}
}

func TestCodeBuilder_Unbalanced(t *testing.T) {
	c := wasm.NewCodeBuilder().Block().LocalGet(0).End()
	if c.Balanced() {
		t.Error("function body is still open")
	}
}

func TestCodeBuilder_MemoryImmediates(t *testing.T) {
	c := wasm.NewCodeBuilder().LocalGet(0).I32Load(4).LocalGet(1).I32Store(8)
	want := []byte{0x20, 0x00, 0x28, 0x02, 0x04, 0x20, 0x01, 0x36, 0x02, 0x08}
	if !bytes.Equal(c.Bytes(), want) {
		t.Errorf("bytes = %x, want %x", c.Bytes(), want)
	}
}

func TestCodeBuilder_BodyCopies(t *testing.T) {
	c := wasm.NewCodeBuilder().I32Const(1)
	body := c.Body([]wasm.LocalEntry{{Count: 2, ValType: wasm.ValI32}})
	c.End()

	if len(body.Code) != 2 {
		t.Errorf("body captured later writes: %x", body.Code)
	}
	if body.Locals[0].Count != 2 {
		t.Errorf("locals = %+v", body.Locals)
	}
}
