package native

import (
	"encoding/binary"

	wasmbinding "github.com/wippyai/wasm-binding"
)

// writeInt32s lowers seq to mem at off as consecutive little-endian i32s.
func writeInt32s(mem wasmbinding.Memory, off uint32, seq []int32) error {
	buf := make([]byte, len(seq)*4)
	for i, v := range seq {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return mem.Write(off, buf)
}

// readInt32s lifts n i32s starting at off into a new slice.
func readInt32s(mem wasmbinding.Memory, off uint32, n int) ([]int32, error) {
	data, err := mem.Read(off, uint32(n*4))
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
