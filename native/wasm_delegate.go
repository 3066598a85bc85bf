package native

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-binding/engine"
	"github.com/wippyai/wasm-binding/errors"
)

// WasmConfig holds configuration for a WasmDelegate
type WasmConfig struct {
	// ModuleBytes replaces the built-in module. It must satisfy the native
	// module ABI described in the package documentation.
	ModuleBytes []byte

	// MemoryLimitPages caps the module's linear memory. 0 means no limit
	// beyond wazero's default.
	MemoryLimitPages uint32
}

// WasmDelegate runs native operations inside a WebAssembly instance.
type WasmDelegate struct {
	engine *engine.WazeroEngine
	module *engine.WazeroModule
	inst   *engine.WazeroInstance
	mu     sync.Mutex
}

type ctxKeySink struct{}

// NewWasmDelegate compiles, checks and instantiates the native module.
func NewWasmDelegate(ctx context.Context, cfg *WasmConfig) (*WasmDelegate, error) {
	if cfg == nil {
		cfg = &WasmConfig{}
	}
	moduleBytes := cfg.ModuleBytes
	if moduleBytes == nil {
		moduleBytes = Assemble()
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
		MemoryLimitPages: cfg.MemoryLimitPages,
	})
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	d, err := newWasmDelegate(ctx, eng, moduleBytes)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}

	Logger().Info("wasm delegate loaded",
		zap.Int("module_bytes", len(moduleBytes)),
		zap.Uint32("memory_bytes", d.inst.MemorySize()))
	return d, nil
}

func newWasmDelegate(ctx context.Context, eng *engine.WazeroEngine, moduleBytes []byte) (*WasmDelegate, error) {
	err := eng.RegisterHostModule(ctx, HostModule, []engine.HostFunc{{
		Name:    HostEmit,
		Handler: api.GoModuleFunc(hostEmit),
		Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
	}})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidData, err, "bind host functions")
	}

	mod, err := eng.LoadModule(ctx, moduleBytes)
	if err != nil {
		return nil, errors.Load("load native module", err)
	}
	if err := CheckExports(mod); err != nil {
		return nil, err
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return nil, errors.Load("instantiate native module", err)
	}

	return &WasmDelegate{
		engine: eng,
		module: mod,
		inst:   inst,
	}, nil
}

// hostEmit implements host.emit(ptr, len, id).
func hostEmit(ctx context.Context, mod api.Module, stack []uint64) {
	ptr := api.DecodeU32(stack[0])
	length := api.DecodeU32(stack[1])
	id := api.DecodeI32(stack[2])

	sink, _ := ctx.Value(ctxKeySink{}).(func(Message))
	if sink == nil {
		return
	}

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		panic(fmt.Errorf("emit: message [%d, %d) out of bounds", ptr, ptr+length))
	}
	sink(Message{Value: string(data), ID: id})
}

func (d *WasmDelegate) Name() string { return KindWasm }

func (d *WasmDelegate) Add(ctx context.Context, a, b int32) (int32, error) {
	res, err := d.call(ctx, ExportAdd, api.EncodeI32(a), api.EncodeI32(b))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

func (d *WasmDelegate) Sync(ctx context.Context, x int32) (int32, error) {
	res, err := d.call(ctx, ExportSync, api.EncodeI32(x))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

func (d *WasmDelegate) Compute(ctx context.Context, ms uint32) (uint32, error) {
	res, err := d.call(ctx, ExportCompute, api.EncodeU32(ms))
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res[0]), nil
}

func (d *WasmDelegate) Accumulate(ctx context.Context, count, n int32) (int32, error) {
	res, err := d.call(ctx, ExportAccumulate, api.EncodeI32(count), api.EncodeI32(n))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

// ModifyArr lowers seq to HeapBase, transforms it in linear memory and
// lifts the result into a new slice.
func (d *WasmDelegate) ModifyArr(ctx context.Context, seq []int32) ([]int32, error) {
	if err := d.precheck(ctx, ExportModifyArr); err != nil {
		return nil, err
	}

	size := uint64(len(seq)) * 4

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inst == nil {
		return nil, errors.Closed(errors.PhaseDelegate, "wasm delegate")
	}
	if err := d.inst.EnsureMemory(HeapBase + size); err != nil {
		return nil, d.fail(ExportModifyArr, err)
	}

	mem := d.inst.Memory()
	if err := writeInt32s(mem, HeapBase, seq); err != nil {
		return nil, d.fail(ExportModifyArr, err)
	}

	if _, err := d.inst.Call(ctx, ExportModifyArr, api.EncodeU32(HeapBase), api.EncodeU32(uint32(len(seq)))); err != nil {
		return nil, d.fail(ExportModifyArr, err)
	}

	out, err := readInt32s(mem, HeapBase, len(seq))
	if err != nil {
		return nil, d.fail(ExportModifyArr, err)
	}
	return out, nil
}

func (d *WasmDelegate) Emit(ctx context.Context, count uint32, sink func(Message)) error {
	ctx = context.WithValue(ctx, ctxKeySink{}, sink)
	_, err := d.call(ctx, ExportEmitMessages, api.EncodeU32(count))
	return err
}

// Close releases the instance and the engine. It is safe to call twice.
func (d *WasmDelegate) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inst == nil {
		return nil
	}

	var firstErr error
	if err := d.inst.Close(ctx); err != nil {
		firstErr = err
	}
	if err := d.engine.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	d.inst = nil
	d.module = nil

	Logger().Info("wasm delegate closed")
	return firstErr
}

func (d *WasmDelegate) call(ctx context.Context, op string, params ...uint64) ([]uint64, error) {
	if err := d.precheck(ctx, op); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inst == nil {
		return nil, errors.Closed(errors.PhaseDelegate, "wasm delegate")
	}

	res, err := d.inst.Call(ctx, op, params...)
	if err != nil {
		return nil, d.fail(op, err)
	}
	return res, nil
}

func (d *WasmDelegate) precheck(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return errors.DelegateFailure(KindWasm, op, err)
	}
	return nil
}

func (d *WasmDelegate) fail(op string, err error) error {
	Logger().Warn("wasm delegate call failed",
		zap.String("op", op),
		zap.Error(err))
	return errors.DelegateFailure(KindWasm, op, err)
}

var _ Delegate = (*WasmDelegate)(nil)
