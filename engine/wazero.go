package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmbinding "github.com/wippyai/wasm-binding"
)

// WazeroEngine wraps a wazero runtime
type WazeroEngine struct {
	runtime wazero.Runtime
	hosts   map[string]struct{}
	hostsMu sync.Mutex
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CloseOnContextDone interrupts running guest code when the call
	// context is cancelled. It costs a check on every loop back-edge.
	CloseOnContextDone bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{
		runtime: runtime,
		hosts:   make(map[string]struct{}),
	}, nil
}

// HostFunc is a Go function exported to guests under a host module name.
type HostFunc struct {
	Handler api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// RegisterHostModule instantiates a host module exporting funcs.
// Must be called BEFORE instantiating modules that import it.
// A module name can be registered once per engine.
func (e *WazeroEngine) RegisterHostModule(ctx context.Context, name string, funcs []HostFunc) error {
	if name == "" {
		return fmt.Errorf("host module name cannot be empty")
	}

	e.hostsMu.Lock()
	defer e.hostsMu.Unlock()

	if _, ok := e.hosts[name]; ok {
		return fmt.Errorf("host module %q already registered", name)
	}

	builder := e.runtime.NewHostModuleBuilder(name)
	for _, f := range funcs {
		if f.Name == "" || f.Handler == nil {
			return fmt.Errorf("host module %q: function needs a name and a handler", name)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Handler, f.Params, f.Results).
			Export(f.Name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %q: %w", name, err)
	}

	e.hosts[name] = struct{}{}
	Logger().Debug("host module registered",
		zap.String("module", name),
		zap.Int("functions", len(funcs)))
	return nil
}

// LoadModule compiles a core WebAssembly binary
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	debugf("compiled module: %d bytes, %d exports", len(wasmBytes), len(compiled.ExportedFunctions()))

	return &WazeroModule{
		engine:   e,
		compiled: compiled,
	}, nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled WASM module
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	Name string
}

// ExportedFunctions returns definitions of all exported functions keyed by name
func (m *WazeroModule) ExportedFunctions() map[string]api.FunctionDefinition {
	return m.compiled.ExportedFunctions()
}

// ExportedMemories returns definitions of all exported memories keyed by name
func (m *WazeroModule) ExportedMemories() map[string]api.MemoryDefinition {
	return m.compiled.ExportedMemories()
}

// ImportedFunctions returns definitions of all imported functions
func (m *WazeroModule) ImportedFunctions() []api.FunctionDefinition {
	return m.compiled.ImportedFunctions()
}

func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig creates an instance with custom configuration
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	modConfig := wazero.NewModuleConfig()
	if cfg != nil && cfg.Name != "" {
		modConfig = modConfig.WithName(cfg.Name)
	} else {
		modConfig = modConfig.WithName("") // anonymous for parallel instantiation
	}

	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	wazInst := &WazeroInstance{
		module:    m,
		instance:  instance,
		funcCache: make(map[string]api.Function),
	}
	if mem := instance.Memory(); mem != nil {
		wazInst.memory = &WazeroMemory{mem: mem}
	}
	return wazInst, nil
}

// Close releases the compiled module
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is an instantiated module
type WazeroInstance struct {
	module    *WazeroModule
	instance  api.Module
	memory    *WazeroMemory
	funcCache map[string]api.Function
	cacheMu   sync.RWMutex
}

// GetExportedFunction returns an exported function by name, or nil.
func (i *WazeroInstance) GetExportedFunction(name string) api.Function {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()
	if ok {
		return fn
	}

	if i.instance == nil {
		return nil
	}
	fn = i.instance.ExportedFunction(name)
	if fn == nil {
		return nil
	}

	i.cacheMu.Lock()
	i.funcCache[name] = fn
	i.cacheMu.Unlock()
	return fn
}

// Call invokes an exported function with raw core values
func (i *WazeroInstance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.instance == nil {
		return nil, fmt.Errorf("instance is closed")
	}
	fn := i.GetExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found", name)
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return results, nil
}

// Memory returns the instance's linear memory, or nil if it has none.
func (i *WazeroInstance) Memory() *WazeroMemory {
	return i.memory
}

// MemorySize returns the current linear memory size in bytes, or 0 if no memory.
func (i *WazeroInstance) MemorySize() uint32 {
	if i.memory == nil {
		return 0
	}
	return i.memory.Size()
}

// EnsureMemory grows linear memory until it holds at least size bytes.
func (i *WazeroInstance) EnsureMemory(size uint64) error {
	if i.memory == nil {
		return fmt.Errorf("instance has no memory")
	}
	current := uint64(i.memory.Size())
	if size <= current {
		return nil
	}

	const pageSize = 65536
	delta := (size - current + pageSize - 1) / pageSize
	if delta > 65536 {
		return fmt.Errorf("memory request of %d bytes exceeds 4GB", size)
	}
	if _, ok := i.memory.mem.Grow(uint32(delta)); !ok {
		return fmt.Errorf("grow memory by %d pages failed", delta)
	}

	debugf("grew memory by %d pages to %d bytes", delta, i.memory.Size())
	return nil
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	var err error
	if i.instance != nil {
		err = i.instance.Close(ctx)
		i.instance = nil
	}
	i.cacheMu.Lock()
	i.funcCache = make(map[string]api.Function)
	i.cacheMu.Unlock()
	i.memory = nil
	return err
}

// WazeroMemory wraps wazero memory to implement wasmbinding.Memory
type WazeroMemory struct {
	mem api.Memory
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time check that WazeroMemory implements wasmbinding.Memory and MemorySizer
var _ wasmbinding.Memory = (*WazeroMemory)(nil)
var _ wasmbinding.MemorySizer = (*WazeroMemory)(nil)
