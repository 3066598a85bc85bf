package binding

import (
	"context"
	"math"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-binding/errors"
	"github.com/wippyai/wasm-binding/native"
)

// Values produced by Obj and ModifyObj.
const (
	ObjName      = "xm"
	ObjAge       = 12
	ObjHello     = 12
	ModifiedName = "rust modify..."
)

// maxSleepMs is the largest duration whose computed result fits in u32.
const maxSleepMs = math.MaxUint32 / native.ComputeFactor

// Adapter is the host-facing side of the binding. It validates host values,
// hands native work to a delegate and converts results back.
//
// Adapter methods are safe for concurrent use. Counters are not.
type Adapter struct {
	cfg      Config
	delegate native.Delegate
	loop     *Loop
	logger   *zap.Logger

	closing   chan struct{}
	closeDone chan struct{}
	pending   sync.WaitGroup

	mu       sync.RWMutex
	closed   bool
	closeErr error
}

// New creates an adapter. cfg is validated first; see Config.Validate.
func New(ctx context.Context, cfg Config, opts ...Option) (*Adapter, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var metrics *Metrics
	if o.registry != nil {
		m, err := NewMetrics(o.registry)
		if err != nil {
			return nil, errors.Config("register metrics", err)
		}
		metrics = m
	}

	d := o.delegate
	if d == nil {
		var err error
		d, err = newDelegate(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	a := &Adapter{
		cfg:       cfg,
		delegate:  instrument(d, metrics, o.logger),
		loop:      NewLoop(cfg.QueueSize, o.logger),
		logger:    o.logger,
		closing:   make(chan struct{}),
		closeDone: make(chan struct{}),
	}

	a.logger.Info("binding adapter ready",
		zap.String("delegate", d.Name()),
		zap.Uint32("callback_repeat", cfg.CallbackRepeat),
		zap.Int("queue_size", cfg.QueueSize))
	return a, nil
}

func newDelegate(ctx context.Context, cfg Config) (native.Delegate, error) {
	wcfg := &native.WasmConfig{MemoryLimitPages: cfg.MemoryLimitPages}
	if cfg.ModulePath != "" {
		data, err := os.ReadFile(cfg.ModulePath)
		if err != nil {
			return nil, errors.Load("read native module", err)
		}
		wcfg.ModuleBytes = data
	}
	return native.New(ctx, cfg.Delegate, wcfg)
}

// Config returns the validated configuration.
func (a *Adapter) Config() Config {
	return a.cfg
}

// Loop returns the event loop that runs Then continuations and AddCb
// callbacks.
func (a *Adapter) Loop() *Loop {
	return a.loop
}

// DelegateName reports which native implementation is in use.
func (a *Adapter) DelegateName() string {
	return a.delegate.Name()
}

func (a *Adapter) checkOpen() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return errors.Closed(errors.PhaseRuntime, "adapter")
	}
	return nil
}

// Add returns a + b computed by the delegate.
func (a *Adapter) Add(ctx context.Context, x, y any) (int32, error) {
	if err := a.checkOpen(); err != nil {
		return 0, err
	}
	l, err := toInt32([]string{"add", "a"}, x)
	if err != nil {
		return 0, err
	}
	r, err := toInt32([]string{"add", "b"}, y)
	if err != nil {
		return 0, err
	}
	if _, err := checkedAdd([]string{"add"}, l, r); err != nil {
		return 0, err
	}
	return a.delegate.Add(ctx, l, r)
}

// Sync returns x + 100 computed by the delegate.
func (a *Adapter) Sync(ctx context.Context, x any) (int32, error) {
	if err := a.checkOpen(); err != nil {
		return 0, err
	}
	n, err := toInt32([]string{"sync", "x"}, x)
	if err != nil {
		return 0, err
	}
	if _, err := checkedAdd([]string{"sync"}, n, native.SyncOffset); err != nil {
		return 0, err
	}
	return a.delegate.Sync(ctx, n)
}

// Sleep returns immediately with a value that settles no earlier than ms
// milliseconds later, to ms*2. It settles with an error if ctx is done or
// the adapter closes first.
func (a *Adapter) Sleep(ctx context.Context, ms any) (*Deferred[uint32], error) {
	d, err := toUint32([]string{"sleep", "ms"}, ms, maxSleepMs)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, errors.Closed(errors.PhaseRuntime, "adapter")
	}

	res := newDeferred[uint32](a.loop)
	a.pending.Add(1)
	go a.sleep(ctx, d, res)
	return res, nil
}

func (a *Adapter) sleep(ctx context.Context, ms uint32, res *Deferred[uint32]) {
	defer a.pending.Done()

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		res.settle(a.delegate.Compute(ctx, ms))
	case <-ctx.Done():
		res.settle(0, errors.Cancelled("sleep", ctx.Err()))
	case <-a.closing:
		res.settle(0, errors.Closed(errors.PhaseRuntime, "adapter"))
	}
}

// Obj returns a new record on every call.
func (a *Adapter) Obj() Record {
	return Record{
		"name":  ObjName,
		"age":   int32(ObjAge),
		"hello": int32(ObjHello),
	}
}

// ModifyObj sets r's name field and returns r itself. Other fields are left
// alone.
func (a *Adapter) ModifyObj(r Record) (Record, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.MissingArgument([]string{"modifyObj", "obj"}, "record")
	}
	r["name"] = ModifiedName
	return r, nil
}

// ModifyArr returns a new sequence with 100 added to each element of s.
// s is not modified.
func (a *Adapter) ModifyArr(ctx context.Context, s any) ([]int32, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	path := []string{"modifyArr", "seq"}
	seq, err := toInt32Slice(path, s)
	if err != nil {
		return nil, err
	}
	for i, v := range seq {
		if _, err := checkedAdd(elemPath(path, i), v, native.ArrOffset); err != nil {
			return nil, err
		}
	}
	return a.delegate.ModifyArr(ctx, seq)
}

// NewTestClass creates a counter starting at initial.
func (a *Adapter) NewTestClass(initial any) (*Counter, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	n, err := toInt32([]string{"TestClass", "initial"}, initial)
	if err != nil {
		return nil, err
	}
	return &Counter{adapter: a, count: n}, nil
}

// AddCb asks the native side for Config.CallbackRepeat messages and queues
// each one for cb on the event loop. It returns once every message is
// queued; cb runs later, in emission order. Each message is a Record with
// "value" and "id" fields.
func (a *Adapter) AddCb(ctx context.Context, cb func(Record)) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	if cb == nil {
		return errors.MissingArgument([]string{"addCb", "callback"}, "func(record)")
	}

	var postErr error
	err := a.delegate.Emit(ctx, a.cfg.CallbackRepeat, func(m native.Message) {
		rec := messageRecord(m.Value, m.ID)
		if err := a.loop.Post(func() { cb(rec) }); err != nil && postErr == nil {
			postErr = err
		}
	})
	if err != nil {
		return err
	}
	if postErr != nil {
		a.logger.Warn("callback message dropped", zap.Error(postErr))
	}
	return postErr
}

// Close settles pending sleeps, drains the event loop and closes the
// delegate. Later calls wait for the first one to finish and return its
// result.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		select {
		case <-a.closeDone:
			return a.closeErr
		default:
		}
		select {
		case <-a.closeDone:
			return a.closeErr
		case <-ctx.Done():
			return errors.Cancelled("wait for adapter close", ctx.Err())
		}
	}
	a.closed = true
	close(a.closing)
	a.mu.Unlock()

	a.pending.Wait()

	var firstErr error
	if err := a.loop.Close(ctx); err != nil {
		firstErr = err
	}
	if err := a.delegate.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	a.closeErr = firstErr
	close(a.closeDone)

	a.logger.Info("binding adapter closed", zap.Error(firstErr))
	return firstErr
}
