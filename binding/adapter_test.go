package binding

import (
	"context"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-binding/errors"
	"github.com/wippyai/wasm-binding/native"
)

var closedErr = &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindClosed}

// adapters returns one adapter per delegate kind, closed on cleanup.
func adapters(t *testing.T) []*Adapter {
	t.Helper()
	ctx := context.Background()

	var out []*Adapter
	for _, kind := range []string{native.KindGo, native.KindWasm} {
		a, err := New(ctx, Config{Delegate: kind})
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		t.Cleanup(func() { a.Close(ctx) })
		out = append(out, a)
	}
	return out
}

func TestAdapter_Add(t *testing.T) {
	tests := []struct {
		name    string
		a, b    any
		want    int32
		wantErr bool
	}{
		{name: "small", a: 1, b: 2, want: 3},
		{name: "negative", a: -10, b: 4, want: -6},
		{name: "strings", a: "20", b: "22", want: 42},
		{name: "leading zeros are decimal", a: "010", b: "010", want: 20},
		{name: "hex string", a: "0x10", b: 1, wantErr: true},
		{name: "floats", a: 1.0, b: 2.0, want: 3},
		{name: "max", a: math.MaxInt32, b: 0, want: math.MaxInt32},
		{name: "sum overflow", a: math.MaxInt32, b: 1, wantErr: true},
		{name: "operand overflow", a: int64(1) << 40, b: 1, wantErr: true},
		{name: "non-numeric", a: "abc", b: 1, wantErr: true},
		{name: "missing", a: nil, b: 1, wantErr: true},
		{name: "bool", a: true, b: 1, wantErr: true},
	}

	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			for _, tt := range tests {
				got, err := a.Add(context.Background(), tt.a, tt.b)
				if tt.wantErr {
					if !errors.IsInvalidArgument(err) {
						t.Errorf("%s: expected invalid argument, got %v", tt.name, err)
					}
					if errors.IsDelegateFailure(err) {
						t.Errorf("%s: invalid argument reported as delegate failure", tt.name)
					}
					continue
				}
				if err != nil {
					t.Errorf("%s: unexpected error %v", tt.name, err)
					continue
				}
				if got != tt.want {
					t.Errorf("%s: Add(%v, %v) = %d, want %d", tt.name, tt.a, tt.b, got, tt.want)
				}
			}
		})
	}
}

func TestAdapter_Sync(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			for _, x := range []int32{0, 1, -100, 5000} {
				got, err := a.Sync(context.Background(), x)
				if err != nil {
					t.Fatalf("Sync(%d): %v", x, err)
				}
				if got != x+100 {
					t.Errorf("Sync(%d) = %d, want %d", x, got, x+100)
				}
			}

			if _, err := a.Sync(context.Background(), math.MaxInt32); !errors.IsInvalidArgument(err) {
				t.Errorf("expected overflow, got %v", err)
			}
			if _, err := a.Sync(context.Background(), nil); !errors.IsInvalidArgument(err) {
				t.Errorf("expected missing argument, got %v", err)
			}
		})
	}
}

func TestAdapter_Obj(t *testing.T) {
	a := adapters(t)[0]

	o1 := a.Obj()
	o2 := a.Obj()
	if o1["name"] != "xm" || o1["age"] != int32(12) || o1["hello"] != int32(12) {
		t.Fatalf("unexpected obj %v", o1)
	}

	o1["name"] = "changed"
	o1["extra"] = true
	if o2["name"] != "xm" {
		t.Error("Obj results share state")
	}
	if _, ok := a.Obj()["extra"]; ok {
		t.Error("mutation leaked into later Obj results")
	}
}

func TestAdapter_ModifyObj(t *testing.T) {
	a := adapters(t)[0]

	r := Record{"name": "xm", "keep": 1}
	got, err := a.ModifyObj(r)
	if err != nil {
		t.Fatalf("ModifyObj: %v", err)
	}
	if r["name"] != "rust modify..." {
		t.Errorf("input not modified in place: %v", r)
	}
	if r["keep"] != 1 {
		t.Errorf("other fields changed: %v", r)
	}
	got["probe"] = true
	if _, ok := r["probe"]; !ok {
		t.Error("ModifyObj should return the same record")
	}

	empty := Record{}
	if _, err := a.ModifyObj(empty); err != nil || empty["name"] != "rust modify..." {
		t.Errorf("ModifyObj on empty record = %v, %v", empty, err)
	}

	if _, err := a.ModifyObj(nil); !errors.IsInvalidArgument(err) {
		t.Errorf("expected invalid argument for nil, got %v", err)
	}
}

func TestAdapter_ModifyArr(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			in := []int{1, 2, 3}
			got, err := a.ModifyArr(context.Background(), in)
			if err != nil {
				t.Fatalf("ModifyArr: %v", err)
			}
			if !slices.Equal(got, []int32{101, 102, 103}) {
				t.Errorf("ModifyArr = %v, want [101 102 103]", got)
			}
			if !slices.Equal(in, []int{1, 2, 3}) {
				t.Errorf("input mutated: %v", in)
			}

			again, _ := a.ModifyArr(context.Background(), in)
			if !slices.Equal(got, again) {
				t.Errorf("not deterministic: %v vs %v", got, again)
			}

			same := []int32{5}
			if _, err := a.ModifyArr(context.Background(), same); err != nil || same[0] != 5 {
				t.Errorf("[]int32 input mutated or failed: %v, %v", same, err)
			}

			empty, err := a.ModifyArr(context.Background(), []any{})
			if err != nil || len(empty) != 0 {
				t.Errorf("ModifyArr([]) = %v, %v", empty, err)
			}

			if _, err := a.ModifyArr(context.Background(), []any{1, "x"}); !errors.IsInvalidArgument(err) {
				t.Errorf("expected invalid argument, got %v", err)
			}
			if _, err := a.ModifyArr(context.Background(), []int32{math.MaxInt32}); !errors.IsInvalidArgument(err) {
				t.Errorf("expected overflow, got %v", err)
			}
		})
	}
}

func TestAdapter_Sleep(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			start := time.Now()
			d, err := a.Sleep(context.Background(), 30)
			if err != nil {
				t.Fatalf("Sleep: %v", err)
			}
			if time.Since(start) > 20*time.Millisecond {
				t.Error("Sleep blocked the caller")
			}

			v, err := d.Await(context.Background())
			if err != nil {
				t.Fatalf("Await: %v", err)
			}
			if v != 60 {
				t.Errorf("Sleep(30) resolved to %d, want 60", v)
			}
			if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
				t.Errorf("resolved after %v, before 30ms", elapsed)
			}
		})
	}
}

func TestAdapter_SleepZero(t *testing.T) {
	a := adapters(t)[0]
	d, err := a.Sleep(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := d.Await(context.Background()); err != nil || v != 0 {
		t.Errorf("Sleep(0) = %d, %v", v, err)
	}
}

func TestAdapter_SleepThen(t *testing.T) {
	a := adapters(t)[0]

	d, err := a.Sleep(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan uint32, 2)
	if err := d.Then(func(v uint32, err error) { got <- v }); err != nil {
		t.Fatalf("Then: %v", err)
	}

	select {
	case v := <-got:
		if v != 2 {
			t.Errorf("continuation got %d, want 2", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("continuation never ran")
	}
}

func TestAdapter_SleepInvalid(t *testing.T) {
	a := adapters(t)[0]
	for _, ms := range []any{-1, nil, "soon", int64(math.MaxUint32)} {
		if _, err := a.Sleep(context.Background(), ms); !errors.IsInvalidArgument(err) {
			t.Errorf("Sleep(%v): expected invalid argument, got %v", ms, err)
		}
	}
}

func TestAdapter_SleepCancelled(t *testing.T) {
	a := adapters(t)[0]

	ctx, cancel := context.WithCancel(context.Background())
	d, err := a.Sleep(ctx, 10_000)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	_, err = d.Await(context.Background())
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestAdapter_CloseSettlesSleep(t *testing.T) {
	a, err := New(context.Background(), Config{Delegate: native.KindGo})
	if err != nil {
		t.Fatal(err)
	}

	d, err := a.Sleep(context.Background(), 10_000)
	if err != nil {
		t.Fatal(err)
	}

	var thenErr error
	if err := d.Then(func(_ uint32, err error) { thenErr = err }); err != nil {
		t.Fatalf("Then: %v", err)
	}

	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := d.Result(); !stderrors.Is(err, closedErr) {
		t.Errorf("pending sleep should settle with closed, got %v", err)
	}
	if !stderrors.Is(thenErr, closedErr) {
		t.Errorf("continuation should run before Close returns, got %v", thenErr)
	}

	late := false
	if err := d.Then(func(uint32, error) { late = true }); !stderrors.Is(err, closedErr) {
		t.Errorf("Then after Close: expected closed error, got %v", err)
	}
	if late {
		t.Error("continuation registered after Close ran")
	}
}

func TestAdapter_AddCb(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			var mu sync.Mutex
			var got []Record
			done := make(chan struct{})

			err := a.AddCb(context.Background(), func(r Record) {
				mu.Lock()
				got = append(got, r)
				n := len(got)
				mu.Unlock()
				if n == 11 {
					close(done)
				}
			})
			if err != nil {
				t.Fatalf("AddCb: %v", err)
			}

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("callbacks not delivered")
			}
			if err := a.Close(context.Background()); err != nil {
				t.Fatalf("Close: %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(got) != DefaultCallbackRepeat {
				t.Errorf("delivered %d messages, want %d", len(got), DefaultCallbackRepeat)
			}
			for i, r := range got {
				if r["value"] != "hello message" || r["id"] != int32(13) {
					t.Errorf("message %d = %v", i, r)
				}
			}
		})
	}
}

func TestAdapter_AddCbRepeat(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Config{Delegate: native.KindWasm, CallbackRepeat: 3})
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	if err := a.AddCb(ctx, func(Record) { count++ }); err != nil {
		t.Fatalf("AddCb: %v", err)
	}
	a.Close(ctx)

	if count != 3 {
		t.Errorf("delivered %d messages, want 3", count)
	}
}

func TestAdapter_AddCbQueueFull(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Config{Delegate: native.KindGo, QueueSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)

	block := make(chan struct{})
	started := make(chan struct{})
	a.Loop().Post(func() { close(started); <-block })
	<-started

	err = a.AddCb(ctx, func(Record) {})
	close(block)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindQueueFull}) {
		t.Errorf("expected queue full, got %v", err)
	}
}

func TestAdapter_AddCbNil(t *testing.T) {
	a := adapters(t)[0]
	if err := a.AddCb(context.Background(), nil); !errors.IsInvalidArgument(err) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestAdapter_Closed(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}

	checks := map[string]error{}
	_, checks["add"] = a.Add(ctx, 1, 2)
	_, checks["sync"] = a.Sync(ctx, 1)
	_, checks["sleep"] = a.Sleep(ctx, 1)
	_, checks["modifyObj"] = a.ModifyObj(Record{})
	_, checks["modifyArr"] = a.ModifyArr(ctx, []int{1})
	_, checks["testClass"] = a.NewTestClass(1)
	checks["addCb"] = a.AddCb(ctx, func(Record) {})

	for op, err := range checks {
		if !stderrors.Is(err, closedErr) {
			t.Errorf("%s after Close: expected closed error, got %v", op, err)
		}
	}
}

// slowCloseDelegate blocks in Close until release is closed.
type slowCloseDelegate struct {
	*native.GoDelegate
	entered chan struct{}
	release chan struct{}
}

func (d slowCloseDelegate) Close(context.Context) error {
	close(d.entered)
	<-d.release
	return stderrors.New("close failed")
}

func TestAdapter_ConcurrentClose(t *testing.T) {
	ctx := context.Background()
	d := slowCloseDelegate{
		GoDelegate: native.NewGoDelegate(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	a, err := New(ctx, DefaultConfig(), WithDelegate(d))
	if err != nil {
		t.Fatal(err)
	}

	first := make(chan error, 1)
	go func() { first <- a.Close(ctx) }()
	<-d.entered

	second := make(chan error, 1)
	go func() { second <- a.Close(ctx) }()

	select {
	case err := <-second:
		t.Fatalf("second Close returned %v while the first was still running", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(d.release)
	for name, ch := range map[string]chan error{"first": first, "second": second} {
		select {
		case err := <-ch:
			if err == nil || err.Error() != "close failed" {
				t.Errorf("%s Close = %v, want close failed", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s Close did not return", name)
		}
	}

	if err := a.Close(ctx); err == nil || err.Error() != "close failed" {
		t.Errorf("later Close = %v, want the first result", err)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := a.Close(waitCtx); err == nil || err.Error() != "close failed" {
		t.Errorf("Close with a cancelled context after completion = %v, want the first result", err)
	}
}

// failingDelegate fails every call with a plain error.
type failingDelegate struct {
	*native.GoDelegate
}

func (failingDelegate) Name() string { return "failing" }

func (failingDelegate) Add(context.Context, int32, int32) (int32, error) {
	return 0, stderrors.New("native crash")
}

func (failingDelegate) Accumulate(context.Context, int32, int32) (int32, error) {
	return 0, stderrors.New("native crash")
}

func TestAdapter_DelegateFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := context.Background()

	a, err := New(ctx, DefaultConfig(), WithDelegate(failingDelegate{native.NewGoDelegate()}), WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)

	if a.DelegateName() != "failing" {
		t.Errorf("DelegateName() = %q", a.DelegateName())
	}

	_, err = a.Add(ctx, 1, 2)
	if !errors.IsDelegateFailure(err) {
		t.Fatalf("expected delegate failure, got %v", err)
	}
	if errors.IsInvalidArgument(err) {
		t.Error("delegate failure reported as invalid argument")
	}

	c, _ := a.NewTestClass(5)
	if _, err := c.AddNativeCount(ctx, 1); !errors.IsDelegateFailure(err) {
		t.Errorf("expected delegate failure, got %v", err)
	}
	if c.Count() != 5 {
		t.Errorf("count changed to %d after failure", c.Count())
	}

	entries := logs.FilterMessage("delegate call failed").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 failure logs, got %d", len(entries))
	}
	if entries[0].ContextMap()["op"] != "add" {
		t.Errorf("unexpected log fields %v", entries[0].ContextMap())
	}
}

func TestNew_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := context.Background()

	a, err := New(ctx, Config{Delegate: native.KindGo}, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	a.Close(ctx)

	ready := logs.FilterMessage("binding adapter ready").All()
	if len(ready) != 1 || ready[0].ContextMap()["delegate"] != "go" {
		t.Errorf("unexpected ready logs %v", ready)
	}
	if logs.FilterMessage("binding adapter closed").Len() != 1 {
		t.Error("missing close log")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Delegate: "python"})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidData}) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestNew_ModulePath(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "native.wasm")
	if err := os.WriteFile(path, native.Assemble(), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := New(ctx, Config{ModulePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	if got, err := a.Sync(ctx, 1); err != nil || got != 101 {
		t.Errorf("Sync(1) = %d, %v", got, err)
	}

	_, err = New(ctx, Config{ModulePath: filepath.Join(t.TempDir(), "missing.wasm")})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData}) {
		t.Errorf("expected load error, got %v", err)
	}
}
