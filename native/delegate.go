package native

import (
	"context"

	"github.com/wippyai/wasm-binding/errors"
)

// Delegate performs the operations the adapter marks as native.
// Implementations return errors built with errors.DelegateFailure when the
// native side fails.
type Delegate interface {
	// Name identifies the implementation in logs, metrics and errors.
	Name() string

	// Add returns a + b with two's complement wraparound.
	Add(ctx context.Context, a, b int32) (int32, error)

	// Sync returns x + SyncOffset.
	Sync(ctx context.Context, x int32) (int32, error)

	// Compute returns the value a finished sleep of ms resolves to.
	Compute(ctx context.Context, ms uint32) (uint32, error)

	// Accumulate returns count + n. It shares Add's arithmetic.
	Accumulate(ctx context.Context, count, n int32) (int32, error)

	// ModifyArr returns a new slice with ArrOffset added to every element.
	// seq is not modified.
	ModifyArr(ctx context.Context, seq []int32) ([]int32, error)

	// Emit produces count messages and passes each to sink in order before
	// returning. sink must not call back into the delegate.
	Emit(ctx context.Context, count uint32, sink func(Message)) error

	Close(ctx context.Context) error
}

// Message is produced by Emit.
type Message struct {
	Value string
	ID    int32
}

const (
	SyncOffset    = 100
	ArrOffset     = 100
	ComputeFactor = 2

	MessageValue = "hello message"
	MessageID    = 13
)

// Delegate kinds accepted by New.
const (
	KindWasm = "wasm"
	KindGo   = "go"
)

// New creates a delegate of the given kind. cfg is used only by KindWasm.
func New(ctx context.Context, kind string, cfg *WasmConfig) (Delegate, error) {
	switch kind {
	case KindWasm, "":
		return NewWasmDelegate(ctx, cfg)
	case KindGo:
		return NewGoDelegate(), nil
	default:
		return nil, errors.NotFound(errors.PhaseLoad, "delegate kind", kind)
	}
}
