package native

import (
	"context"

	"github.com/wippyai/wasm-binding/errors"
)

// GoDelegate runs native operations as plain Go arithmetic.
type GoDelegate struct{}

// NewGoDelegate creates a GoDelegate.
func NewGoDelegate() *GoDelegate {
	return &GoDelegate{}
}

func (d *GoDelegate) Name() string { return KindGo }

func (d *GoDelegate) Add(ctx context.Context, a, b int32) (int32, error) {
	if err := d.check(ctx, ExportAdd); err != nil {
		return 0, err
	}
	return a + b, nil
}

func (d *GoDelegate) Sync(ctx context.Context, x int32) (int32, error) {
	if err := d.check(ctx, ExportSync); err != nil {
		return 0, err
	}
	return x + SyncOffset, nil
}

func (d *GoDelegate) Compute(ctx context.Context, ms uint32) (uint32, error) {
	if err := d.check(ctx, ExportCompute); err != nil {
		return 0, err
	}
	return ms * ComputeFactor, nil
}

func (d *GoDelegate) Accumulate(ctx context.Context, count, n int32) (int32, error) {
	if err := d.check(ctx, ExportAccumulate); err != nil {
		return 0, err
	}
	return d.Add(ctx, count, n)
}

func (d *GoDelegate) ModifyArr(ctx context.Context, seq []int32) ([]int32, error) {
	if err := d.check(ctx, ExportModifyArr); err != nil {
		return nil, err
	}
	out := make([]int32, len(seq))
	for i, v := range seq {
		out[i] = v + ArrOffset
	}
	return out, nil
}

func (d *GoDelegate) Emit(ctx context.Context, count uint32, sink func(Message)) error {
	for i := uint32(0); i < count; i++ {
		if err := d.check(ctx, ExportEmitMessages); err != nil {
			return err
		}
		sink(Message{Value: MessageValue, ID: MessageID})
	}
	return nil
}

func (d *GoDelegate) Close(context.Context) error { return nil }

func (d *GoDelegate) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return errors.DelegateFailure(KindGo, op, err)
	}
	return nil
}

var _ Delegate = (*GoDelegate)(nil)
