package binding

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-binding/errors"
	"github.com/wippyai/wasm-binding/native"
)

// instrumented wraps a delegate with metrics and debug logging, and makes
// sure every failure it returns is a structured delegate failure.
type instrumented struct {
	next    native.Delegate
	metrics *Metrics
	logger  *zap.Logger
}

func instrument(d native.Delegate, m *Metrics, logger *zap.Logger) *instrumented {
	return &instrumented{next: d, metrics: m, logger: logger}
}

func (d *instrumented) done(op string, start time.Time, err error) error {
	d.metrics.observe(op, d.next.Name(), start, err)
	if err != nil {
		var e *errors.Error
		if !stderrors.As(err, &e) {
			err = errors.DelegateFailure(d.next.Name(), op, err)
		}
		d.logger.Warn("delegate call failed",
			zap.String("op", op),
			zap.String("delegate", d.next.Name()),
			zap.Error(err))
		return err
	}
	if ce := d.logger.Check(zap.DebugLevel, "delegate call"); ce != nil {
		ce.Write(
			zap.String("op", op),
			zap.String("delegate", d.next.Name()),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

func (d *instrumented) Name() string { return d.next.Name() }

func (d *instrumented) Add(ctx context.Context, a, b int32) (int32, error) {
	start := time.Now()
	v, err := d.next.Add(ctx, a, b)
	return v, d.done(native.ExportAdd, start, err)
}

func (d *instrumented) Sync(ctx context.Context, x int32) (int32, error) {
	start := time.Now()
	v, err := d.next.Sync(ctx, x)
	return v, d.done(native.ExportSync, start, err)
}

func (d *instrumented) Compute(ctx context.Context, ms uint32) (uint32, error) {
	start := time.Now()
	v, err := d.next.Compute(ctx, ms)
	return v, d.done(native.ExportCompute, start, err)
}

func (d *instrumented) Accumulate(ctx context.Context, count, n int32) (int32, error) {
	start := time.Now()
	v, err := d.next.Accumulate(ctx, count, n)
	return v, d.done(native.ExportAccumulate, start, err)
}

func (d *instrumented) ModifyArr(ctx context.Context, seq []int32) ([]int32, error) {
	start := time.Now()
	v, err := d.next.ModifyArr(ctx, seq)
	return v, d.done(native.ExportModifyArr, start, err)
}

func (d *instrumented) Emit(ctx context.Context, count uint32, sink func(native.Message)) error {
	start := time.Now()
	err := d.next.Emit(ctx, count, sink)
	return d.done(native.ExportEmitMessages, start, err)
}

func (d *instrumented) Close(ctx context.Context) error {
	return d.next.Close(ctx)
}

var _ native.Delegate = (*instrumented)(nil)
