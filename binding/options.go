package binding

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-binding/native"
)

// Option configures an Adapter
type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry prometheus.Registerer
	delegate native.Delegate
}

// WithLogger sets the adapter's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics registers delegate metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithDelegate uses d instead of creating one from Config.Delegate.
// The adapter takes ownership and closes d on Close.
func WithDelegate(d native.Delegate) Option {
	return func(o *options) {
		o.delegate = d
	}
}
