package binding

import (
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-binding/errors"
	"github.com/wippyai/wasm-binding/native"
)

const (
	DefaultCallbackRepeat = 11
	DefaultQueueSize      = 64

	// EnvPrefix prefixes the environment variables read by ApplyEnv.
	EnvPrefix = "WASM_BINDING_"
)

// Config holds configuration for an Adapter
type Config struct {
	// Delegate selects the native implementation: "wasm" or "go".
	Delegate string `yaml:"delegate"`

	// ModulePath loads the native module from a file instead of the
	// built-in one. Only used by the wasm delegate.
	ModulePath string `yaml:"module_path"`

	// MemoryLimitPages caps the wasm delegate's linear memory (64KB pages).
	// 0 means no limit beyond wazero's default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	// CallbackRepeat is the number of messages AddCb delivers.
	CallbackRepeat uint32 `yaml:"callback_repeat"`

	// QueueSize is the capacity of the event loop queue.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Delegate:       native.KindWasm,
		CallbackRepeat: DefaultCallbackRepeat,
		QueueSize:      DefaultQueueSize,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Config("read config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Config("parse config file", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from WASM_BINDING_* variables.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "DELEGATE"); ok {
		c.Delegate = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvPrefix + "MODULE_PATH"); ok {
		c.ModulePath = v
	}
	if v, ok := lookup(EnvPrefix + "MEMORY_LIMIT_PAGES"); ok {
		n, err := cast.ToUint32E(strings.TrimSpace(v))
		if err != nil {
			return errors.Config(EnvPrefix+"MEMORY_LIMIT_PAGES", err)
		}
		c.MemoryLimitPages = n
	}
	if v, ok := lookup(EnvPrefix + "CALLBACK_REPEAT"); ok {
		n, err := cast.ToUint32E(strings.TrimSpace(v))
		if err != nil {
			return errors.Config(EnvPrefix+"CALLBACK_REPEAT", err)
		}
		c.CallbackRepeat = n
	}
	if v, ok := lookup(EnvPrefix + "QUEUE_SIZE"); ok {
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			return errors.Config(EnvPrefix+"QUEUE_SIZE", err)
		}
		c.QueueSize = n
	}
	return nil
}

// Validate checks field ranges and fills empty fields with defaults
func (c *Config) Validate() error {
	switch c.Delegate {
	case "":
		c.Delegate = native.KindWasm
	case native.KindWasm, native.KindGo:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path("delegate").
			Value(c.Delegate).
			Detail("unknown delegate %q, want %q or %q", c.Delegate, native.KindWasm, native.KindGo).
			Build()
	}

	if c.ModulePath != "" && c.Delegate != native.KindWasm {
		return errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path("module_path").
			Detail("module_path requires the %q delegate", native.KindWasm).
			Build()
	}

	if c.QueueSize < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path("queue_size").
			Value(c.QueueSize).
			Detail("must not be negative").
			Build()
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.CallbackRepeat == 0 {
		c.CallbackRepeat = DefaultCallbackRepeat
	}
	return nil
}
