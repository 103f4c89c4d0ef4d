package corepg

import "github.com/caarlos0/env/v11"

// Config holds the runtime tunables that spec.md leaves as
// implementation parameters rather than fixed constants: the Stream
// small-buffer coalescing threshold, the Fiber pool size, the Sink's
// default auto-trim behavior, and its default initial sequence
// number. The zero Config is not usable directly; use NewConfig (or
// DefaultConfig) to get sane defaults.
type Config struct {
	// SmallBufferSize is the inline-buffer coalescing threshold for
	// Stream.Append (see stream.go). Env: COREPG_SMALL_BUFFER_SIZE.
	SmallBufferSize int `env:"COREPG_SMALL_BUFFER_SIZE" envDefault:"128"`

	// FiberPoolSize bounds the number of idle fibers a FiberContext
	// keeps cached for reuse (see fiber.go). Env: COREPG_FIBER_POOL_SIZE.
	FiberPoolSize int `env:"COREPG_FIBER_POOL_SIZE" envDefault:"16"`

	// SinkAutoTrim is the default auto-trim setting for newly created
	// Sinks (see sink.go). Env: COREPG_SINK_AUTO_TRIM.
	SinkAutoTrim bool `env:"COREPG_SINK_AUTO_TRIM" envDefault:"true"`

	// SinkInitialSequence is the default initial sequence number for
	// newly created Sinks. Env: COREPG_SINK_INITIAL_SEQUENCE.
	SinkInitialSequence uint64 `env:"COREPG_SINK_INITIAL_SEQUENCE" envDefault:"0"`
}

// Option configures a Config in NewConfig.
type Option func(*Config)

// WithSmallBufferSize overrides the Stream coalescing threshold.
func WithSmallBufferSize(n int) Option {
	return func(c *Config) { c.SmallBufferSize = n }
}

// WithFiberPoolSize overrides the FiberContext cache size.
func WithFiberPoolSize(n int) Option {
	return func(c *Config) { c.FiberPoolSize = n }
}

// WithSinkAutoTrim overrides the default Sink auto-trim setting.
func WithSinkAutoTrim(enable bool) Option {
	return func(c *Config) { c.SinkAutoTrim = enable }
}

// WithSinkInitialSequence overrides the default Sink initial sequence
// number.
func WithSinkInitialSequence(seq uint64) Option {
	return func(c *Config) { c.SinkInitialSequence = seq }
}

// DefaultConfig returns a Config populated with the library's
// built-in defaults (no environment involved).
func DefaultConfig() Config {
	return Config{
		SmallBufferSize:     smallBufferSize,
		FiberPoolSize:       16,
		SinkAutoTrim:        true,
		SinkInitialSequence: 0,
	}
}

// NewConfig returns DefaultConfig with the given options applied.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// LoadConfigFromEnv reads tunables from the process environment using
// struct tags, falling back to DefaultConfig's values where a variable
// is unset. This is used by cmd/grammardump; the library itself never
// reads the environment.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, newError(KindInvalidArgument, "loading config from environment: %v", err)
	}
	return cfg, nil
}
