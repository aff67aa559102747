package vm

import "github.com/sirupsen/logrus"

// Limits bounds the depth of the VM's internal stacks, guarding
// against runaway recursion in untrusted modules.
type Limits struct {
	MaxOperandStack int
	MaxFrames       int
}

// DefaultLimits matches the teacher's original fixed StackSize/MaxFrames
// constants, now expressed as configurable defaults.
var DefaultLimits = Limits{
	MaxOperandStack: 1 << 16,
	MaxFrames:       1 << 12,
}

// Config configures a VM instance.
type Config struct {
	GasPolicy GasPolicy
	GasLimit  uint64
	Limits    Limits
	Logger    logrus.FieldLogger
}

// Option mutates a Config; NewFromBytes/NewFromFile/NewFromModule take
// a variadic list of Options instead of a wide constructor.
type Option func(*Config)

// WithGasPolicy sets the gas accounting policy and its limit.
func WithGasPolicy(policy GasPolicy, limit uint64) Option {
	return func(c *Config) {
		c.GasPolicy = policy
		c.GasLimit = limit
	}
}

// WithLimits overrides the default stack/frame depth limits.
func WithLimits(l Limits) Option {
	return func(c *Config) { c.Limits = l }
}

// WithLogger installs a structured logger; by default the VM logs
// nothing, since decode/validate/link errors are returned rather than
// logged and only execution-level diagnostics are ever worth a line.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		GasPolicy: &FreeGasPolicy{},
		Limits:    DefaultLimits,
		Logger:    discardLogger(),
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
