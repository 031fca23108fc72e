package scheduler

import (
	"runtime"
	"time"

	"github.com/kbukum/parbuild/validation"
)

// Interrupt policies.
const (
	// InterruptDrain waits for in-flight actions, like a failure does.
	InterruptDrain = "drain"
	// InterruptImmediate returns from Run as soon as the interrupt is seen.
	InterruptImmediate = "immediate"
)

// DefaultDrainTimeout bounds how long an aborted run waits for in-flight work.
const DefaultDrainTimeout = 5 * time.Second

// Config configures a Scheduler.
type Config struct {
	// Parallelism is the number of workers; 0 means runtime.NumCPU().
	Parallelism int `mapstructure:"parallelism" validate:"min=0"`
	// InterruptPolicy is "drain" or "immediate".
	InterruptPolicy string `mapstructure:"interrupt_policy" validate:"omitempty,oneof=drain immediate"`
	// DrainTimeout bounds the wait for in-flight actions after an abort.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" validate:"gte=0"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Parallelism == 0 {
		c.Parallelism = runtime.NumCPU()
	}
	if c.InterruptPolicy == "" {
		c.InterruptPolicy = InterruptDrain
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
