package process

import (
	"context"
	"time"

	"github.com/kbukum/parbuild/logger"
	"github.com/kbukum/parbuild/resilience"
)

// Config configures a Runner.
type Config struct {
	// GracePeriod is the default grace period for SIGTERM→SIGKILL.
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`
	// Timeout bounds each attempt. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// Retry controls re-running a failed tool. Only retryable failures
	// (a non-zero exit) are retried; MaxAttempts 0 or 1 disables retries.
	Retry resilience.RetryConfig `mapstructure:"retry"`
}

// Runner runs build tools with per-attempt timeouts and retries.
type Runner struct {
	cfg Config
	log *logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Retry.RetryIf == nil {
		cfg.Retry.RetryIf = resilience.RetryableOnly
	}
	r := &Runner{cfg: cfg, log: logger.Get("process")}
	if cfg.Retry.OnRetry == nil {
		r.cfg.Retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			r.log.Warn("tool failed, retrying", logger.MergeWithError(logger.Fields(
				"attempt", attempt,
				"backoff", backoff.String(),
			), err))
		}
	}
	return r
}

// Run executes cmd, retrying retryable failures. The returned Result is from
// the last attempt.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 && r.cfg.GracePeriod > 0 {
		cmd.GracePeriod = r.cfg.GracePeriod
	}

	var last *Result
	res, err := resilience.Retry(ctx, r.cfg.Retry, func(attempt int) (*Result, error) {
		actx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		res, err := Run(actx, cmd)
		if res != nil {
			res.Attempts = attempt
			last = res
		}
		return res, err
	})
	if err != nil {
		return last, err
	}
	return res, nil
}
