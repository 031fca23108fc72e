// Package resilience retries operations that fail transiently.
//
// parbuild's scheduler never retries: the first failure of a run wins. Retry
// belongs to collaborators such as process.Runner, which may re-invoke a tool
// whose failure is marked retryable before reporting the action as failed.
//
//	out, err := resilience.Retry(ctx, cfg, func(attempt int) (string, error) {
//	    return runTool(ctx)
//	})
package resilience
