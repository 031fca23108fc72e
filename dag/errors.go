package dag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/parbuild/errors"
)

// CycleError reports the actions that lie on a dependency cycle, or on a path
// between two cycles. Actions that merely depend on a cycle are not listed.
type CycleError struct {
	Nodes []ActionID
}

func newCycleError(nodes []ActionID) *CycleError {
	sorted := slices.Clone(nodes)
	slices.Sort(sorted)
	return &CycleError{Nodes: sorted}
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Nodes))
	for i, n := range e.Nodes {
		ids[i] = string(n)
	}
	return fmt.Sprintf("dag: dependency cycle among actions [%s]", strings.Join(ids, " "))
}

// ErrorCode implements errors.Coded.
func (e *CycleError) ErrorCode() errors.ErrorCode { return errors.ErrCodeCycleDetected }
