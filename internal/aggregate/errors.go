package aggregate

import "fmt"

// InvariantError indicates post-aggregation counts violating conservation or
// the successes<=trials bound. It points at an upstream encoding bug and is
// never retried.
type InvariantError struct {
	Detail string
	Cell   *Cell
}

func (e *InvariantError) Error() string {
	if e.Cell != nil {
		return fmt.Sprintf("aggregate: invariant violated: %s (promotion=%s channel=%s trials=%d successes=%d)",
			e.Detail, e.Cell.Promotion, e.Cell.Channel, e.Cell.Trials, e.Cell.Successes)
	}
	return fmt.Sprintf("aggregate: invariant violated: %s", e.Detail)
}
