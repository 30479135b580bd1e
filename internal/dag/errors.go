package dag

import (
	"fmt"
	"strings"
)

// CycleError is returned by Graph.Validate when the edge set contains a
// cycle. No task executes when construction-time validation fails.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "graph contains a cycle"
	}
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(e.Path, " -> "))
}

// UnknownTaskError is returned when an edge references a task that was
// never added to the graph.
type UnknownTaskError struct {
	TaskID string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q referenced in dependency", e.TaskID)
}
