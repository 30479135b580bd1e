package dag

import (
	"fmt"
	"sort"
	"sync"
)

// Graph holds tasks and their dependency edges. It is built once before
// execution and read-only while an executor walks it.
type Graph struct {
	mu         sync.RWMutex
	tasks      map[string]*Task
	dependents map[string][]string // predecessor -> successors
	deps       map[string][]string // successor -> predecessors
}

// NewGraph creates an empty Graph
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[string]*Task),
		dependents: make(map[string][]string),
		deps:       make(map[string][]string),
	}
}

// AddTask adds a task to the graph
func (g *Graph) AddTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if task.ID() == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.tasks[task.ID()]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID())
	}
	g.tasks[task.ID()] = task
	return nil
}

// AddDependency declares that toID runs only after fromID has succeeded.
func (g *Graph) AddDependency(fromID, toID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.tasks[fromID]; !exists {
		return &UnknownTaskError{TaskID: fromID}
	}
	if _, exists := g.tasks[toID]; !exists {
		return &UnknownTaskError{TaskID: toID}
	}
	if fromID == toID {
		return fmt.Errorf("task %s cannot depend on itself", fromID)
	}

	for _, existing := range g.dependents[fromID] {
		if existing == toID {
			return nil // edge already present
		}
	}

	g.dependents[fromID] = append(g.dependents[fromID], toID)
	g.deps[toID] = append(g.deps[toID], fromID)
	return nil
}

// Task retrieves a task by its ID
func (g *Graph) Task(id string) (*Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	task, exists := g.tasks[id]
	if !exists {
		return nil, &UnknownTaskError{TaskID: id}
	}
	return task, nil
}

// TaskIDs returns all task IDs in the graph, sorted for determinism
func (g *Graph) TaskIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependencies returns the predecessors of the given task
func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns the successors of the given task
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.dependents[id]...)
}

// Roots returns all tasks with no predecessors
func (g *Graph) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []string
	for id := range g.tasks {
		if len(g.deps[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Size returns the number of tasks in the graph
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// Ready reports whether the task is pending and every predecessor has
// succeeded.
func (g *Graph) Ready(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	task, exists := g.tasks[id]
	if !exists || task.Status() != StatusPending {
		return false
	}
	for _, depID := range g.deps[id] {
		if g.tasks[depID].Status() != StatusSucceeded {
			return false
		}
	}
	return true
}

// Unreachable reports whether the task can never run because a
// predecessor terminally failed or was skipped.
func (g *Graph) Unreachable(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, depID := range g.deps[id] {
		status := g.tasks[depID].Status()
		if status == StatusFailed || status == StatusSkipped {
			return true
		}
	}
	return false
}

// Validate checks the graph for cycles. It must pass before execution;
// a failure here means no task runs at all.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	// Iterate in sorted order so the reported cycle is deterministic
	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] {
			if path := g.findCycle(id, visited, onStack, nil); path != nil {
				return &CycleError{Path: path}
			}
		}
	}
	return nil
}

// findCycle performs DFS and returns the offending path when a back edge
// is found.
func (g *Graph) findCycle(id string, visited, onStack map[string]bool, path []string) []string {
	visited[id] = true
	onStack[id] = true
	path = append(path, id)

	for _, succ := range g.dependents[id] {
		if !visited[succ] {
			if cycle := g.findCycle(succ, visited, onStack, path); cycle != nil {
				return cycle
			}
		} else if onStack[succ] {
			return append(path, succ)
		}
	}

	onStack[id] = false
	return nil
}
