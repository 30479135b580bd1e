package dag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GraphInfo is a serializable view of the graph for rendering or debugging
type GraphInfo struct {
	Tasks []TaskInfo `json:"tasks"`
	Edges []EdgeInfo `json:"edges"`
}

// TaskInfo describes one task for visualization
type TaskInfo struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

// EdgeInfo describes one dependency edge for visualization
type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Info builds a snapshot of the graph structure and task statuses
func (g *Graph) Info() *GraphInfo {
	info := &GraphInfo{}

	for _, id := range g.TaskIDs() {
		task, err := g.Task(id)
		if err != nil {
			continue
		}
		info.Tasks = append(info.Tasks, TaskInfo{
			ID:          id,
			Type:        task.Body().Type(),
			Description: task.Description(),
			Status:      task.Status().String(),
		})
		for _, depID := range g.Dependents(id) {
			info.Edges = append(info.Edges, EdgeInfo{From: id, To: depID})
		}
	}

	return info
}

// ToJSON renders the graph snapshot as indented JSON
func (g *Graph) ToJSON() (string, error) {
	data, err := json.MarshalIndent(g.Info(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal graph info: %w", err)
	}
	return string(data), nil
}

// ToDOT renders the graph in Graphviz DOT format
func (g *Graph) ToDOT(name string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	info := g.Info()
	for _, task := range info.Tasks {
		color := dotColor(task.Status)
		fmt.Fprintf(&b, "  %q [label=\"%s\\n(%s)\"%s];\n", task.ID, task.ID, task.Type, color)
	}
	b.WriteString("\n")
	for _, edge := range info.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", edge.From, edge.To)
	}
	b.WriteString("}\n")

	return b.String()
}

func dotColor(status string) string {
	switch status {
	case "succeeded":
		return ", color=green"
	case "failed":
		return ", color=red"
	case "skipped":
		return ", color=gray"
	case "running":
		return ", color=blue"
	default:
		return ""
	}
}
