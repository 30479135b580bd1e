package workflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glimmrhq/conduct/internal/poll"
)

// Task body types accepted in workflow files
const (
	TypeShell    = "shell"
	TypeJob      = "job"
	TypeCallback = "callback"
)

// Duration wraps time.Duration so workflow files can say "30s" or "5m"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults apply to every task that does not set its own value
type Defaults struct {
	Retries    int       `yaml:"retries"`
	RetryDelay *Duration `yaml:"retry_delay"`
}

// PollDef is the per-task polling configuration for job tasks
type PollDef struct {
	Interval       *Duration `yaml:"interval"`
	MaxWait        *Duration `yaml:"max_wait"`
	RequestTimeout *Duration `yaml:"request_timeout"`
}

// Config resolves the definition to a poll.PollConfig, filling defaults
func (p *PollDef) Config() poll.PollConfig {
	config := poll.DefaultPollConfig()
	if p == nil {
		return config
	}
	if p.Interval != nil {
		config.Interval = p.Interval.Std()
	}
	if p.MaxWait != nil {
		config.MaxWait = p.MaxWait.Std()
	}
	if p.RequestTimeout != nil {
		config.RequestTimeout = p.RequestTimeout.Std()
	}
	return config
}

// TaskDef is one task descriptor in a workflow file
type TaskDef struct {
	ID          string   `yaml:"id"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	DependsOn   []string `yaml:"depends_on"`

	// shell tasks
	Command string    `yaml:"command"`
	Timeout *Duration `yaml:"timeout"`

	// job tasks
	Job  *poll.JobSpec `yaml:"job"`
	Poll *PollDef      `yaml:"poll"`

	// callback tasks
	Callback string            `yaml:"callback"`
	Params   map[string]string `yaml:"params"`

	Retries    *int      `yaml:"retries"`
	RetryDelay *Duration `yaml:"retry_delay"`
}

// Definition is a declarative workflow: tasks wired into a dependency
// graph, each carrying a shell command, an external job, or a callback.
type Definition struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	JobAPI      string    `yaml:"job_api"`
	Defaults    Defaults  `yaml:"defaults"`
	Tasks       []TaskDef `yaml:"tasks"`
}

// Parse decodes and validates a workflow definition
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads and parses a workflow file
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return Parse(data)
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("workflow %s declares no tasks", d.Name)
	}

	seen := make(map[string]bool)
	for i := range d.Tasks {
		task := &d.Tasks[i]
		if task.ID == "" {
			return fmt.Errorf("task %d has no id", i)
		}
		if seen[task.ID] {
			return fmt.Errorf("duplicate task id %s", task.ID)
		}
		seen[task.ID] = true

		switch task.Type {
		case TypeShell:
			if task.Command == "" {
				return fmt.Errorf("shell task %s has no command", task.ID)
			}
		case TypeJob:
			if task.Job == nil {
				return fmt.Errorf("job task %s has no job spec", task.ID)
			}
			if err := task.Poll.Config().Validate(); err != nil {
				return fmt.Errorf("job task %s: %w", task.ID, err)
			}
		case TypeCallback:
			if task.Callback == "" {
				return fmt.Errorf("callback task %s names no callback", task.ID)
			}
		default:
			return fmt.Errorf("task %s has unknown type %q", task.ID, task.Type)
		}

		if task.Retries != nil && *task.Retries < 0 {
			return fmt.Errorf("task %s has negative retries", task.ID)
		}
	}

	// Dangling depends_on entries are caught again at graph construction;
	// checking here gives file-level error messages
	for _, task := range d.Tasks {
		for _, dep := range task.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, dep)
			}
		}
	}

	return nil
}

// retryPolicy resolves a task's retry settings against the defaults.
// A "retries" value counts re-executions: retries=1 means up to two
// attempts in total.
func (d *Definition) retryPolicy(task *TaskDef) (maxAttempts int, delay time.Duration) {
	retries := d.Defaults.Retries
	if task.Retries != nil {
		retries = *task.Retries
	}

	if d.Defaults.RetryDelay != nil {
		delay = d.Defaults.RetryDelay.Std()
	}
	if task.RetryDelay != nil {
		delay = task.RetryDelay.Std()
	}

	return retries + 1, delay
}
