package registry

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/glimmrhq/conduct/internal/logger"
)

// Callback is a named function a workflow task can invoke. Params come
// from the task's definition.
type Callback func(ctx context.Context, params map[string]string) (interface{}, error)

// CallbackError wraps a failure reported by a callback
type CallbackError struct {
	Name string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %s failed: %v", e.Name, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// Registry holds named callbacks available to workflow tasks
type Registry struct {
	mu        sync.RWMutex
	callbacks map[string]Callback
}

// New creates a registry pre-loaded with the built-in callbacks
func New() *Registry {
	r := &Registry{callbacks: make(map[string]Callback)}
	r.registerBuiltins()
	return r
}

// Register adds a callback under the given name
func (r *Registry) Register(name string, cb Callback) error {
	if name == "" {
		return fmt.Errorf("callback name cannot be empty")
	}
	if cb == nil {
		return fmt.Errorf("callback cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.callbacks[name]; exists {
		return fmt.Errorf("callback %s already registered", name)
	}
	r.callbacks[name] = cb
	return nil
}

// Get looks up a callback by name
func (r *Registry) Get(name string) (Callback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cb, exists := r.callbacks[name]
	if !exists {
		return nil, fmt.Errorf("callback %s not registered", name)
	}
	return cb, nil
}

// Names returns the registered callback names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named callback; any failure it reports comes back as
// a CallbackError.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]string) (interface{}, error) {
	cb, err := r.Get(name)
	if err != nil {
		return nil, &CallbackError{Name: name, Err: err}
	}

	result, err := cb(ctx, params)
	if err != nil {
		return nil, &CallbackError{Name: name, Err: err}
	}
	return result, nil
}

func (r *Registry) registerBuiltins() {
	r.callbacks["log"] = logCallback
	r.callbacks["http_health"] = httpHealthCallback
}

// logCallback prints its message param; the stand-in for placeholder
// task bodies in workflow definitions.
func logCallback(_ context.Context, params map[string]string) (interface{}, error) {
	msg := params["message"]
	if msg == "" {
		msg = "(no message)"
	}
	logger.User.Info(msg)
	return msg, nil
}

// httpHealthCallback checks that an HTTP endpoint answers 2xx
func httpHealthCallback(ctx context.Context, params map[string]string) (interface{}, error) {
	url := params["url"]
	if url == "" {
		return nil, fmt.Errorf("http_health requires a url param")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
