package tracking

import (
	"errors"
	"sort"
	"sync"
)

// ErrAlreadyTracking is returned when an order already has an active task.
var ErrAlreadyTracking = errors.New("tracking: order is already being tracked")

// Registry holds the active tasks keyed by order id. Only atomic operations
// are exposed; the map itself never leaves the type.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Insert adds t unless its order id is already present.
func (r *Registry) Insert(t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.OrderID]; exists {
		return ErrAlreadyTracking
	}
	r.tasks[t.OrderID] = t
	return nil
}

// Remove deletes the task for orderID and returns it.
func (r *Registry) Remove(orderID string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[orderID]
	if ok {
		delete(r.tasks, orderID)
	}
	return t, ok
}

// RemoveTask deletes t only if it is still the registered task for its order.
func (r *Registry) RemoveTask(t *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks[t.OrderID] != t {
		return false
	}
	delete(r.tasks, t.OrderID)
	return true
}

// Get returns the active task for orderID.
func (r *Registry) Get(orderID string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[orderID]
	return t, ok
}

// Holds reports whether t is the registered task for its order.
func (r *Registry) Holds(t *Task) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks[t.OrderID] == t
}

// OrderIDs returns a sorted snapshot of active order ids.
func (r *Registry) OrderIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Snapshot returns the active tasks ordered by order id.
func (r *Registry) Snapshot() []*Task {
	r.mu.RLock()
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].OrderID < tasks[j].OrderID })
	return tasks
}

// Len returns the number of active tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
