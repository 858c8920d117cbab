package triggers

import (
	"tumulte/domain/entities"

	log "github.com/sirupsen/logrus"
)

// Handler evaluates whether input data fires a trigger of its type
type Handler interface {
	Type() entities.TriggerType
	Evaluate(cfg entities.TriggerConfig, data any) entities.TriggerEvaluationResult
}

// Registry maps trigger types to their handler. It is populated once at
// startup and only read afterwards, so lookups need no locking.
type Registry struct {
	handlers map[entities.TriggerType]Handler
	order    []entities.TriggerType
}

// NewRegistry creates an empty trigger registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[entities.TriggerType]Handler)}
}

// NewDefaultRegistry creates a registry holding every built-in trigger handler
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewManualTrigger())
	r.Register(NewDiceCriticalTrigger())
	r.Register(NewCustomTrigger())
	return r
}

// Register adds a handler. The first handler registered for a type wins;
// later ones are ignored with a warning. Returns true if h was added.
func (r *Registry) Register(h Handler) bool {
	if _, exists := r.handlers[h.Type()]; exists {
		log.WithField("trigger_type", h.Type()).Warn("Trigger handler already registered, ignoring duplicate")
		return false
	}
	r.handlers[h.Type()] = h
	r.order = append(r.order, h.Type())
	return true
}

// Get returns the handler registered for t
func (r *Registry) Get(t entities.TriggerType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Has returns true if a handler is registered for t
func (r *Registry) Has(t entities.TriggerType) bool {
	_, ok := r.handlers[t]
	return ok
}

// All returns the registered handlers in registration order
func (r *Registry) All() []Handler {
	all := make([]Handler, 0, len(r.order))
	for _, t := range r.order {
		all = append(all, r.handlers[t])
	}
	return all
}
