package actions

import (
	"context"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Dependency names an external service an action needs at execution time.
// The pre-flight pipeline validates them before an event goes live.
type Dependency string

const (
	DependencyVTTConnection Dependency = "vtt_connection"
	DependencyTwitchChat    Dependency = "twitch_chat"
)

// Handler executes one action type against a live session
type Handler interface {
	Type() entities.ActionType
	Requires() []Dependency
	Execute(ctx context.Context, cfg entities.ActionConfig, instance *entities.GamificationInstance, connectionID string) entities.ResultData
}

// FoundryAware is implemented by handlers that talk to the VTT. The service
// is wired after every handler is built.
type FoundryAware interface {
	SetFoundryService(svc interfaces.FoundryCommandService)
}

// Registry maps action types to their handler. Registration happens at
// startup; afterwards the registry is read-only.
type Registry struct {
	handlers map[entities.ActionType]Handler
	order    []entities.ActionType
}

// NewRegistry creates an empty action registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[entities.ActionType]Handler)}
}

// NewDefaultRegistry creates a registry holding every built-in action handler.
// Call WireFoundry once the VTT bridge exists.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewChatMessageAction())
	r.Register(NewStatModifyAction())
	r.Register(NewDiceInvertAction())
	r.Register(NewSpellAction(entities.ActionTypeSpellBuff))
	r.Register(NewSpellAction(entities.ActionTypeSpellDebuff))
	r.Register(NewSpellAction(entities.ActionTypeSpellDisable))
	r.Register(NewMonsterAction(entities.ActionTypeMonsterBuff))
	r.Register(NewMonsterAction(entities.ActionTypeMonsterDebuff))
	r.Register(NewCustomAction())
	return r
}

// Register adds a handler; a duplicate type is ignored with a warning
func (r *Registry) Register(h Handler) bool {
	if _, exists := r.handlers[h.Type()]; exists {
		log.WithField("action_type", h.Type()).Warn("Action handler already registered, ignoring duplicate")
		return false
	}
	r.handlers[h.Type()] = h
	r.order = append(r.order, h.Type())
	return true
}

func (r *Registry) Get(t entities.ActionType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

func (r *Registry) Has(t entities.ActionType) bool {
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

// WireFoundry injects the VTT command service into every handler that needs it
func (r *Registry) WireFoundry(svc interfaces.FoundryCommandService) {
	wired := 0
	for _, h := range r.All() {
		if aware, ok := h.(FoundryAware); ok {
			aware.SetFoundryService(svc)
			wired++
		}
	}
	log.WithField("handlers", wired).Debug("Wired Foundry command service into action handlers")
}

// Requires returns the dependencies of an action type, nil if it is unknown
func (r *Registry) Requires(t entities.ActionType) []Dependency {
	h, ok := r.handlers[t]
	if !ok {
		return nil
	}
	return h.Requires()
}
