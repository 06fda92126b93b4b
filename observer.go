package kernel

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// application events. Events use the CloudEvents specification.
type Observer interface {
	// OnEvent is called synchronously for every event the observer
	// subscribed to. Errors are logged and never abort the emitting call.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by the application.
const (
	EventTypeApplicationBooted = "com.kernel.application.booted"
	EventTypeRoutingFallback   = "com.kernel.routing.fallback"
	EventTypeDispatchCompleted = "com.kernel.dispatch.completed"
	EventTypeDispatchFailed    = "com.kernel.dispatch.failed"
)

// FunctionalObserver provides a simple way to create observers using functions.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided function
// to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

type observerRegistration struct {
	observer Observer
	info     ObserverInfo
}

// observers is the registration list shared by the application.
type observers struct {
	mu   sync.RWMutex
	regs []observerRegistration
}

func (o *observers) register(observer Observer, eventTypes ...string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, reg := range o.regs {
		if reg.info.ID == observer.ObserverID() {
			return fmt.Errorf("observer %q already registered", observer.ObserverID())
		}
	}
	o.regs = append(o.regs, observerRegistration{
		observer: observer,
		info: ObserverInfo{
			ID:           observer.ObserverID(),
			EventTypes:   slices.Clone(eventTypes),
			RegisteredAt: time.Now(),
		},
	})
	return nil
}

func (o *observers) unregister(observer Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.regs = slices.DeleteFunc(o.regs, func(reg observerRegistration) bool {
		return reg.info.ID == observer.ObserverID()
	})
}

func (o *observers) infos() []ObserverInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	infos := make([]ObserverInfo, 0, len(o.regs))
	for _, reg := range o.regs {
		infos = append(infos, reg.info)
	}
	return infos
}

func (o *observers) notify(ctx context.Context, event cloudevents.Event, logger Logger) {
	o.mu.RLock()
	regs := slices.Clone(o.regs)
	o.mu.RUnlock()

	for _, reg := range regs {
		if len(reg.info.EventTypes) > 0 && !slices.Contains(reg.info.EventTypes, event.Type()) {
			continue
		}
		if err := reg.observer.OnEvent(ctx, event); err != nil {
			logger.Warn("Observer failed to handle event", "observer", reg.info.ID, "eventType", event.Type(), "error", err)
		}
	}
}
