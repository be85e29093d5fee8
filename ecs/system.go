package ecs

// System represents a behavior that operates on entities with specific components.
// Systems can include Query and Singleton fields, which the Scheduler binds
// on registration, as well as custom state that persists between ticks.
// A returned error aborts the tick: later systems do not run and queued
// commands are discarded.
type System interface {
	Execute(frame *UpdateFrame) error
}

// SystemFunc adapts a plain function to the System interface.
type SystemFunc func(frame *UpdateFrame) error

func (f SystemFunc) Execute(frame *UpdateFrame) error {
	return f(frame)
}
