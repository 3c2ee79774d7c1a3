// Package events provides the state-change fan-out used by the task
// lifecycle controller.
//
// The controller publishes a StateEvent for every observable transition of a
// generation run. Listeners register an EventHandler with an emitter and
// receive events in order. The HTTP session registry, the CLI progress
// printer, and the history recorder are all listeners; none of them know
// about each other.
//
// The primary components are:
// - StateEvent: one observable transition of a run
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
