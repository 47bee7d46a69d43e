// Package engine runs module probes as detached, cancellable tasks and keeps
// the registry of the ones still in flight.
package engine
