// Package probes holds the built-in module kinds: their probes, renderers
// and click actions. Register wires them into a module.Registry.
package probes
