// Package scheduler drives the bar: every tick it decides, per module,
// whether to launch a probe, harvest a finished one, or time out a stuck one,
// and renders the blocks in configured order.
//
// Probes run detached in the task engine; a tick never waits for them.
package scheduler
