// Package module defines the probe/renderer/click-action contracts of a bar
// block and the registry that maps a module kind to its implementation.
package module
