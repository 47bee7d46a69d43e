// Package logx configures pulsebar's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable and on stderr (stdout carries the bar protocol)
//   - File output JSON-structured and rotated by lumberjack
package logx
