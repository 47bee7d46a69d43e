package app

// StopReason records why the bar is shutting down.
type StopReason string

const (
	StopUnknown     StopReason = "unknown"
	StopSIGINT      StopReason = "sigint"
	StopSIGTERM     StopReason = "sigterm"
	StopFatalError  StopReason = "fatal_error"
	StopInputClosed StopReason = "input_closed"
)
