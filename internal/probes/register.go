package probes

import "pulsebar/internal/module"

// Register adds every built-in kind to reg.
func Register(reg *module.Registry) {
	reg.MustRegister("date", Date)
	reg.MustRegister("battery", Battery)
	reg.MustRegister("wifi", Wifi)
	reg.MustRegister("volume", Volume)
	reg.MustRegister("quote", Quote)
	reg.MustRegister("current", Current)
	reg.MustRegister("bgchange", BgChange)
	reg.MustRegister("noop", func(module.Options) module.Handler { return module.Noop() })
	reg.MustRegister("sysmetrics", SysMetrics)
	reg.MustRegister("unit", Unit)
	reg.MustRegister("speedtest", SpeedTest)
}

// NewRegistry returns a registry with the built-in kinds.
func NewRegistry() *module.Registry {
	reg := module.NewRegistry()
	Register(reg)
	return reg
}
