package probes

import (
	"context"
	"fmt"
	"time"

	"pulsebar/internal/module"
)

func Date(module.Options) module.Handler {
	return module.Handler{
		Probe: func(context.Context) (module.Fields, error) {
			return dateFields(time.Now()), nil
		},
		Render: renderDate,
	}
}

func dateFields(t time.Time) module.Fields {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return module.Fields{
		"weekday": t.Format("Mon"),
		"day":     fmt.Sprint(t.Day()),
		"month":   t.Format("Jan"),
		"hour":    fmt.Sprintf("%02d", hour),
		"minutes": fmt.Sprintf("%02d", t.Minute()),
		"seconds": fmt.Sprintf("%02d", t.Second()),
	}
}

func renderDate(f module.Fields) string {
	return fmt.Sprintf("%s %s %s %s:%s %s",
		f["weekday"], f["month"], f["day"], f["hour"], f["minutes"], f["seconds"])
}
