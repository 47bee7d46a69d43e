package app

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "pulsebar/pkg/logx"
)

// sdNotifier speaks the sd_notify protocol. Outside systemd every call is a
// no-op.
type sdNotifier struct {
	log      logx.Logger
	watchdog time.Duration
	last     time.Time
}

func newSDNotifier(log logx.Logger) *sdNotifier {
	n := &sdNotifier{log: log}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.watchdog = d
	}
	return n
}

func (n *sdNotifier) send(state string) {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if ok {
		n.log.Debug("sd_notify", logx.String("state", state))
	}
}

func (n *sdNotifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *sdNotifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Heartbeat pings the watchdog at half its interval. Called every tick.
func (n *sdNotifier) Heartbeat() {
	if n.watchdog <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(n.last) < n.watchdog/2 {
		return
	}
	n.last = now
	_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
}
