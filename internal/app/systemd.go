package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"memberwatch/internal/runtime/supervisor"
	logx "memberwatch/pkg/logx"
)

// notifier reports lifecycle to systemd. Outside systemd (no NOTIFY_SOCKET)
// every call is a no-op.
type notifier struct {
	log logx.Logger
}

func newNotifier(log logx.Logger) *notifier { return &notifier{log: log} }

func (n *notifier) send(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify sent", logx.String("state", state))
	}
}

func (n *notifier) ready()    { n.send(daemon.SdNotifyReady) }
func (n *notifier) stopping() { n.send(daemon.SdNotifyStopping) }

// startWatchdog pings WATCHDOG=1 at half the configured interval.
func (n *notifier) startWatchdog(sup *supervisor.Supervisor) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	every := interval / 2
	n.log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
	sup.Go0("systemd.watchdog", func(ctx context.Context) {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n.send(daemon.SdNotifyWatchdog)
			}
		}
	})
}
