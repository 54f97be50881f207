// Package systemd integrates with the service manager when present.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// NotifyReady tells the service manager startup is complete. Outside
// of systemd this is a silent no-op.
func NotifyReady(logger zerolog.Logger) {
	notify(logger, daemon.SdNotifyReady)
}

// NotifyStopping tells the service manager shutdown has begun.
func NotifyStopping(logger zerolog.Logger) {
	notify(logger, daemon.SdNotifyStopping)
}

func notify(logger zerolog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		logger.Debug().Str("state", state).Msg("sd_notify sent")
	}
}
