// Package systemd integrates the long-running backup service with systemd
// socket activation, readiness and watchdog notifications.
package systemd

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// Listeners holds systemd-activated listeners
type Listeners struct {
	Metrics   net.Listener
	Activated bool
}

// GetListeners retrieves socket-activated file descriptors. Outside of
// socket activation it returns an empty, non-activated set.
func GetListeners() (*Listeners, error) {
	listeners := &Listeners{}

	fds := activation.Files(false) // false = don't unset env vars
	if len(fds) == 0 {
		return listeners, nil
	}
	listeners.Activated = true

	// Names come from FileDescriptorName= in baralga.socket (systemd 227+)
	named, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}

	if lns, ok := named["metrics"]; ok && len(lns) > 0 {
		listeners.Metrics = lns[0]
		return listeners, nil
	}

	// A single unnamed socket is taken as the metrics socket
	for _, lns := range named {
		for _, ln := range lns {
			if ln != nil {
				listeners.Metrics = ln
				return listeners, nil
			}
		}
	}

	return listeners, nil
}

// NotifyReady sends READY=1 notification to systemd
func NotifyReady() error {
	return notify(daemon.SdNotifyReady)
}

// NotifyStopping sends STOPPING=1 notification to systemd
func NotifyStopping() error {
	return notify(daemon.SdNotifyStopping)
}

// NotifyWatchdog sends WATCHDOG=1 notification to systemd
func NotifyWatchdog() error {
	return notify(daemon.SdNotifyWatchdog)
}

// notify is a no-op when not running under systemd.
func notify(state string) error {
	if _, err := daemon.SdNotify(false, state); err != nil {
		return fmt.Errorf("failed to send sd_notify %s: %w", state, err)
	}
	return nil
}

// RunWatchdog pings the systemd watchdog at half its interval until ctx is
// done. It returns immediately when the watchdog is not enabled.
func RunWatchdog(ctx context.Context, logger zerolog.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not read watchdog settings")
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Watchdog notification failed")
			}
		}
	}
}
