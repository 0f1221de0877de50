//go:build !linux

package udpingress

import "log/slog"

// TryRealtimeScheduling is a no-op off Linux: SCHED_FIFO has no portable
// equivalent, so non-Linux builds simply run at the default scheduling
// class.
func TryRealtimeScheduling(logger *slog.Logger) {
	logger.Debug("udpingress: SCHED_FIFO unavailable on this platform")
}
