//go:build linux

package udpingress

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// fifoPriority is a conservative real-time priority for the ingress
// goroutine's OS thread: high enough to preempt normal scheduling, low
// enough to leave headroom below any true hard-real-time peer on the box.
const fifoPriority = 10

// TryRealtimeScheduling best-effort raises the calling OS thread to
// SCHED_FIFO. Callers must run this from a goroutine locked to its OS
// thread (runtime.LockOSThread) for the effect to stick. Failure (most
// commonly missing CAP_SYS_NICE) is logged and otherwise ignored, the same
// "log a warning, never fail startup" policy as the CAN_RAW_FD_FRAMES probe.
func TryRealtimeScheduling(logger *slog.Logger) {
	param := &unix.SchedParam{Priority: fifoPriority}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, param); err != nil {
		logger.Warn("udpingress: could not raise to SCHED_FIFO", "err", err)
	}
}
