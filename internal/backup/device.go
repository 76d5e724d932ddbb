package backup

import (
	"context"
	"time"
)

// Device is the narrow command channel to the remote device. *adb.Client
// satisfies it; tests substitute fakes.
type Device interface {
	// Shell runs a command on the device and returns its stdout.
	Shell(ctx context.Context, command string, timeout time.Duration) (string, error)
	// Pull copies a remote file to a local path.
	Pull(ctx context.Context, remote, local string) error
	// Push copies a local file to a remote path.
	Push(ctx context.Context, local, remote string) error
	// EnsureDir creates a remote directory and its parents.
	EnsureDir(ctx context.Context, remote string) error
	// Reachable probes whether the device is connected and responsive.
	Reachable(ctx context.Context) bool
}
