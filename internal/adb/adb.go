package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrDeviceUnreachable marks transport-level failures (no device, offline,
	// unauthorized). Callers match it with errors.Is to abort instead of retrying.
	ErrDeviceUnreachable = errors.New("device unreachable")

	ErrNoAdbBinary = errors.New("adb binary not found")
)

// stderr markers emitted by adb when the transport itself is down
var unreachableMarkers = []string{
	"no devices/emulators found",
	"device offline",
	"device unauthorized",
	"device still authorizing",
	"not found", // error: device '<serial>' not found
}

// DeviceInfo is one row of `adb devices` output.
type DeviceInfo struct {
	Serial string
	State  string
}

// Client shells out to the adb binary. The zero value is not usable; use New.
type Client struct {
	bin    string
	serial string
}

type Option func(*Client)

// WithSerial pins all commands to a specific device (-s flag).
func WithSerial(serial string) Option {
	return func(c *Client) {
		c.serial = serial
	}
}

func New(bin string, opts ...Option) (*Client, error) {
	if bin == "" {
		bin = "adb"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoAdbBinary, bin)
	}
	c := &Client{bin: resolved}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Shell runs a command on the device and returns its stdout. A timeout of 0
// means no per-call deadline beyond the caller's context.
func (c *Client) Shell(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return c.run(ctx, timeout, "shell", command)
}

// Pull copies a remote file to a local path.
func (c *Client) Pull(ctx context.Context, remote, local string) error {
	_, err := c.run(ctx, 0, "pull", remote, local)
	return err
}

// Push copies a local file to a remote path.
func (c *Client) Push(ctx context.Context, local, remote string) error {
	_, err := c.run(ctx, 0, "push", local, remote)
	return err
}

// EnsureDir creates a remote directory (and parents) if missing.
func (c *Client) EnsureDir(ctx context.Context, remote string) error {
	_, err := c.Shell(ctx, fmt.Sprintf("mkdir -p %s", Quote(remote)), 10*time.Second)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", remote, err)
	}
	return nil
}

// Devices parses `adb devices` output into serial/state pairs.
func (c *Client) Devices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := c.run(ctx, 10*time.Second, "devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

func parseDevices(out string) []DeviceInfo {
	var devices []DeviceInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, DeviceInfo{Serial: fields[0], State: fields[1]})
	}
	return devices
}

// Reachable reports whether at least one device (or the pinned serial) is in
// state "device".
func (c *Client) Reachable(ctx context.Context) bool {
	devices, err := c.Devices(ctx)
	if err != nil {
		return false
	}
	for _, d := range devices {
		if d.State != "device" {
			continue
		}
		if c.serial == "" || c.serial == d.Serial {
			return true
		}
	}
	return false
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	full := make([]string, 0, len(args)+2)
	if c.serial != "" {
		full = append(full, "-s", c.serial)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, c.bin, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("adb exec", "args", strings.Join(full, " "))
	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("adb %s: %w", args[0], ctxErr)
		}
		msg := firstLine(stderr.String())
		if msg == "" {
			msg = firstLine(stdout.String())
		}
		if isUnreachable(msg) {
			return "", fmt.Errorf("adb %s: %s: %w", args[0], msg, ErrDeviceUnreachable)
		}
		return "", fmt.Errorf("adb %s: %s: %w", args[0], msg, err)
	}
	return stdout.String(), nil
}

func isUnreachable(stderrLine string) bool {
	lower := strings.ToLower(stderrLine)
	if !strings.Contains(lower, "error:") && !strings.Contains(lower, "adb:") {
		return false
	}
	for _, marker := range unreachableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// Quote wraps s in single quotes for the device shell, escaping embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
