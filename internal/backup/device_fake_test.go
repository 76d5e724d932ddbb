package backup

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

type pushCall struct {
	local  string
	remote string
}

// fakeDevice scripts shell output per exact command string and materializes
// pulls as real files so the copy path can stat them.
type fakeDevice struct {
	mu        sync.Mutex
	shellOut  map[string]string
	shellErr  map[string]error
	shellSeen []string
	pullErr   map[string]error
	pullData  map[string]string
	pulled    map[string]string // remote -> local
	pushErr   map[string]error
	pushed    []pushCall
	mkdirs    []string
	reachable bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		shellOut:  map[string]string{},
		shellErr:  map[string]error{},
		pullErr:   map[string]error{},
		pullData:  map[string]string{},
		pulled:    map[string]string{},
		pushErr:   map[string]error{},
		reachable: true,
	}
}

func (f *fakeDevice) Shell(ctx context.Context, command string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shellSeen = append(f.shellSeen, command)
	if err, ok := f.shellErr[command]; ok {
		return "", err
	}
	if out, ok := f.shellOut[command]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unscripted command: %s", command)
}

func (f *fakeDevice) Pull(ctx context.Context, remote, local string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.pullErr[remote]; ok {
		return err
	}
	content, ok := f.pullData[remote]
	if !ok {
		content = "data:" + remote
	}
	// the caller is responsible for the parent directory
	if err := os.WriteFile(local, []byte(content), 0o644); err != nil {
		return err
	}
	f.pulled[remote] = local
	return nil
}

func (f *fakeDevice) Push(ctx context.Context, local, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.pushErr[remote]; ok {
		return err
	}
	f.pushed = append(f.pushed, pushCall{local: local, remote: remote})
	return nil
}

func (f *fakeDevice) EnsureDir(ctx context.Context, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirs = append(f.mkdirs, remote)
	return nil
}

func (f *fakeDevice) Reachable(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}
