package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/pvetools/pvedeploy/internal/cloudinit"
	"github.com/pvetools/pvedeploy/internal/proxmox"
	"github.com/pvetools/pvedeploy/internal/uploader"
)

// mockAPI records every management API call and answers through the
// optional function fields. Unscripted calls succeed.
type mockAPI struct {
	createVMFunc   func(ctx context.Context, spec proxmox.VmSpec) error
	setConfigFunc  func(ctx context.Context, node string, vmid int, options map[string]interface{}) error
	resizeDiskFunc func(ctx context.Context, node string, vmid int, disk string, sizeBytes int64) error
	startVMFunc    func(ctx context.Context, node string, vmid int) error

	created     []proxmox.VmSpec
	configCalls []map[string]interface{}
	resizeCalls []resizeCall
	started     []int
}

type resizeCall struct {
	disk      string
	sizeBytes int64
}

func (m *mockAPI) CreateVM(ctx context.Context, spec proxmox.VmSpec) error {
	m.created = append(m.created, spec)
	if m.createVMFunc != nil {
		return m.createVMFunc(ctx, spec)
	}
	return nil
}

func (m *mockAPI) SetVMConfig(ctx context.Context, node string, vmid int, options map[string]interface{}) error {
	m.configCalls = append(m.configCalls, options)
	if m.setConfigFunc != nil {
		return m.setConfigFunc(ctx, node, vmid, options)
	}
	return nil
}

func (m *mockAPI) ResizeDisk(ctx context.Context, node string, vmid int, disk string, sizeBytes int64) error {
	m.resizeCalls = append(m.resizeCalls, resizeCall{disk: disk, sizeBytes: sizeBytes})
	if m.resizeDiskFunc != nil {
		return m.resizeDiskFunc(ctx, node, vmid, disk, sizeBytes)
	}
	return nil
}

func (m *mockAPI) StartVM(ctx context.Context, node string, vmid int) error {
	m.started = append(m.started, vmid)
	if m.startVMFunc != nil {
		return m.startVMFunc(ctx, node, vmid)
	}
	return nil
}

// mockUploader records upload requests. By default it answers with a
// directory-backend canonical id derived from the request.
type mockUploader struct {
	uploadFunc func(ctx context.Context, req uploader.Request) (string, error)

	requests []uploader.Request
}

func (m *mockUploader) Upload(ctx context.Context, req uploader.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, req)
	}
	return defaultDiskID(req), nil
}

func defaultDiskID(req uploader.Request) string {
	return fmt.Sprintf("%s:%d/vm-%d-%s.%s", req.Storage, req.VMID, req.VMID, req.Label, req.Format)
}

// mockSeeds writes a real temporary file so seed cleanup is testable.
type mockSeeds struct {
	buildFunc func(ctx context.Context, p cloudinit.Params) (string, error)

	builds []cloudinit.Params
	paths  []string
}

func (m *mockSeeds) Build(ctx context.Context, p cloudinit.Params) (string, error) {
	m.builds = append(m.builds, p)
	if m.buildFunc != nil {
		return m.buildFunc(ctx, p)
	}
	f, err := os.CreateTemp("", "seed-test-*.iso")
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	m.paths = append(m.paths, f.Name())
	return f.Name(), nil
}

// removeLeftovers deletes any seed files a failed assertion left behind.
func (m *mockSeeds) removeLeftovers(t *testing.T) {
	t.Helper()
	for _, p := range m.paths {
		_ = os.Remove(p)
	}
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
