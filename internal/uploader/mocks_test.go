package uploader

import (
	"context"
	"io"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/pvetools/pvedeploy/internal/remote"
	"github.com/pvetools/pvedeploy/internal/storage"
)

// mockSession records every command and answers them through respond.
// Commands without a scripted answer succeed silently.
type mockSession struct {
	commands []string

	respond    func(command string) (remote.Result, error)
	uploadFunc func(ctx context.Context, localPath string) (string, error)
}

func (m *mockSession) Execute(_ context.Context, command string) (remote.Result, error) {
	m.commands = append(m.commands, command)
	if m.respond != nil {
		return m.respond(command)
	}
	return remote.Result{}, nil
}

func (m *mockSession) UploadFile(ctx context.Context, localPath string) (string, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, localPath)
	}
	return "/tmp/upload-" + path.Base(localPath), nil
}

// removals returns the rm commands the session saw.
func (m *mockSession) removals() []string {
	var rms []string
	for _, cmd := range m.commands {
		if len(cmd) > 3 && cmd[:3] == "rm " {
			rms = append(rms, cmd)
		}
	}
	return rms
}

type mockBackends struct {
	storageFunc func(ctx context.Context, node, name string) (storage.Backend, error)
}

func (m *mockBackends) Storage(ctx context.Context, node, name string) (storage.Backend, error) {
	if m.storageFunc != nil {
		return m.storageFunc(ctx, node, name)
	}
	return storage.Backend{Name: name, Type: storage.TypeDir}, nil
}

func fixedBackend(b storage.Backend) *mockBackends {
	return &mockBackends{
		storageFunc: func(_ context.Context, _, _ string) (storage.Backend, error) {
			return b, nil
		},
	}
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
