package quickinstall

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/quickinstall/config"
	"github.com/aexvir/quickinstall/transfer"
)

const testUA = "cargo-quickinstall/0.3.0 client (alsuren@gmail.com)"

// MockClient is a testify mock implementation of transfer.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Bytes(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockClient) Head(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockClient) Stream(ctx context.Context, url string) (transfer.Stream, error) {
	args := m.Called(ctx, url)
	stream, _ := args.Get(0).(transfer.Stream)
	return stream, args.Error(1)
}

func (m *MockClient) Download(ctx context.Context, url string, w io.Writer) error {
	return m.Called(ctx, url, w).Error(0)
}

func (m *MockClient) Post(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// MockInstaller is a testify mock implementation of Installer
type MockInstaller struct {
	mock.Mock
}

func (m *MockInstaller) Install(ctx context.Context, target Target) (Outcome, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(Outcome), args.Error(1)
}

func (m *MockInstaller) DryRun(ctx context.Context, target Target) (string, error) {
	args := m.Called(ctx, target)
	return args.String(0), args.Error(1)
}

func notfound(url string) error {
	return &transfer.Error{URL: url, StatusCode: 404}
}

// testConfig returns the default configuration installing into root.
func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()

	cfg, err := config.Load("0.3.0", func(key string) (string, bool) {
		if key == "CARGO_INSTALL_ROOT" {
			return root, true
		}
		return "", false
	})
	require.NoError(t, err)
	return cfg
}

// fakeTool puts an executable shell script called name first in PATH.
func fakeTool(t *testing.T, name, script string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}
