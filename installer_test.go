package quickinstall

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/quickinstall/config"
	"github.com/aexvir/quickinstall/transfer"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestDirect_DryRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "/tmp/mock-cargo-root")

	ripgrep := Target{Crate: "ripgrep", Version: "13.0.0", Triple: "x86_64-unknown-linux-gnu"}
	missing := Target{Crate: "nonexisting_crate_12345", Version: "99", Triple: "unknown"}

	urls := func(target Target) []string {
		candidates, err := Candidates(cfg.ArtifactTemplates, target)
		require.NoError(t, err)
		return candidates
	}

	t.Run("published artifact", func(t *testing.T) {
		client := new(MockClient)
		client.On("Head", ctx, urls(ripgrep)[0]).Return(nil)

		script, err := NewDirect(cfg, client, io.Discard, true, false).DryRun(ctx, ripgrep)
		require.NoError(t, err)
		assert.Equal(t,
			"curl --user-agent 'cargo-quickinstall/0.3.0 client (alsuren@gmail.com)' --location --silent --show-error --fail "+
				"'https://github.com/cargo-bins/cargo-quickinstall/releases/download/ripgrep-13.0.0/ripgrep-13.0.0-x86_64-unknown-linux-gnu.tar.gz'"+
				" | tar -xzvvf - -C /tmp/mock-cargo-root/bin",
			script,
		)
		client.AssertExpectations(t)
	})

	t.Run("artifact published in the legacy location", func(t *testing.T) {
		client := new(MockClient)
		client.On("Head", ctx, urls(ripgrep)[0]).Return(notfound(urls(ripgrep)[0]))
		client.On("Head", ctx, urls(ripgrep)[1]).Return(nil)

		script, err := NewDirect(cfg, client, io.Discard, true, false).DryRun(ctx, ripgrep)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(script, "curl "))
		assert.Contains(t, script, "'"+urls(ripgrep)[1]+"' | tar -xzvvf - -C /tmp/mock-cargo-root/bin")
	})

	t.Run("no artifact falls back to cargo install", func(t *testing.T) {
		client := new(MockClient)
		for _, url := range urls(missing) {
			client.On("Head", ctx, url).Return(notfound(url))
		}

		script, err := NewDirect(cfg, client, io.Discard, true, false).DryRun(ctx, missing)
		require.NoError(t, err)
		assert.Equal(t, "cargo install nonexisting_crate_12345 --version 99", script)
	})

	t.Run("forced fallback", func(t *testing.T) {
		client := new(MockClient)
		for _, url := range urls(missing) {
			client.On("Head", ctx, url).Return(notfound(url))
		}

		script, err := NewDirect(cfg, client, io.Discard, true, true).DryRun(ctx, missing)
		require.NoError(t, err)
		assert.Equal(t, "cargo install nonexisting_crate_12345 --version 99 --force", script)
	})

	t.Run("no artifact and fallback disabled", func(t *testing.T) {
		client := new(MockClient)
		for _, url := range urls(missing) {
			client.On("Head", ctx, url).Return(notfound(url))
		}

		_, err := NewDirect(cfg, client, io.Discard, false, false).DryRun(ctx, missing)

		var nofallback *NoFallbackError
		require.ErrorAs(t, err, &nofallback)
		assert.Equal(t, missing, nofallback.Target)
	})

	t.Run("other failures on the legacy location are surfaced", func(t *testing.T) {
		client := new(MockClient)
		client.On("Head", ctx, urls(ripgrep)[0]).Return(notfound(urls(ripgrep)[0]))
		client.On("Head", ctx, urls(ripgrep)[1]).Return(&transfer.Error{URL: urls(ripgrep)[1], StatusCode: 500})

		_, err := NewDirect(cfg, client, io.Discard, true, false).DryRun(ctx, ripgrep)

		var terr *transfer.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, 500, terr.StatusCode)
	})

	t.Run("other failures on the primary location stop right away", func(t *testing.T) {
		client := new(MockClient)
		client.On("Head", ctx, urls(ripgrep)[0]).Return(&transfer.Error{URL: urls(ripgrep)[0], StatusCode: 503})

		_, err := NewDirect(cfg, client, io.Discard, true, false).DryRun(ctx, ripgrep)
		require.Error(t, err)
		assert.False(t, transfer.IsNotFound(err))
		client.AssertNotCalled(t, "Head", ctx, urls(ripgrep)[1])
	})
}

// artifacts serves tarballs by path, answers 404 for everything else and
// responds with status for the paths in failing.
func artifacts(t *testing.T, files map[string][]byte, failing map[string]int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := failing[r.URL.Path]; ok {
			w.WriteHeader(status)
			return
		}
		if data, ok := files[r.URL.Path]; ok {
			_, _ = w.Write(data)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	return server
}

func artifactConfig(t *testing.T, server *httptest.Server) *config.Config {
	t.Helper()

	cfg := testConfig(t, t.TempDir())
	cfg.ArtifactTemplates = []string{
		server.URL + "/current/{{.Name}}-{{.Version}}-{{.Target}}.tar.gz",
		server.URL + "/legacy/{{.Name}}-{{.Version}}-{{.Target}}.tar.gz",
	}
	return cfg
}

func TestDirect_Install(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	ctx := context.Background()
	client := transfer.NewHTTP(testUA).WithoutProgress()
	target := Target{Crate: "ripgrep", Version: "13.0.0", Triple: "x86_64-unknown-linux-gnu"}
	artifact := tarball(t, map[string]string{"rg": "ripgrep binary"})

	// cargo records its arguments in a file, so tests can tell whether it ran
	fakecargo := func(t *testing.T, exit int) string {
		marker := filepath.Join(t.TempDir(), "cargo-args")
		fakeTool(t, "cargo", fmt.Sprintf(`echo "$@" > '%s'; exit %d`, marker, exit))
		return marker
	}

	t.Run("current location", func(t *testing.T) {
		server := artifacts(t, map[string][]byte{"/current/ripgrep-13.0.0-x86_64-unknown-linux-gnu.tar.gz": artifact}, nil)
		cfg := artifactConfig(t, server)

		var out bytes.Buffer
		outcome, err := NewDirect(cfg, client, &out, true, false).Install(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, InstalledFromArtifact, outcome)
		assert.Contains(t, out.String(), fmt.Sprintf("Installed ripgrep@13.0.0 to %s:\n", cfg.BinDir))
		assert.NotContains(t, out.String(), "Fallback to old release schema")

		content, err := os.ReadFile(filepath.Join(cfg.BinDir, "rg"))
		require.NoError(t, err)
		assert.Equal(t, "ripgrep binary", string(content))
	})

	t.Run("legacy location", func(t *testing.T) {
		server := artifacts(t, map[string][]byte{"/legacy/ripgrep-13.0.0-x86_64-unknown-linux-gnu.tar.gz": artifact}, nil)
		cfg := artifactConfig(t, server)

		var out bytes.Buffer
		outcome, err := NewDirect(cfg, client, &out, true, false).Install(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, InstalledFromArtifact, outcome)
		assert.Contains(t, out.String(), "Fallback to old release schema")
		assert.FileExists(t, filepath.Join(cfg.BinDir, "rg"))
	})

	t.Run("installing twice leaves the same files", func(t *testing.T) {
		server := artifacts(t, map[string][]byte{"/current/ripgrep-13.0.0-x86_64-unknown-linux-gnu.tar.gz": artifact}, nil)
		cfg := artifactConfig(t, server)
		installer := NewDirect(cfg, client, io.Discard, true, false)

		listing := func() map[string]string {
			entries, err := os.ReadDir(cfg.BinDir)
			require.NoError(t, err)

			files := make(map[string]string, len(entries))
			for _, entry := range entries {
				content, err := os.ReadFile(filepath.Join(cfg.BinDir, entry.Name()))
				require.NoError(t, err)
				files[entry.Name()] = string(content)
			}
			return files
		}

		_, err := installer.Install(ctx, target)
		require.NoError(t, err)
		first := listing()

		_, err = installer.Install(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, first, listing())
		assert.Equal(t, map[string]string{"rg": "ripgrep binary"}, first)
	})

	t.Run("server error on the legacy location is not a missing artifact", func(t *testing.T) {
		marker := fakecargo(t, 0)
		server := artifacts(t, nil, map[string]int{"/legacy/ripgrep-13.0.0-x86_64-unknown-linux-gnu.tar.gz": 500})
		cfg := artifactConfig(t, server)

		_, err := NewDirect(cfg, client, io.Discard, true, false).Install(ctx, target)
		require.Error(t, err)

		var terr *transfer.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, 500, terr.StatusCode)
		assert.NoFileExists(t, marker)
	})

	t.Run("builds from source when nothing is published", func(t *testing.T) {
		marker := fakecargo(t, 0)
		server := artifacts(t, nil, nil)
		cfg := artifactConfig(t, server)

		var out bytes.Buffer
		outcome, err := NewDirect(cfg, client, &out, true, false).Install(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, BuiltFromSource, outcome)
		assert.Contains(t, out.String(), "Could not find a pre-built package for ripgrep 13.0.0 on x86_64-unknown-linux-gnu.\n")
		assert.Contains(t, out.String(), "We have reported your installation request, so it should be built soon.\n")
		assert.Contains(t, out.String(), "Falling back to `cargo install`.\n")

		args, err := os.ReadFile(marker)
		require.NoError(t, err)
		assert.Equal(t, "install ripgrep --version 13.0.0\n", string(args))
	})

	t.Run("failed build", func(t *testing.T) {
		fakecargo(t, 101)
		server := artifacts(t, nil, nil)
		cfg := artifactConfig(t, server)

		_, err := NewDirect(cfg, client, io.Discard, true, false).Install(ctx, target)
		assert.ErrorIs(t, err, ErrBuildFailed)
	})

	t.Run("nothing published and fallback disabled", func(t *testing.T) {
		marker := fakecargo(t, 0)
		server := artifacts(t, nil, nil)
		cfg := artifactConfig(t, server)

		_, err := NewDirect(cfg, client, io.Discard, false, false).Install(ctx, target)

		var nofallback *NoFallbackError
		require.ErrorAs(t, err, &nofallback)
		assert.NoFileExists(t, marker)
	})
}

func TestFirstAvailable(t *testing.T) {
	ctx := context.Background()

	t.Run("no candidates counts as missing", func(t *testing.T) {
		_, err := firstAvailable(ctx, nil, func(string) error { return nil }, nil)
		assert.True(t, transfer.IsNotFound(err))
	})

	t.Run("misses are reported between candidates only", func(t *testing.T) {
		var missed []string
		_, err := firstAvailable(ctx,
			[]string{"a", "b"},
			func(url string) error { return notfound(url) },
			func(url string) { missed = append(missed, url) },
		)
		assert.True(t, transfer.IsNotFound(err))
		assert.Equal(t, []string{"a"}, missed)
	})
}
