//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/episodesync/testutil"
)

var (
	binaryPath string
	moduleRoot string
)

func TestMain(m *testing.M) {
	moduleRoot = testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(moduleRoot, ".env"))

	tmpDir, err := os.MkdirTemp("", "episodesync-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "episodesync")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// env is one isolated installation: its own home, config and data dirs.
type env struct {
	home    string
	cfgPath string
	vars    []string
}

// newEnv creates an installation configured by localConfig.
func newEnv(t *testing.T) *env {
	t.Helper()

	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(localConfig(home)), 0o600))

	return &env{
		home:    home,
		cfgPath: cfgPath,
		vars: []string{
			"HOME=" + home,
			"PATH=" + os.Getenv("PATH"),
			"EPISODESYNC_CONFIG=" + cfgPath,
		},
	}
}

func (e *env) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	cmd.Env = e.vars

	return cmd
}

func (e *env) run(t *testing.T, args ...string) (string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := e.command(context.Background(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("CLI command %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout.String(), stderr.String())
	}

	return stdout.String(), stderr.String()
}

func localConfig(home string) string {
	return fmt.Sprintf(`
[catalog]
db_path = %q

[notify]
stamp_file = %q
`, filepath.Join(home, "data", "catalog.db"), filepath.Join(home, "data", "refresh.stamp"))
}

// fixture returns an import document for one season with the given show id.
// Episodes 1-3 aired last month, episode 4 airs next year.
func fixture(t *testing.T, dir, showID string) string {
	t.Helper()

	now := time.Now().UTC()
	aired := now.AddDate(0, -1, 0).Format(time.RFC3339)
	future := now.AddDate(1, 0, 0).Format(time.RFC3339)

	doc := fmt.Sprintf(`{"shows":[{"id":%s,"title":"E2E","seasons":[{"id":900001,"number":1,"episodes":[
		{"id":900101,"number":1,"released":%q},
		{"id":900102,"number":2,"released":%q},
		{"id":900103,"number":3,"released":%q},
		{"id":900104,"number":4,"released":%q}
	]}]}]}`, showID, aired, aired, aired, future)

	path := filepath.Join(dir, "season.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	return path
}

func TestE2E_SeasonRoundTrip(t *testing.T) {
	e := newEnv(t)

	e.run(t, "import", fixture(t, e.home, "81189"))

	t.Run("mark_watched", func(t *testing.T) {
		stdout, _ := e.run(t, "season", "mark", "--show", "81189", "--season", "1", "--flag", "watched", "--no-remote", "--json")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, "done", out["state"])
		assert.Equal(t, []any{1.0, 2.0, 3.0}, out["changed"])
		assert.Equal(t, "episode 900103", out["last_watched"])
	})

	// stdout is a pipe here, so output is JSON without --json.
	t.Run("show", func(t *testing.T) {
		stdout, _ := e.run(t, "season", "show", "--show", "81189", "--season", "1")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.InDelta(t, 900103, out["last_watched_id"], 0)
	})

	t.Run("reset", func(t *testing.T) {
		stdout, _ := e.run(t, "season", "mark", "--show", "81189", "--season", "1", "--flag", "unwatched", "--no-remote")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, "Season 1 set as not watched", out["confirmation"])
		assert.Equal(t, "none", out["last_watched"])
	})

	t.Run("runs", func(t *testing.T) {
		stdout, _ := e.run(t, "runs", "--json")

		var runs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
		assert.Len(t, runs, 2)
	})
}

func TestE2E_WatchRefreshSeesOtherProcess(t *testing.T) {
	e := newEnv(t)

	e.run(t, "import", fixture(t, e.home, "81189"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	watcher := e.command(ctx, "watch-refresh", "--json")
	stdout, err := watcher.StdoutPipe()
	require.NoError(t, err)

	var stderr bytes.Buffer
	watcher.Stderr = &stderr

	require.NoError(t, watcher.Start())
	t.Cleanup(func() {
		_ = watcher.Process.Kill()
		_ = watcher.Wait()
	})

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(stdout)
		if sc.Scan() {
			lines <- sc.Text()
		}
	}()

	// Marks until the watcher, which starts asynchronously, reports one.
	deadline := time.After(20 * time.Second)
	flags := []string{"watched", "unwatched"}

	for i := 0; ; i++ {
		e.run(t, "season", "mark", "--show", "81189", "--season", "1", "--flag", flags[i%2], "--no-remote", "-q")

		select {
		case line := <-lines:
			var ev map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &ev))
			assert.Equal(t, "data-changed", ev["type"])

			return
		case <-time.After(500 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no refresh event; watcher stderr:\n%s", stderr.String())
		}
	}
}

// TestE2E_TraktLive marks a season watched and back to unwatched on a real
// trakt.tv account. It is skipped unless EPISODESYNC_E2E_TRAKT_* is set.
func TestE2E_TraktLive(t *testing.T) {
	live, ok := testutil.LiveTraktFromEnv()
	if !ok {
		t.Skip("EPISODESYNC_E2E_TRAKT_* not set")
	}

	e := newEnv(t)
	tokenPath := filepath.Join(e.home, "data", "trakt-token.json")
	testutil.CopyFile(live.TokenFile, tokenPath, 0o600)

	cfg := localConfig(e.home) + fmt.Sprintf(`
[tracker]
enabled = true
client_id = %q
client_secret = %q
token_file = %q
`, live.ClientID, live.ClientSecret, tokenPath)
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(cfg), 0o600))

	e.run(t, "import", fixture(t, e.home, live.ShowTVDB))

	for _, flag := range []string{"watched", "unwatched"} {
		stdout, stderr := e.run(t, "season", "mark", "--show", live.ShowTVDB, "--season", "1", "--flag", flag, "--json")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Empty(t, out["remote_error"], "stderr: %s", stderr)
		assert.False(t, strings.Contains(stderr, "not logged in"))
	}
}
