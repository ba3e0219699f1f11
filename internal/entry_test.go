package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/treesync/internal/seeder"
	"github.com/starford/treesync/internal/sse"
	"github.com/starford/treesync/internal/testutil"
	"github.com/starford/treesync/internal/trackerclient"
	"github.com/starford/treesync/internal/trackerservice"
)

// testStack starts the full stub tracker router and returns a config
// pointing the CLIs at it.
func testStack(t *testing.T) (*Config, *httptest.Server) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Report.Snapshot = filepath.Join(t.TempDir(), "tree.json")

	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	svc := trackerservice.NewService(testutil.TestStore(t), broker)

	srv := httptest.NewServer(newRouter(cfg, svc, broker))
	t.Cleanup(srv.Close)
	cfg.Tracker.BaseURL = srv.URL + "/api/v1"
	return cfg, srv
}

func TestHealth(t *testing.T) {
	_, srv := testStack(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/v1/domains")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("api without token = %d, want 401", resp.StatusCode)
	}
}

func TestSeedThenReport(t *testing.T) {
	cfg, _ := testStack(t)

	var seedLog bytes.Buffer
	sum, err := Seed(context.Background(), WithConfig(cfg), WithLogOutput(&seedLog))
	if err != nil {
		t.Fatalf("Seed: %v\n%s", err, seedLog.String())
	}
	if len(sum.Created) != 20 || len(sum.Failed) != 0 || sum.MutationFailures != 0 {
		t.Errorf("summary = %d created, %d failed, %d mutation failures\n%s",
			len(sum.Created), len(sum.Failed), sum.MutationFailures, seedLog.String())
	}
	if len(sum.DomainsCreated) != 2 {
		t.Errorf("domains created = %v", sum.DomainsCreated)
	}

	var out, reportLog bytes.Buffer
	err = Report(context.Background(), WithConfig(cfg), WithFetch(true),
		WithOutput(&out), WithLogOutput(&reportLog))
	if err != nil {
		t.Fatalf("Report: %v\n%s", err, reportLog.String())
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("rendered %d lines:\n%s", len(lines), out.String())
	}
	if want := "[epic    ] U-001 - 用户系统重构 | progress=55% status=active children=2"; lines[0] != want {
		t.Errorf("first line = %q, want %q", lines[0], want)
	}
	if _, err := os.Stat(cfg.Report.Snapshot); err != nil {
		t.Errorf("snapshot not saved: %v", err)
	}

	// A second run finds both domains and creates a fresh copy of the tree.
	seedLog.Reset()
	sum, err = Seed(context.Background(), WithConfig(cfg), WithLogOutput(&seedLog))
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if len(sum.DomainsCreated) != 0 || sum.Created[0].TaskID != "U-013" {
		t.Errorf("second run = domains %v, first id %s", sum.DomainsCreated, sum.Created[0].TaskID)
	}
}

func TestSeedRootFailure(t *testing.T) {
	cfg, _ := testStack(t)
	cfg.Tracker.Token = "wrong"

	sum, err := Seed(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if !errors.Is(err, seeder.ErrRootFailed) {
		t.Fatalf("err = %v, want ErrRootFailed", err)
	}
	var se *trackerclient.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Errorf("status error = %v", err)
	}
	if len(sum.Created) != 0 || len(sum.Failed) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestSeedCustomPlan(t *testing.T) {
	cfg, _ := testStack(t)
	plan, err := seeder.ParsePlan([]byte(`
domains:
  - name: 支付系统
    task_prefix: P
epics:
  - title: 支付网关
    domain: 支付系统
    children:
      - title: 微信支付
`))
	if err != nil {
		t.Fatal(err)
	}
	sum, err := Seed(context.Background(), WithConfig(cfg), WithPlan(plan), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Created) != 2 || sum.Created[1].TaskID != "P-002" {
		t.Errorf("created = %+v", sum.Created)
	}
}

func TestReportMissingSnapshot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Report.Snapshot = filepath.Join(t.TempDir(), "none.json")
	err := Report(context.Background(), WithConfig(cfg), WithOutput(io.Discard), WithLogOutput(io.Discard))
	if err == nil {
		t.Fatal("missing snapshot should fail")
	}
}

func TestReportEmptyForest(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Report.Snapshot = filepath.Join(t.TempDir(), "tree.json")
	_ = os.WriteFile(cfg.Report.Snapshot, []byte("[]"), 0o644)

	var out bytes.Buffer
	if err := Report(context.Background(), WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard)); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}

func TestReportWatch(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Report.Snapshot = filepath.Join(t.TempDir(), "tree.json")
	_ = os.WriteFile(cfg.Report.Snapshot, []byte(`[{"taskId":"E-1","title":"a","type":"epic"}]`), 0o644)

	out := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Report(ctx, WithConfig(cfg), WithWatch(true), WithOutput(out), WithLogOutput(io.Discard))
	}()

	eventually(t, func() bool { return strings.Contains(out.String(), "E-1") })
	// Give the watcher time to register before the rewrite.
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(cfg.Report.Snapshot, []byte(`[{"taskId":"E-2","title":"b","type":"epic"}]`), 0o644)
	eventually(t, func() bool { return strings.Contains(out.String(), "E-2") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Report returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Report did not stop")
	}
}

func TestRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("Run = %v", err)
	}
	if _, err := Seed(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("Seed = %v", err)
	}
	if err := Report(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("Report = %v", err)
	}
}

// lockedBuffer guards output written by the watch goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
