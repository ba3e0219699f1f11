package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/treesync/internal/trackerclient"
)

const sample = `[{"taskId":"U-001","title":"用户系统重构","type":"epic","progress":55,"status":"active",
  "children":[{"taskId":"U-002","title":"用户注册流程优化","type":"story","progress":0}]}]`

func TestDecodeFillsMissingChildren(t *testing.T) {
	roots, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(roots) != 1 || len(roots[0].Children) != 1 {
		t.Fatalf("roots = %+v", roots)
	}
	story := roots[0].Children[0]
	if story.Children == nil || len(story.Children) != 0 {
		t.Errorf("missing children should decode to an empty list, got %#v", story.Children)
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	roots, err := Decode(strings.NewReader("[]"))
	if err != nil {
		t.Fatal(err)
	}
	if roots == nil || len(roots) != 0 {
		t.Errorf("roots = %#v", roots)
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	for _, in := range []string{`{"taskId":"x"}`, `not json`, ``} {
		if _, err := Decode(strings.NewReader(in)); err == nil {
			t.Errorf("Decode(%q): expected error", in)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tree.json")
	if err := Save(path, []byte(sample)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	roots, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if roots[0].TaskID != "U-001" {
		t.Errorf("root = %+v", roots[0])
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := Save(path, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, []byte(sample)); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != sample {
		t.Errorf("content = %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("domain")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	c := trackerclient.New(srv.URL, "t", trackerclient.WithLogger(quietLogger()))
	data, err := Fetch(context.Background(), c, "用户系统")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != sample {
		t.Errorf("data = %q", data)
	}
	if gotQuery != "用户系统" {
		t.Errorf("domain query = %q", gotQuery)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := trackerclient.New(srv.URL, "bad", trackerclient.WithLogger(quietLogger()))
	_, err := Fetch(context.Background(), c, "")
	var se *trackerclient.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
}

func TestFetchRejectsNonForest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"taskId":"U-001"}`))
	}))
	defer srv.Close()

	c := trackerclient.New(srv.URL, "t", trackerclient.WithLogger(quietLogger()))
	_, err := Fetch(context.Background(), c, "")
	if !errors.Is(err, trackerclient.ErrMalformedResponse) {
		t.Fatalf("err = %v", err)
	}
}

func TestChecksum(t *testing.T) {
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("different content, same checksum")
	}
	if len(Checksum(nil)) != 64 {
		t.Error("checksum is not hex sha256")
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatchFiresOnContentChangeOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := Save(path, []byte("[]")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, quietLogger(), func(data []byte) {
			mu.Lock()
			seen = append(seen, string(data))
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// Identical rewrite: no callback.
	if err := Save(path, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * settle)
	mu.Lock()
	if len(seen) != 0 {
		t.Errorf("callback fired for unchanged content: %v", seen)
	}
	mu.Unlock()

	if err := Save(path, []byte(sample)); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == sample
	}, "callback not fired for changed content")

	// Unrelated files in the same directory are ignored.
	_ = os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("x"), 0o644)
	time.Sleep(4 * settle)
	mu.Lock()
	if len(seen) != 1 {
		t.Errorf("callbacks = %d after unrelated write", len(seen))
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}
