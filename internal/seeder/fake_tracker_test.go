package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/starford/treesync/internal/trackerclient"
)

type call struct {
	Method string
	Path   string
	Body   any
}

// fakeTracker is an in-memory tracker that mints ids per domain prefix,
// rejects unknown parents and records every call in order.
type fakeTracker struct {
	mu       sync.Mutex
	calls    []call
	domains  []map[string]any
	prefixes map[string]string
	seq      map[string]int
	ids      map[string]string // taskId -> title
	byTitle  map[string]string // title -> taskId
	parentOf map[string]string // title -> parent taskId sent on create

	// failTitles makes POST /tasks with that title return the given status.
	failTitles map[string]int
	// transportFail makes any call whose path has this prefix return ErrTransport.
	transportFail string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		prefixes:   map[string]string{},
		seq:        map[string]int{},
		ids:        map[string]string{},
		byTitle:    map[string]string{},
		parentOf:   map[string]string{},
		failTitles: map[string]int{},
	}
}

func result(method, path string, code int, v any) *trackerclient.Result {
	body, _ := json.Marshal(v)
	r := &trackerclient.Result{Method: method, Path: path, StatusCode: code, Body: body}
	if r.OK() {
		_ = json.Unmarshal(body, &r.Value)
	}
	return r
}

func (f *fakeTracker) record(method, path string, body any) error {
	f.calls = append(f.calls, call{Method: method, Path: path, Body: body})
	if f.transportFail != "" && strings.HasPrefix(path, f.transportFail) {
		return fmt.Errorf("%w: %s %s: connection refused", trackerclient.ErrTransport, method, path)
	}
	return nil
}

func (f *fakeTracker) Get(_ context.Context, path string) (*trackerclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodGet, path, nil); err != nil {
		return nil, err
	}
	if path == "/domains" {
		list := f.domains
		if list == nil {
			list = []map[string]any{}
		}
		return result(http.MethodGet, path, http.StatusOK, list), nil
	}
	return result(http.MethodGet, path, http.StatusNotFound, map[string]string{"error": "Not found"}), nil
}

func (f *fakeTracker) Post(_ context.Context, path string, body any) (*trackerclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodPost, path, body); err != nil {
		return nil, err
	}

	switch {
	case path == "/domains":
		req := body.(trackerclient.CreateDomainRequest)
		f.domains = append(f.domains, map[string]any{"name": req.Name, "taskPrefix": req.TaskPrefix})
		f.prefixes[req.Name] = req.TaskPrefix
		return result(http.MethodPost, path, http.StatusCreated, req), nil

	case path == "/tasks":
		req := body.(trackerclient.CreateTaskRequest)
		if req.ParentTaskID != nil {
			f.parentOf[req.Title] = *req.ParentTaskID
		}
		if code, ok := f.failTitles[req.Title]; ok {
			return result(http.MethodPost, path, code, map[string]string{"error": "rejected"}), nil
		}
		if req.ParentTaskID != nil {
			if _, ok := f.ids[*req.ParentTaskID]; !ok {
				return result(http.MethodPost, path, http.StatusNotFound, map[string]string{"error": "parent not found"}), nil
			}
		}
		prefix := f.prefixes[req.Domain]
		if prefix == "" {
			prefix = "T"
		}
		f.seq[prefix]++
		id := fmt.Sprintf("%s-%03d", prefix, f.seq[prefix])
		f.ids[id] = req.Title
		f.byTitle[req.Title] = id
		return result(http.MethodPost, path, http.StatusCreated, map[string]any{"taskId": id, "title": req.Title}), nil

	case strings.HasSuffix(path, "/progress"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/tasks/"), "/progress")
		if _, ok := f.ids[id]; !ok {
			return result(http.MethodPost, path, http.StatusNotFound, map[string]string{"error": "Not found"}), nil
		}
		return result(http.MethodPost, path, http.StatusOK, map[string]any{"taskId": id}), nil
	}
	return result(http.MethodPost, path, http.StatusNotFound, map[string]string{"error": "Not found"}), nil
}

func (f *fakeTracker) Patch(_ context.Context, path string, body any) (*trackerclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodPatch, path, body); err != nil {
		return nil, err
	}
	id := strings.TrimPrefix(path, "/tasks/")
	if _, ok := f.ids[id]; !ok {
		return result(http.MethodPatch, path, http.StatusNotFound, map[string]string{"error": "Not found"}), nil
	}
	return result(http.MethodPatch, path, http.StatusOK, map[string]any{"taskId": id}), nil
}

func (f *fakeTracker) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeTracker) snapshotCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

var errNoCall = errors.New("call not found")

// indexOf returns the position of the first call matching pred.
func indexOf(calls []call, pred func(call) bool) (int, error) {
	for i, c := range calls {
		if pred(c) {
			return i, nil
		}
	}
	return -1, errNoCall
}
