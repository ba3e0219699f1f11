package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/treesync/internal/models"
)

func TestRenderSingleEpic(t *testing.T) {
	var buf bytes.Buffer
	roots := []models.TaskNode{{TaskID: "E-1", Title: "X", Type: models.TypeEpic, Progress: 50, Status: models.StatusActive, Children: []models.TaskNode{}}}

	n, err := Render(&buf, roots)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 1 {
		t.Fatalf("lines = %d, want 1", n)
	}
	want := "[epic    ] E-1 - X | progress=50% status=active children=0\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}
}

// fullTree builds one epic with 2 stories, 6 tasks and 6 subtasks, and
// hangs a fifth-level node under every subtask.
func fullTree() []models.TaskNode {
	epic := models.TaskNode{TaskID: "U-001", Title: "用户系统重构", Type: models.TypeEpic, Progress: 55, Status: models.StatusActive}
	id := 2
	next := func() string {
		s := fmt.Sprintf("U-%03d", id)
		id++
		return s
	}
	for s := 0; s < 2; s++ {
		story := models.TaskNode{TaskID: next(), Title: "story", Type: models.TypeStory}
		for k := 0; k < 3; k++ {
			task := models.TaskNode{TaskID: next(), Title: "task", Type: models.TypeTask}
			story.Children = append(story.Children, task)
		}
		epic.Children = append(epic.Children, story)
	}
	// Two subtasks under each of three tasks.
	for _, pos := range [][2]int{{0, 0}, {0, 1}, {1, 2}} {
		task := &epic.Children[pos[0]].Children[pos[1]]
		for k := 0; k < 2; k++ {
			sub := models.TaskNode{TaskID: next(), Title: "subtask", Type: models.TypeSubtask}
			sub.Children = []models.TaskNode{{TaskID: "DEEP-" + sub.TaskID, Title: "too deep", Type: "note"}}
			task.Children = append(task.Children, sub)
		}
	}
	return []models.TaskNode{epic}
}

func TestRenderFourLevelsIgnoresDeeper(t *testing.T) {
	var buf bytes.Buffer
	n, err := Render(&buf, fullTree())
	if err != nil {
		t.Fatal(err)
	}
	if n != 15 {
		t.Fatalf("lines = %d, want 15", n)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 15 {
		t.Errorf("output has %d lines", strings.Count(out, "\n"))
	}
	if strings.Contains(out, "DEEP-") {
		t.Error("fifth-level node rendered")
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if !strings.HasPrefix(lines[0], "[epic    ] U-001 - 用户系统重构 | progress=55% status=active children=2") {
		t.Errorf("root line = %q", lines[0])
	}
	if lines[1] != "  [story   ] U-002 - story | progress=0% children=3" {
		t.Errorf("story line = %q", lines[1])
	}
	if lines[2] != "    [task    ] U-003 - task | progress=0% children=2" {
		t.Errorf("task line = %q", lines[2])
	}
	if lines[3] != "      [subtask ] U-010 - subtask | progress=0% children=1" {
		t.Errorf("subtask line = %q", lines[3])
	}
	for _, l := range lines[1:] {
		if strings.Contains(l, "status=") {
			t.Errorf("status on non-root line %q", l)
		}
	}
}

func TestRenderZeroRoots(t *testing.T) {
	var buf bytes.Buffer
	n, err := Render(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || buf.Len() != 0 {
		t.Errorf("n = %d, output = %q", n, buf.String())
	}
}

func TestLineTruncation(t *testing.T) {
	node := models.TaskNode{
		TaskID: "T-1",
		Title:  strings.Repeat("支", 40),
		Type:   "milestone-long",
	}
	got := Line(node, 0)
	want := "[mileston] T-1 - " + strings.Repeat("支", 30) + " | progress=0% status= children=0"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestLineMissingType(t *testing.T) {
	got := Line(models.TaskNode{TaskID: "T-2", Title: "t", Progress: 100}, 1)
	if got != "  [?       ] T-2 - t | progress=100% children=0" {
		t.Errorf("got %q", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderWriteError(t *testing.T) {
	if _, err := Render(failingWriter{}, fullTree()); err == nil {
		t.Fatal("expected write error")
	}
}

func genNode(t *rapid.T, depth int, label string) models.TaskNode {
	node := models.TaskNode{
		TaskID:   rapid.StringMatching(`[A-Z]-[0-9]{1,3}`).Draw(t, label+"_id"),
		Title:    rapid.StringMatching(`[a-zA-Z0-9 用户系统]{0,40}`).Draw(t, label+"_title"),
		Type:     models.TaskType(rapid.SampledFrom([]string{"", "epic", "story", "task", "subtask", "initiative"}).Draw(t, label+"_type")),
		Progress: rapid.IntRange(0, 100).Draw(t, label+"_progress"),
	}
	if depth < 6 {
		n := rapid.IntRange(0, 3).Draw(t, label+"_n")
		for i := 0; i < n; i++ {
			node.Children = append(node.Children, genNode(t, depth+1, fmt.Sprintf("%s.%d", label, i)))
		}
	}
	return node
}

func countVisible(nodes []models.TaskNode, depth int) int {
	if depth >= MaxDepth {
		return 0
	}
	n := 0
	for _, node := range nodes {
		n += 1 + countVisible(node.Children, depth+1)
	}
	return n
}

func TestRenderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(0, 3).Draw(t, "roots")
		roots := make([]models.TaskNode, k)
		for i := range roots {
			roots[i] = genNode(t, 0, fmt.Sprint(i))
		}

		var buf bytes.Buffer
		n, err := Render(&buf, roots)
		if err != nil {
			t.Fatal(err)
		}
		if want := countVisible(roots, 0); n != want {
			t.Fatalf("lines = %d, want %d", n, want)
		}
		if got := strings.Count(buf.String(), "\n"); got != n {
			t.Fatalf("newlines = %d, reported %d", got, n)
		}
	})
}
