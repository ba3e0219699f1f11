package trackerclient

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SnippetLen caps the response body echoed in diagnostics.
const SnippetLen = 100

// Result is the normalised outcome of one request.
type Result struct {
	Method     string
	Path       string
	RequestID  string
	StatusCode int
	// Body is the raw response body.
	Body []byte
	// Value is the decoded JSON body of a 2xx response.
	Value any
}

// OK reports whether the response status was 2xx.
func (r *Result) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ID returns the identifier of the created or addressed record: the
// "taskId" key, falling back to "id". It is empty when the value is not a
// mapping or carries neither key.
func (r *Result) ID() string {
	if !r.OK() {
		return ""
	}
	m, ok := r.Value.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"taskId", "id"} {
		if v, ok := m[key]; ok && v != nil {
			return scalarString(v)
		}
	}
	return ""
}

// Items returns the elements of a sequence body and true, or nil and false
// when the body is not a sequence.
func (r *Result) Items() ([]any, bool) {
	if !r.OK() {
		return nil, false
	}
	items, ok := r.Value.([]any)
	return items, ok
}

// Label summarises a successful outcome for logs: the identifier, the item
// count of a sequence, or "ok".
func (r *Result) Label() string {
	if id := r.ID(); id != "" {
		return id
	}
	if items, ok := r.Items(); ok {
		return fmt.Sprintf("[%d items]", len(items))
	}
	return "ok"
}

// Snippet returns the response body truncated to SnippetLen characters.
func (r *Result) Snippet() string {
	if r == nil {
		return ""
	}
	runes := []rune(string(r.Body))
	if len(runes) > SnippetLen {
		runes = runes[:SnippetLen]
	}
	return string(runes)
}

// Decode unmarshals the raw body into v.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, r.Method, r.Path, err)
	}
	return nil
}

// Err returns a *StatusError for a failure result and nil otherwise.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	if r == nil {
		return &StatusError{}
	}
	return &StatusError{
		Method:     r.Method,
		Path:       r.Path,
		StatusCode: r.StatusCode,
		Snippet:    r.Snippet(),
	}
}

// StatusError describes a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Snippet)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
