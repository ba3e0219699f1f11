// Package snapshot reads, writes, fetches and watches the JSON tree
// snapshot consumed by the reporter.
package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/starford/treesync/internal/models"
	"github.com/starford/treesync/internal/trackerclient"
)

// DefaultPath is where the reporter looks for a snapshot by default.
const DefaultPath = "/tmp/tree.json"

// Decode parses a JSON array of task nodes. Missing children decode to an
// empty list.
func Decode(r io.Reader) ([]models.TaskNode, error) {
	var roots []models.TaskNode
	if err := json.NewDecoder(r).Decode(&roots); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	normalize(roots)
	if roots == nil {
		roots = []models.TaskNode{}
	}
	return roots, nil
}

// Load reads and decodes the snapshot at path.
func Load(path string) ([]models.TaskNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Save atomically writes data to path: tmp file → fsync → rename.
func Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".treesync-tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	success = true
	return nil
}

// TreeFetcher pulls the live tree from the tracker.
type TreeFetcher interface {
	FetchTree(ctx context.Context, domain string) (*trackerclient.Result, error)
}

// Fetch pulls GET /tasks/tree, optionally scoped to domain, and returns
// the raw body. A non-2xx response is returned as a *trackerclient.StatusError
// and a body that is not a task forest is rejected, so a failed fetch never
// reaches Save.
func Fetch(ctx context.Context, c TreeFetcher, domain string) ([]byte, error) {
	res, err := c.FetchTree(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetch: %w", err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("snapshot: fetch: %w", res.Err())
	}
	if _, err := Decode(bytes.NewReader(res.Body)); err != nil {
		return nil, fmt.Errorf("%w: %w", trackerclient.ErrMalformedResponse, err)
	}
	return res.Body, nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func normalize(nodes []models.TaskNode) {
	for i := range nodes {
		if nodes[i].Children == nil {
			nodes[i].Children = []models.TaskNode{}
		}
		normalize(nodes[i].Children)
	}
}
