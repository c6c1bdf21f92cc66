// Package archive keeps raw copies of fetched documents so extraction
// bugs can be replayed without refetching.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

// Memory holds archived objects in process, used in tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[path] = data
	m.mu.Unlock()
	return "mem://" + path, nil
}

// Object returns an archived body, used by tests.
func (m *Memory) Object(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Local writes objects under a base directory.
type Local struct {
	baseDir string
}

func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (l *Local) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	full := filepath.Join(l.baseDir, filepath.FromSlash(cleanPath(path)))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("archive mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("archive create: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("archive write: %w", err)
	}
	return full, nil
}

// cleanPath keeps object keys from escaping the base directory. Rooting
// the key before cleaning collapses any leading ".." segments.
func cleanPath(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean("/" + filepath.FromSlash(path)))
	return strings.TrimPrefix(cleaned, "/")
}

// GCS writes objects to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	key := path
	if g.prefix != "" {
		key = strings.TrimSuffix(g.prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("archive upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, key), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
