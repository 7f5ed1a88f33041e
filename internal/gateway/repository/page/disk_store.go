package page

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiskStore keeps page images under root/<thread_id>/<name>. It backs
// single-node deployments that have no bucket.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("page store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create page store root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Put(_ context.Context, threadID, name string, content []byte) error {
	full, err := s.pathFor(threadID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}

func (s *DiskStore) Get(_ context.Context, threadID, name string) ([]byte, error) {
	full, err := s.pathFor(threadID, name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *DiskStore) List(_ context.Context, threadID string) ([]string, error) {
	dir, err := s.threadDir(threadID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (s *DiskStore) threadDir(threadID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return "", fmt.Errorf("thread_id is required")
	}
	if !safeSegment(threadID) {
		return "", fmt.Errorf("invalid thread_id: %s", threadID)
	}
	return filepath.Join(s.root, threadID), nil
}

func (s *DiskStore) pathFor(threadID, name string) (string, error) {
	dir, err := s.threadDir(threadID)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if !safeSegment(name) {
		return "", fmt.Errorf("invalid page name: %s", name)
	}
	return filepath.Join(dir, name), nil
}

// safeSegment rejects anything that could leave the store root.
func safeSegment(s string) bool {
	return !strings.Contains(s, "..") && !strings.ContainsAny(s, `/\`) && !filepath.IsAbs(s)
}
