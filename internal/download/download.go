// Package download saves an exported care plan to disk and, when an archive
// is configured, copies it to object storage.
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
)

// Fetcher follows a download reference.
type Fetcher interface {
	Download(ctx context.Context, ref string) (*client.Artifact, error)
}

// Archiver stores a copy of an artifact.
type Archiver interface {
	Put(ctx context.Context, orderID, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// Result describes a saved artifact.
type Result struct {
	Path       string
	Size       int64
	ArchiveKey string
}

// Saver writes artifacts into Dir.
type Saver struct {
	Fetcher  Fetcher
	Dir      string
	Archiver Archiver
}

// Save downloads ref for orderID. A missing attachment name falls back to
// careplan_{order_id}.txt. Archive failures are returned after the local file
// is written; the Result still carries the path.
func (s Saver) Save(ctx context.Context, orderID, ref string) (Result, error) {
	art, err := s.Fetcher.Download(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	defer art.Body.Close()
	data, err := io.ReadAll(art.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read care plan: %w", err)
	}

	name := Filename(art.Filename, orderID)
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("ensure output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("write care plan: %w", err)
	}
	res := Result{Path: path, Size: int64(len(data))}

	if s.Archiver != nil {
		key, err := s.Archiver.Put(ctx, orderID, name, bytes.NewReader(data), int64(len(data)), art.ContentType)
		if err != nil {
			return res, fmt.Errorf("archive care plan: %w", err)
		}
		res.ArchiveKey = key
	}
	return res, nil
}

// Filename strips any directory from the server supplied name.
func Filename(attachment, orderID string) string {
	name := filepath.Base(strings.ReplaceAll(attachment, "\\", "/"))
	if attachment == "" || name == "." || name == "/" || name == ".." {
		return "careplan_" + orderID + ".txt"
	}
	return name
}
