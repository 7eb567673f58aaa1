// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ObjectStore keeps uploaded images.
type ObjectStore interface {
	// Put uploads the local file to objectPath and returns its public URL.
	Put(ctx context.Context, objectPath, localPath, contentType string) (string, error)
	// URL returns the public URL of objectPath.
	URL(objectPath string) string
	// Delete removes objectPath.
	Delete(ctx context.Context, objectPath string) error
}

// ImagePath returns the object path of an image uploaded at millis, with ext
// (".jpg", ".png", ...) as extension.
func ImagePath(id string, millis int64, ext string) string {
	return fmt.Sprintf("denunciations/%s/%d%s", id, millis, ext)
}

// FileStore keeps objects in a local directory served under BaseURL.
type FileStore struct {
	Dir     string
	BaseURL string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir, baseURL string) *FileStore {
	return &FileStore{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *FileStore) localPath(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}

	return filepath.Join(s.Dir, filepath.FromSlash(clean)), nil
}

// Put implements ObjectStore.
func (s *FileStore) Put(ctx context.Context, objectPath, localPath, _ string) (string, error) {
	dst, err := s.localPath(objectPath)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	// write next to the destination and rename, readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return "", err
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())

		return "", err
	}

	return s.URL(objectPath), nil
}

// URL implements ObjectStore.
func (s *FileStore) URL(objectPath string) string {
	return s.BaseURL + "/" + (&url.URL{Path: strings.TrimPrefix(objectPath, "/")}).EscapedPath()
}

// Delete implements ObjectStore.
func (s *FileStore) Delete(_ context.Context, objectPath string) error {
	p, err := s.localPath(objectPath)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}
