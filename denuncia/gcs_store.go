// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	bucket  string
	baseURL string
	svc     *storage.Service
}

// NewGCSStore connects to bucket with Application Default Credentials unless
// opts say otherwise.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("empty bucket name")
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCSStore{
		bucket:  bucket,
		baseURL: "https://storage.googleapis.com/" + bucket,
		svc:     svc,
	}, nil
}

// Put implements ObjectStore.
func (s *GCSStore) Put(ctx context.Context, objectPath, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	obj := &storage.Object{
		Name:        objectPath,
		ContentType: contentType,
	}

	call := s.svc.Objects.Insert(s.bucket, obj).Context(ctx)
	if contentType != "" {
		call = call.Media(f, googleapi.ContentType(contentType))
	} else {
		call = call.Media(f)
	}

	if _, err := call.Do(); err != nil {
		return "", fmt.Errorf("uploading gs://%s/%s: %w", s.bucket, objectPath, err)
	}

	return s.URL(objectPath), nil
}

// URL implements ObjectStore.
func (s *GCSStore) URL(objectPath string) string {
	return s.baseURL + "/" + (&url.URL{Path: strings.TrimPrefix(objectPath, "/")}).EscapedPath()
}

// Delete implements ObjectStore.
func (s *GCSStore) Delete(ctx context.Context, objectPath string) error {
	err := s.svc.Objects.Delete(s.bucket, objectPath).Context(ctx).Do()

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil
	}

	if err != nil {
		return fmt.Errorf("deleting gs://%s/%s: %w", s.bucket, objectPath, err)
	}

	return nil
}
