// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("denúncia não encontrada")
	// ErrImageAlreadyAttached is returned when a record already has another image.
	ErrImageAlreadyAttached = errors.New("a denúncia já possui uma imagem")
	// ErrAuthRequired is returned when voting without a signed in user.
	ErrAuthRequired = errors.New("é necessário estar autenticado")
	// ErrNotAnImage is returned when the uploaded file is not an image.
	ErrNotAnImage = errors.New("o arquivo não é uma imagem")
)

// UploadError means the image never reached the object store. The record is
// intact and can be used without an image.
type UploadError struct {
	ID  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("falha ao enviar a imagem da denúncia %s: %v", e.ID, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// LinkError means the image was uploaded but the record could not be
// updated. Retry with LinkImage and URL instead of uploading again.
type LinkError struct {
	ID  string
	URL string
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("imagem enviada para %s mas não vinculada à denúncia %s: %v", e.URL, e.ID, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
