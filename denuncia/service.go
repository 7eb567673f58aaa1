// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
	geojson "github.com/paulmach/go.geojson"

	"github.com/jcodagnone/denuncia/metrics"
)

// Service orchestrates the denunciation lifecycle on top of its collaborators.
type Service struct {
	store   Store
	objects ObjectStore
	auth    Auth
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService wires a service. objects may be nil when uploads are disabled.
func NewService(store Store, objects ObjectStore, auth Auth, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		objects: objects,
		auth:    auth,
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) currentUser(ctx context.Context) *User {
	if s.auth == nil {
		return nil
	}

	u, ok := s.auth.CurrentUser(ctx)
	if !ok {
		return nil
	}

	return u
}

// Create validates and persists a submission, returning the new id. Nothing
// is written when validation fails.
func (s *Service) Create(ctx context.Context, sub Submission) (string, error) {
	sub = Normalize(sub)
	if err := Validate(sub); err != nil {
		return "", err
	}

	d := FromSubmission(sub, s.currentUser(ctx))

	if err := s.store.Create(ctx, d); err != nil {
		return "", fmt.Errorf("creating denunciation: %w", err)
	}

	s.metrics.Created()
	log.WithFields(log.Fields{
		"id":       d.ID,
		"category": d.Category,
		"state":    d.Address.State,
	}).Info("denunciation created")

	return d.ID, nil
}

// AttachImage uploads the image at localPath and links it to the record.
// Failures before or during the upload are *UploadError; an upload that
// could not be linked is *LinkError carrying the URL for LinkImage. When
// another image was linked meanwhile the upload is removed and
// ErrImageAlreadyAttached is returned.
func (s *Service) AttachImage(ctx context.Context, id, localPath string) (string, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if d.ImageURL != "" {
		return "", ErrImageAlreadyAttached
	}

	if s.objects == nil {
		s.metrics.ImageUpload("upload_error")

		return "", &UploadError{ID: id, Err: errors.New("armazenamento de imagens não configurado")}
	}

	mtype, err := mimetype.DetectFile(localPath)
	if err != nil {
		s.metrics.ImageUpload("upload_error")

		return "", &UploadError{ID: id, Err: err}
	}

	if !strings.HasPrefix(mtype.String(), "image/") {
		s.metrics.ImageUpload("upload_error")

		return "", &UploadError{ID: id, Err: fmt.Errorf("%w (%s)", ErrNotAnImage, mtype.String())}
	}

	ext := mtype.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(localPath))
	}

	objectPath := ImagePath(id, s.now().UnixMilli(), ext)

	url, err := s.objects.Put(ctx, objectPath, localPath, mtype.String())
	if err != nil {
		s.metrics.ImageUpload("upload_error")

		return "", &UploadError{ID: id, Err: err}
	}

	if err := s.store.SetImageURL(ctx, id, url); err != nil {
		if errors.Is(err, ErrImageAlreadyAttached) {
			s.metrics.ImageUpload("conflict")

			if delErr := s.objects.Delete(ctx, objectPath); delErr != nil {
				log.WithFields(log.Fields{"id": id, "object": objectPath}).WithError(delErr).Warn("could not remove unlinked image")
			}

			return "", ErrImageAlreadyAttached
		}

		s.metrics.ImageUpload("link_error")
		log.WithFields(log.Fields{"id": id, "url": url}).WithError(err).Warn("image uploaded but not linked")

		return url, &LinkError{ID: id, URL: url, Err: err}
	}

	s.metrics.ImageUpload("ok")

	return url, nil
}

// LinkImage records an already uploaded image URL.
func (s *Service) LinkImage(ctx context.Context, id, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("URL da imagem vazia")
	}

	return s.store.SetImageURL(ctx, id, url)
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url,omitempty"`
	// Warning is set when the record was created but the image was not
	// attached.
	Warning string `json:"warning,omitempty"`
	// ImageErr is the attachment failure behind Warning.
	ImageErr error `json:"-"`
}

// Submit creates the record and, when imagePath is set, attaches the image.
// Image problems never fail the submission.
func (s *Service) Submit(ctx context.Context, sub Submission, imagePath string) (*SubmitResult, error) {
	id, err := s.Create(ctx, sub)
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{ID: id}
	if imagePath == "" {
		return res, nil
	}

	url, err := s.AttachImage(ctx, id, imagePath)
	res.ImageURL = url

	if err != nil {
		res.ImageErr = err

		var linkErr *LinkError

		if errors.As(err, &linkErr) {
			res.Warning = "Denúncia enviada, mas a imagem não foi vinculada. Tente vincular novamente."
		} else {
			res.Warning = "Denúncia enviada, mas houve um erro ao enviar a imagem."
		}

		log.WithField("id", id).WithError(err).Warn("submission without image")
	}

	return res, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (*Denunciation, error) {
	return s.store.Get(ctx, id)
}

// List returns every record, newest first.
func (s *Service) List(ctx context.Context) ([]*Denunciation, error) {
	return s.store.List(ctx)
}

// Subscribe delivers the collection now and after every change.
func (s *Service) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	return s.store.Subscribe(ctx, fn)
}

// VoteResult is the state of a record after a vote.
type VoteResult struct {
	VoteSets
	State VoteState `json:"state"`
}

// Vote toggles the current user's like or dislike.
func (s *Service) Vote(ctx context.Context, id string, kind VoteKind) (*VoteResult, error) {
	user := s.currentUser(ctx)
	if user == nil {
		return nil, ErrAuthRequired
	}

	kind, err := ParseVoteKind(string(kind))
	if err != nil {
		return nil, err
	}

	votes, err := s.store.UpdateVotes(ctx, id, func(v VoteSets) (VoteSets, error) {
		return v.Toggle(user.ID, kind)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Vote(string(kind))

	return &VoteResult{VoteSets: votes, State: votes.State(user.ID)}, nil
}

// SignOut ends the current session.
func (s *Service) SignOut(ctx context.Context) error {
	if s.auth == nil {
		return nil
	}

	return s.auth.SignOut(ctx)
}

// GeoJSON returns the located records as a FeatureCollection.
func (s *Service) GeoJSON(ctx context.Context) (*geojson.FeatureCollection, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	return FeatureCollection(records), nil
}
