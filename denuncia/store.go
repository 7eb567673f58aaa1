// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import "context"

// SnapshotFunc receives the whole collection, newest first, every time it
// changes.
type SnapshotFunc func([]*Denunciation)

// Store persists denunciations.
type Store interface {
	// Create assigns ID and CreatedAt and persists d.
	Create(ctx context.Context, d *Denunciation) error

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, id string) (*Denunciation, error)

	// List returns every record ordered by CreatedAt descending.
	List(ctx context.Context) ([]*Denunciation, error)

	// SetImageURL sets the image of a record that has none. Setting the same
	// URL again succeeds; a different one fails with ErrImageAlreadyAttached.
	SetImageURL(ctx context.Context, id, url string) error

	// UpdateVotes reads the vote sets, applies fn and writes both sets back
	// in one transaction.
	UpdateVotes(ctx context.Context, id string, fn func(VoteSets) (VoteSets, error)) (VoteSets, error)

	// Subscribe delivers a snapshot right away and again after every change
	// until cancel is called or ctx is done.
	Subscribe(ctx context.Context, fn SnapshotFunc) (cancel func(), err error)
}
