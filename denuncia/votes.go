// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"fmt"
	"slices"
	"strings"
)

// VoteKind is the action a user takes on a record.
type VoteKind string

const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

// ParseVoteKind accepts "like" and "dislike" in any case.
func ParseVoteKind(s string) (VoteKind, error) {
	switch VoteKind(strings.ToLower(strings.TrimSpace(s))) {
	case VoteLike:
		return VoteLike, nil
	case VoteDislike:
		return VoteDislike, nil
	default:
		return "", fmt.Errorf("tipo de voto inválido: %q", s)
	}
}

// VoteState is how one user currently stands on one record.
type VoteState string

const (
	VoteNone     VoteState = "none"
	VoteLiked    VoteState = "liked"
	VoteDisliked VoteState = "disliked"
)

// VoteSets are the user ids that liked and disliked a record. A user id
// appears in at most one of them.
type VoteSets struct {
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
}

// State returns the derived state of userID.
func (v VoteSets) State(userID string) VoteState {
	switch {
	case slices.Contains(v.Likes, userID):
		return VoteLiked
	case slices.Contains(v.Dislikes, userID):
		return VoteDisliked
	default:
		return VoteNone
	}
}

// Toggle applies kind for userID and returns fresh sets:
//
//	none     + like    = liked
//	none     + dislike = disliked
//	liked    + like    = none
//	liked    + dislike = disliked
//	disliked + dislike = none
//	disliked + like    = liked
//
// A user found in both sets is treated as liked and ends in at most one.
func (v VoteSets) Toggle(userID string, kind VoteKind) (VoteSets, error) {
	if userID == "" {
		return v, ErrAuthRequired
	}

	state := v.State(userID)

	likes := without(v.Likes, userID)
	dislikes := without(v.Dislikes, userID)

	switch kind {
	case VoteLike:
		if state != VoteLiked {
			likes = append(likes, userID)
		}
	case VoteDislike:
		if state != VoteDisliked {
			dislikes = append(dislikes, userID)
		}
	default:
		return v, fmt.Errorf("tipo de voto inválido: %q", kind)
	}

	return VoteSets{Likes: likes, Dislikes: dislikes}, nil
}

// without returns a new slice with every occurrence of id removed.
func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))

	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}
