// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package denuncia implements the lifecycle of civic complaints: creation,
// image attachment, like/dislike voting and live listing.
package denuncia

import (
	"slices"
	"strings"
	"time"

	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/spatial"
)

// Status of a denunciation.
type Status string

const (
	StatusUnresolved Status = "Não Resolvido"
	StatusResolved   Status = "Resolvido"
)

// Reporter names and ids used when the author is not disclosed.
const (
	AnonymousUserID   = "anonymous"
	AnonymousReporter = "Anônimo"
	UnknownReporter   = "Usuário Anônimo"
)

// CategoryOther is the category whose title comes from the custom text.
const CategoryOther = "outro"

// Category is one of the known complaint kinds.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Categories offered by the submission form, in display order.
var Categories = []Category{
	{"buraco", "Buraco na via"},
	{"poste_sem_luz", "Poste sem luz"},
	{"lixo_acumulado", "Lixo acumulado"},
	{"esgoto_entupido", "Esgoto entupido"},
	{"sinalizacao_danificada", "Sinalização danificada"},
	{"calcada_danificada", "Calçada danificada"},
	{"arvore_caida", "Árvore caída"},
	{"iluminacao_publica", "Iluminação pública"},
	{"transito", "Problema de trânsito"},
	{CategoryOther, "Outro"},
}

// CategoryLabel returns the label of a known category id.
func CategoryLabel(id string) (string, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c.Label, true
		}
	}

	return "", false
}

// Title derives the display title of a denunciation.
func Title(category, custom string) string {
	if category == CategoryOther {
		if custom = strings.TrimSpace(custom); custom != "" {
			return custom
		}

		return "Outro problema"
	}

	if label, ok := CategoryLabel(category); ok {
		return label
	}

	return category
}

// Denunciation is a civic complaint record.
type Denunciation struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Category       string           `json:"category"`
	CustomCategory string           `json:"custom_category,omitempty"`
	Description    string           `json:"description"`
	Location       string           `json:"location"`
	Address        location.Address `json:"address"`
	Point          *spatial.Point   `json:"point,omitempty"`
	IsAnonymous    bool             `json:"is_anonymous"`
	ReporterName   string           `json:"reporter_name"`
	UserID         string           `json:"user_id"`
	CreatedAt      time.Time        `json:"created_at"`
	Status         Status           `json:"status"`
	ImageURL       string           `json:"image_url"`
	Likes          []string         `json:"likes"`
	Dislikes       []string         `json:"dislikes"`
	H3Cell         int64            `json:"-"`
}

// Votes returns the vote sets of the record.
func (d *Denunciation) Votes() VoteSets {
	return VoteSets{Likes: d.Likes, Dislikes: d.Dislikes}
}

// VoteState returns how userID voted on the record.
func (d *Denunciation) VoteState(userID string) VoteState {
	return d.Votes().State(userID)
}

// Clone returns a deep copy.
func (d *Denunciation) Clone() *Denunciation {
	c := *d
	c.Likes = slices.Clone(d.Likes)
	c.Dislikes = slices.Clone(d.Dislikes)

	if d.Point != nil {
		p := *d.Point
		c.Point = &p
	}

	return &c
}

// Submission is what a user fills in to create a denunciation.
type Submission struct {
	Category       string           `json:"category"`
	CustomCategory string           `json:"custom_category"`
	Description    string           `json:"description"`
	Address        location.Address `json:"address"`
	Point          *spatial.Point   `json:"point,omitempty"`
	IsAnonymous    bool             `json:"is_anonymous"`
}

// FromSubmission builds the record a normalized submission describes, on
// behalf of user (nil when nobody is signed in).
func FromSubmission(s Submission, user *User) *Denunciation {
	d := &Denunciation{
		Title:          Title(s.Category, s.CustomCategory),
		Category:       s.Category,
		CustomCategory: s.CustomCategory,
		Description:    s.Description,
		Location:       s.Address.FullAddress(),
		Address:        s.Address,
		Point:          s.Point,
		IsAnonymous:    s.IsAnonymous,
		Status:         StatusUnresolved,
		UserID:         AnonymousUserID,
		ReporterName:   UnknownReporter,
		Likes:          []string{},
		Dislikes:       []string{},
	}

	if user != nil {
		d.UserID, d.ReporterName = user.ID, user.DisplayName()
	}

	if s.IsAnonymous {
		d.ReporterName = AnonymousReporter
	}

	return d
}
