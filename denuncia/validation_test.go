// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/denuncia/location"
)

func validSubmission() Submission {
	return Submission{
		Category:    "buraco",
		Description: "Big pothole",
		Address: location.Address{
			Street:       "Rua Augusta",
			Neighborhood: "Consolação",
			City:         "São Paulo",
			State:        "SP",
		},
	}
}

func TestValidateMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Submission)
		want   []string
	}{
		{"category", func(s *Submission) { s.Category = "" }, []string{FieldCategory}},
		{"description", func(s *Submission) { s.Description = "  " }, []string{FieldDescription}},
		{"street", func(s *Submission) { s.Address.Street = "" }, []string{FieldStreet}},
		{"neighborhood", func(s *Submission) { s.Address.Neighborhood = "" }, []string{FieldNeighborhood}},
		{"city", func(s *Submission) { s.Address.City = "" }, []string{FieldCity}},
		{"state", func(s *Submission) { s.Address.State = "" }, []string{FieldState}},
		{"markup only", func(s *Submission) { s.Description = "<b> </b>" }, []string{FieldDescription}},
		{
			"everything",
			func(s *Submission) { *s = Submission{} },
			[]string{FieldCategory, FieldDescription, FieldStreet, FieldNeighborhood, FieldCity, FieldState},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSubmission()
			tt.mutate(&s)

			err := Validate(Normalize(s))

			var verr *ValidationError

			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Missing)
		})
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, Validate(Normalize(validSubmission())))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Missing: []string{FieldCategory, FieldCity}}
	assert.Equal(t, "preencha os campos obrigatórios: categoria, cidade", err.Error())
}

func TestNormalizeCategory(t *testing.T) {
	s := validSubmission()
	s.Category = ""
	s.CustomCategory = "Fio solto"

	n := Normalize(s)
	assert.Equal(t, CategoryOther, n.Category)
	assert.Equal(t, "Fio solto", n.CustomCategory)

	s = validSubmission()
	s.CustomCategory = "ignored"
	assert.Empty(t, Normalize(s).CustomCategory)

	s = validSubmission()
	s.Description = "  <script>alert(1)</script>Buraco   <b>grande</b> "
	assert.Equal(t, "Buraco grande", Normalize(s).Description)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Buraco na via", Title("buraco", ""))
	assert.Equal(t, "Fio solto", Title(CategoryOther, "Fio solto"))
	assert.Equal(t, "Outro problema", Title(CategoryOther, " "))
	assert.Equal(t, "desconhecida", Title("desconhecida", ""))
}

func TestFromSubmission(t *testing.T) {
	s := validSubmission()
	user := &User{ID: "u1", Name: "Maria"}

	d := FromSubmission(s, user)
	assert.Equal(t, "u1", d.UserID)
	assert.Equal(t, "Maria", d.ReporterName)
	assert.Equal(t, StatusUnresolved, d.Status)
	assert.Equal(t, "Rua Augusta, Consolação, São Paulo - SP", d.Location)
	assert.Empty(t, d.Likes)
	assert.Empty(t, d.Dislikes)

	s.IsAnonymous = true
	d = FromSubmission(s, user)
	assert.Equal(t, "u1", d.UserID)
	assert.Equal(t, AnonymousReporter, d.ReporterName)

	s.IsAnonymous = false
	d = FromSubmission(s, nil)
	assert.Equal(t, AnonymousUserID, d.UserID)
	assert.Equal(t, UnknownReporter, d.ReporterName)
}
