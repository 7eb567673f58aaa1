// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"strings"

	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/utils/htmlutils"
)

// Required field keys, in the order the form shows them.
const (
	FieldCategory     = "category"
	FieldDescription  = "description"
	FieldStreet       = "street"
	FieldNeighborhood = "neighborhood"
	FieldCity         = "city"
	FieldState        = "state"
)

var fieldLabels = map[string]string{
	FieldCategory:     "categoria",
	FieldDescription:  "descrição",
	FieldStreet:       "rua",
	FieldNeighborhood: "bairro",
	FieldCity:         "cidade",
	FieldState:        "estado",
}

// ValidationError lists the required fields left empty.
type ValidationError struct {
	Missing []string `json:"missing"`
}

func (e *ValidationError) Error() string {
	labels := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		labels[i] = fieldLabels[f]
	}

	return "preencha os campos obrigatórios: " + strings.Join(labels, ", ")
}

// Normalize strips markup and surrounding white space from every free text
// field. A custom category without a category selects "outro"; with any
// other category the custom text is dropped.
func Normalize(s Submission) Submission {
	s.Category = strings.TrimSpace(htmlutils.PlainText(s.Category))
	s.CustomCategory = htmlutils.PlainText(s.CustomCategory)
	s.Description = htmlutils.PlainText(s.Description)
	s.Address = location.Address{
		Street:       htmlutils.PlainText(s.Address.Street),
		Neighborhood: htmlutils.PlainText(s.Address.Neighborhood),
		City:         htmlutils.PlainText(s.Address.City),
		State:        htmlutils.PlainText(s.Address.State),
	}

	switch {
	case s.Category == "" && s.CustomCategory != "":
		s.Category = CategoryOther
	case s.Category != CategoryOther:
		s.CustomCategory = ""
	}

	return s
}

// Validate checks the required fields of a normalized submission.
func Validate(s Submission) error {
	var missing []string

	if s.Category == "" {
		missing = append(missing, FieldCategory)
	}

	for _, f := range []struct {
		key   string
		value string
	}{
		{FieldDescription, s.Description},
		{FieldStreet, s.Address.Street},
		{FieldNeighborhood, s.Address.Neighborhood},
		{FieldCity, s.Address.City},
		{FieldState, s.Address.State},
	} {
		if f.value == "" {
			missing = append(missing, f.key)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	return nil
}
