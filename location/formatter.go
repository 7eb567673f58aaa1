// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jcodagnone/denuncia/utils/textutils"
)

// Placeholders used when a field could not be resolved.
const (
	UnknownStreet       = "Rua não identificada"
	UnknownNeighborhood = "Bairro não identificado"
	UnknownCity         = "Cidade não identificada"
	UnknownState        = "Estado não identificado"
)

// Address is a display ready Brazilian address.
type Address struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// FullAddress renders the address as "<rua>, <bairro>, <cidade> - <estado>".
func (a Address) FullAddress() string {
	return a.Street + ", " + a.Neighborhood + ", " + a.City + " - " + a.State
}

// RawAddress holds the address fields a provider returned. Any subset may be
// empty. The json tags match the Nominatim address object.
type RawAddress struct {
	Road          string `json:"road"`
	Street        string `json:"street"`
	Highway       string `json:"highway"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	District      string `json:"district"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	County        string `json:"county"`
	State         string `json:"state"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}

// FormatAddress picks the best candidate for every field and normalizes it.
// The returned fields are never empty.
func FormatAddress(raw RawAddress) Address {
	return Address{
		Street:       FormatStreet(firstNonEmpty(raw.Road, raw.Street, raw.Highway)),
		Neighborhood: FormatNeighborhood(firstNonEmpty(raw.Suburb, raw.Neighbourhood, raw.District)),
		City:         FormatCity(firstNonEmpty(raw.City, raw.Town, raw.Village, raw.County)),
		State:        FormatState(raw.State),
	}
}

var streetTypes = map[string]string{
	"rua":     "Rua",
	"r":       "Rua",
	"avenida": "Avenida",
	"av":      "Avenida",
	"estrada": "Estrada",
}

// FormatStreet strips numbers and punctuation and makes sure the street name
// starts with its type (Rua, Avenida or Estrada).
func FormatStreet(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}

		return ' '
	}, s)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return UnknownStreet
	}

	folded := strings.Fields(textutils.LowerASCIIFolding(cleaned))

	prefix, explicit := streetTypes[folded[0]]
	if explicit {
		words = words[1:]
		if len(words) == 0 {
			return UnknownStreet
		}
	} else {
		prefix = inferStreetType(folded)
	}

	return prefix + " " + strings.Join(words, " ")
}

func inferStreetType(folded []string) string {
	joined := strings.Join(folded, " ")

	switch {
	case strings.Contains(joined, "avenida"):
		return "Avenida"
	case containsWord(folded, "av"):
		return "Avenida"
	case strings.Contains(joined, "estrada"):
		return "Estrada"
	default:
		return "Rua"
	}
}

func containsWord(words []string, w string) bool {
	for _, candidate := range words {
		if candidate == w {
			return true
		}
	}

	return false
}

func capitalizeFirst(s string) string {
	s = cases.Lower(language.BrazilianPortuguese).String(textutils.CollapseSpaces(s))
	if s == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(s)

	return string(unicode.ToTitle(r)) + s[size:]
}

// FormatNeighborhood capitalizes the first letter and lowercases the rest.
func FormatNeighborhood(s string) string {
	if s = capitalizeFirst(s); s == "" {
		return UnknownNeighborhood
	}

	return s
}

// FormatCity capitalizes the first letter and lowercases the rest.
func FormatCity(s string) string {
	if s = capitalizeFirst(s); s == "" {
		return UnknownCity
	}

	return s
}

// FormatState uppercases the state name or code.
func FormatState(s string) string {
	if s = textutils.CollapseSpaces(s); s == "" {
		return UnknownState
	}

	return cases.Upper(language.BrazilianPortuguese).String(s)
}
