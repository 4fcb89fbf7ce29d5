package ingestion

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fmuoria/gems-hub/internal/models"
)

// VocabularyEntry is a known gem type name
type VocabularyEntry struct {
	Name string
	ID   int
	key  string
}

// Vocabulary resolves free-text descriptions to known gem type names.
// Longer names are tried first so "Rhodolite Garnet" wins over "Garnet".
type Vocabulary struct {
	entries []VocabularyEntry
}

// NewVocabulary creates a vocabulary from gem type names and IDs
func NewVocabulary(entries []VocabularyEntry) *Vocabulary {
	fold := cases.Fold()
	seen := make(map[string]bool, len(entries))

	v := &Vocabulary{}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		key := fold.String(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		v.entries = append(v.entries, VocabularyEntry{Name: name, ID: e.ID, key: key})
	}

	sort.SliceStable(v.entries, func(i, j int) bool {
		a, b := v.entries[i].key, v.entries[j].key
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	return v
}

// VocabularyFromGems builds a vocabulary from upstream gem records
func VocabularyFromGems(gems []models.GemType) *Vocabulary {
	entries := make([]VocabularyEntry, 0, len(gems))
	for _, g := range gems {
		entries = append(entries, VocabularyEntry{Name: g.Name, ID: g.ID})
	}
	return NewVocabulary(entries)
}

// Resolve returns the longest known name contained in description
func (v *Vocabulary) Resolve(description string) (VocabularyEntry, bool) {
	if v == nil || description == "" {
		return VocabularyEntry{}, false
	}

	folded := cases.Fold().String(description)
	for _, e := range v.entries {
		if strings.Contains(folded, e.key) {
			return e, true
		}
	}
	return VocabularyEntry{}, false
}

// Len returns the number of known names
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}
