package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fmuoria/gems-hub/internal/models"
)

func TestVocabulary_LongestNameWins(t *testing.T) {
	v := NewVocabulary([]VocabularyEntry{
		{Name: "Garnet", ID: 1},
		{Name: "Rhodolite Garnet", ID: 2},
	})

	e, ok := v.Resolve("Rhodolite Garnet parcel")
	assert.True(t, ok)
	assert.Equal(t, "Rhodolite Garnet", e.Name)
	assert.Equal(t, 2, e.ID)

	e, ok = v.Resolve("Mozambique garnet pair")
	assert.True(t, ok)
	assert.Equal(t, "Garnet", e.Name)
}

func TestVocabulary_CaseInsensitive(t *testing.T) {
	v := NewVocabulary([]VocabularyEntry{{Name: "Tanzanite", ID: 5}})

	e, ok := v.Resolve("TOP TANZANITE 2ct")
	assert.True(t, ok)
	assert.Equal(t, "Tanzanite", e.Name)
}

func TestVocabulary_TieBreakIsAlphabetical(t *testing.T) {
	v := NewVocabulary([]VocabularyEntry{
		{Name: "Topaz", ID: 1},
		{Name: "Beryl", ID: 2},
	})

	e, ok := v.Resolve("beryl and topaz lot")
	assert.True(t, ok)
	assert.Equal(t, "Beryl", e.Name)
}

func TestVocabulary_NoMatch(t *testing.T) {
	v := NewVocabulary([]VocabularyEntry{{Name: "Opal"}, {Name: " "}, {Name: "opal"}})
	assert.Equal(t, 1, v.Len())

	_, ok := v.Resolve("Quartz cluster")
	assert.False(t, ok)

	var nilVocab *Vocabulary
	_, ok = nilVocab.Resolve("Opal")
	assert.False(t, ok)
	assert.Equal(t, 0, nilVocab.Len())
}

func TestVocabularyFromGems(t *testing.T) {
	v := VocabularyFromGems([]models.GemType{{ID: 3, Name: "Spinel"}})

	e, ok := v.Resolve("red spinel")
	assert.True(t, ok)
	assert.Equal(t, 3, e.ID)
}
