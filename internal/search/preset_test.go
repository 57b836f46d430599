package search

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func doc(text string, age, exp *int) Doc {
	return Doc{ID: uuid.New(), Text: Normalize(text), Age: age, Experience: exp}
}

func TestMatchesTerms_PhrasesAreSubstrings(t *testing.T) {
	text := Normalize("Gerente de Compras na região de São Paulo")

	assert.True(t, MatchesTerms(text, []string{"gerente de compras"}, ModeAll))
	assert.True(t, MatchesTerms(text, []string{"gerente", "compras"}, ModeAll))
	assert.False(t, MatchesTerms(text, []string{"gerente de vendas"}, ModeAll))
}

func TestMatchesTerms_Modes(t *testing.T) {
	text := Normalize("gerente de compras")

	assert.False(t, MatchesTerms(text, []string{"gerente", "vendas"}, ModeAll))
	assert.True(t, MatchesTerms(text, []string{"gerente", "vendas"}, ModeAny))
	assert.False(t, MatchesTerms(text, []string{"vendas", "financeiro"}, ModeAny))
}

func TestMatchesTerms_NoTermsMatchesEverything(t *testing.T) {
	assert.True(t, MatchesTerms("anything", nil, ModeAll))
	assert.True(t, MatchesTerms("", nil, ModeAny))
}

func TestFilter_QueryIntersection(t *testing.T) {
	d1 := doc("gerente de compras", nil, nil)
	d2 := doc("analista de compras", nil, nil)
	d3 := doc("gerente de vendas", nil, nil)

	ids := Filter([]Doc{d1, d2, d3}, Criteria{Terms: SplitTerms("gerente;compras"), Mode: ModeAll})

	assert.Equal(t, []uuid.UUID{d1.ID}, ids)
}

func TestCriteria_ExcludeTermsRejectHits(t *testing.T) {
	c := Criteria{Terms: []string{"gerente"}, Mode: ModeAll, ExcludeTerms: []string{"estagiario"}}

	assert.True(t, c.Matches(doc("gerente de compras", nil, nil)))
	assert.False(t, c.Matches(doc("gerente estagiário de compras", nil, nil)))
}

func TestFilter_ExcludeWithoutTerms(t *testing.T) {
	d1 := doc("gerente de compras", nil, nil)
	d2 := doc("gerente de vendas", nil, nil)

	ids := Filter([]Doc{d1, d2}, Criteria{ExcludeTerms: []string{"vendas"}})

	assert.Equal(t, []uuid.UUID{d1.ID}, ids)
}

func TestCriteria_AgeRangeInclusive(t *testing.T) {
	c := Criteria{AgeMin: intp(25), AgeMax: intp(35)}

	assert.False(t, c.Matches(doc("x", intp(24), nil)))
	assert.True(t, c.Matches(doc("x", intp(25), nil)))
	assert.True(t, c.Matches(doc("x", intp(30), nil)))
	assert.True(t, c.Matches(doc("x", intp(35), nil)))
	assert.False(t, c.Matches(doc("x", intp(36), nil)))
}

func TestCriteria_AbsentValueIsExcludedByActiveRange(t *testing.T) {
	c := Criteria{AgeMin: intp(25)}
	assert.False(t, c.Matches(doc("x", nil, nil)))

	// No active range: absence is fine.
	assert.True(t, Criteria{}.Matches(doc("x", nil, nil)))
}

func TestCriteria_ExperienceRange(t *testing.T) {
	c := Criteria{ExperienceMin: intp(2), ExperienceMax: intp(10)}

	assert.True(t, c.Matches(doc("x", nil, intp(5))))
	assert.False(t, c.Matches(doc("x", nil, intp(1))))
	assert.False(t, c.Matches(doc("x", nil, nil)))
}

func TestFilter_ComposesPresetAndQuery(t *testing.T) {
	d1 := doc("gerente de compras", intp(30), nil)
	d2 := doc("gerente de compras", intp(50), nil)
	d3 := doc("analista financeiro", intp(30), nil)

	preset := Criteria{Terms: []string{"gerente"}, Mode: ModeAny, AgeMin: intp(25), AgeMax: intp(35)}
	query := Criteria{Terms: SplitTerms("compras"), Mode: ModeAll}

	ids := Filter([]Doc{d1, d2, d3}, preset, query)

	assert.Equal(t, []uuid.UUID{d1.ID}, ids)
}

func TestFilter_NoCriteriaReturnsAll(t *testing.T) {
	d1 := doc("a", nil, nil)
	d2 := doc("b", nil, nil)

	assert.Equal(t, []uuid.UUID{d1.ID, d2.ID}, Filter([]Doc{d1, d2}))
}
