package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *HeuristicClassifier {
	return NewHeuristicClassifier(0.75)
}

func TestHeuristicClassifier_Greeting(t *testing.T) {
	res := newTestClassifier().Classify("hallo, wie geht's?")

	assert.Equal(t, IntentNoRetrieval, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.9)
	assert.Empty(t, res.SearchQuery)
	assert.Nil(t, res.SubQueries)
}

func TestHeuristicClassifier_ExplicitWebSearch(t *testing.T) {
	res := newTestClassifier().Classify("suche im netz nach klimapolitik")

	assert.Equal(t, IntentWebSearch, res.Intent)
	// Konfidenz über dem Gate: kein LLM-Fallback nötig
	assert.GreaterOrEqual(t, res.Confidence, 0.85)
	assert.Equal(t, "klimapolitik", res.SearchQuery)
}

func TestHeuristicClassifier_FactualCreativeTask(t *testing.T) {
	res := newTestClassifier().Classify("schreib eine pressemitteilung über die Energiewende")

	assert.Equal(t, IntentDeepResearch, res.Intent)
	assert.Equal(t, "Energiewende", res.SearchQuery)
	assert.GreaterOrEqual(t, res.Confidence, 0.85)
}

func TestHeuristicClassifier_Cascade(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantIntent Intent
		minConf    float64
	}{
		{"begrüßung guten morgen", "Guten Morgen zusammen!", IntentNoRetrieval, 0.9},
		{"dank", "danke dir!", IntentNoRetrieval, 0.9},
		{"sharepic", "erstelle ein sharepic zur verkehrswende", IntentImageGeneration, 0.9},
		{"explizite recherche", "recherchiere zu wärmepumpen-förderung", IntentDeepResearch, 0.85},
		{"wahlprogramm", "was steht im wahlprogramm zur kindergrundsicherung?", IntentPartyDocument, 0.85},
		{"beispiel-anfrage", "zeig mir beispiele für kommunale anträge", IntentExampleSearch, 0.85},
		{"sachfrage", "was ist der emissionshandel?", IntentInformational, 0.7},
		{"kreativ ohne faktenmarker", "schreibe ein gedicht über den frühling", IntentNoRetrieval, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestClassifier().Classify(tt.message)
			assert.Equal(t, tt.wantIntent, res.Intent)
			assert.GreaterOrEqual(t, res.Confidence, tt.minConf)
		})
	}
}

func TestHeuristicClassifier_BareGreetings(t *testing.T) {
	// Einwort-Grüße mit und ohne Satzzeichen bleiben beim Regelwerk
	// hängen und erreichen nie den LLM-Fallback
	for _, msg := range []string{"hi", "Hi!", "hi.", "hey.", "Moin", "hallo"} {
		res := newTestClassifier().Classify(msg)
		assert.Equal(t, IntentNoRetrieval, res.Intent, "message %q", msg)
		assert.InDelta(t, 0.95, res.Confidence, 1e-9, "message %q", msg)
		assert.Empty(t, res.SearchQuery, "message %q", msg)
	}

	// "hi" greift nur als ganzes erstes Wort, nicht als Präfix
	res := newTestClassifier().Classify("hilfe beim antragstext bitte")
	assert.NotEqual(t, 0.95, res.Confidence)
}

func TestHeuristicClassifier_GreetingBeforeQuestionRule(t *testing.T) {
	// "hallo" steht vor jeder anderen Regel, auch wenn danach eine Frage folgt
	res := newTestClassifier().Classify("hallo! was ist eigentlich der länderfinanzausgleich?")
	assert.Equal(t, IntentNoRetrieval, res.Intent)
}

func TestHeuristicClassifier_FuzzyFallback(t *testing.T) {
	// "wahlprogram" (Tippfehler) trifft keine exakte Regel, aber die Fuzzy-Schicht
	res := newTestClassifier().Classify("steht dazu etwas im wahlprogram?")

	assert.Equal(t, IntentPartyDocument, res.Intent)
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)
	assert.NotEmpty(t, res.SearchQuery)
}

func TestHeuristicClassifier_DefaultResult(t *testing.T) {
	// Ohne Treffer wird nichts recherchiert: no-retrieval, niedrige
	// Konfidenz, keine Suchanfrage
	res := newTestClassifier().Classify("xyzzy plugh")

	require.NotNil(t, res)
	assert.Equal(t, IntentNoRetrieval, res.Intent)
	assert.InDelta(t, 0.50, res.Confidence, 1e-9)
	assert.Empty(t, res.SearchQuery)
	assert.Nil(t, res.SubQueries)
}

func TestHeuristicClassifier_EmptyMessage(t *testing.T) {
	res := newTestClassifier().Classify("   ")

	require.NotNil(t, res)
	assert.Equal(t, IntentNoRetrieval, res.Intent)
	assert.Empty(t, res.SearchQuery)
}

func TestHeuristicClassifier_NoQueryForNoRetrieval(t *testing.T) {
	// Invariante: Intents ohne Retrieval tragen nie eine Suchanfrage
	for _, msg := range []string{"hallo", "erstelle ein bild von einem windrad", "schreibe einen liebesbrief"} {
		res := newTestClassifier().Classify(msg)
		assert.False(t, res.Intent.NeedsRetrieval(), "message %q", msg)
		assert.Empty(t, res.SearchQuery, "message %q", msg)
		assert.Nil(t, res.SubQueries, "message %q", msg)
	}
}

func TestRemapIntent(t *testing.T) {
	for _, legacy := range []string{"person", "person-search", " Person "} {
		mapped, ok := RemapIntent(legacy)
		assert.True(t, ok, "legacy %q", legacy)
		assert.Equal(t, IntentWebSearch, mapped)
	}

	_, ok := RemapIntent("web-search")
	assert.False(t, ok)
}

func TestAssessComplexity(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Complexity
	}{
		{"kurze sachfrage", "was ist co2?", ComplexitySimple},
		{"analytische frage", "warum steigen die strompreise trotz ausbau der erneuerbaren?", ComplexityModerate},
		{
			"vergleich mit mehreren fragen",
			"vergleiche die auswirkungen von wärmepumpen und gasheizungen auf die co2-bilanz? welche förderung gibt es jeweils? wie unterscheiden sich die betriebskosten?",
			ComplexityComplex,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessComplexity(tt.message))
		})
	}
}
