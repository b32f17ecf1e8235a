package contextbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gruenerator-assist-api/internal/domain/repository"
)

func TestNormalize_FieldAliases(t *testing.T) {
	raws := []repository.RawResult{
		{"title": "Wahlprogramm 2025", "content": "Kapitel Klima", "url": "https://example.org/wp", "score": 0.92},
		{"name": "Pressespiegel", "snippet": "Auszug aus dem Artikel", "link": "https://example.org/ps", "relevance": 0.8},
		{"source": "Anträge", "excerpt": "Antragstext", "similarity": 0.7},
		{"text": "nur inhalt, sonst nichts"},
	}

	results := Normalize("party-documents", raws)
	require.Len(t, results, 4)

	assert.Equal(t, "Wahlprogramm 2025", results[0].Title)
	assert.Equal(t, "Kapitel Klima", results[0].Content)
	assert.Equal(t, "https://example.org/wp", results[0].URL)
	assert.InDelta(t, 0.92, results[0].Relevance, 1e-9)

	assert.Equal(t, "Pressespiegel", results[1].Title)
	assert.Equal(t, "https://example.org/ps", results[1].URL)

	assert.Equal(t, "Anträge", results[2].Title)
	assert.Empty(t, results[2].URL)

	// Ohne Titel: synthetischer Platzhalter; ohne Score: Positionsabfall
	assert.Equal(t, "party-documents-Ergebnis 4", results[3].Title)
	assert.InDelta(t, 0.7, results[3].Relevance, 1e-9)
}

func TestNormalize_DefaultRelevanceDecay(t *testing.T) {
	raws := make([]repository.RawResult, 12)
	for i := range raws {
		raws[i] = repository.RawResult{"content": "inhalt"}
	}

	results := Normalize("web", raws)
	require.Len(t, results, 12)

	assert.InDelta(t, 1.0, results[0].Relevance, 1e-9)
	assert.InDelta(t, 0.9, results[1].Relevance, 1e-9)
	assert.InDelta(t, 0.1, results[9].Relevance, 1e-9)
	// Abfall wird bei 0 geklemmt, nie negativ
	assert.InDelta(t, 0.0, results[11].Relevance, 1e-9)
}

func TestNormalize_RelevanceClamped(t *testing.T) {
	results := Normalize("web", []repository.RawResult{
		{"content": "a", "score": 1.7},
		{"content": "b", "score": -0.3},
	})
	require.Len(t, results, 2)
	assert.Equal(t, 1.0, results[0].Relevance)
	assert.Equal(t, 0.0, results[1].Relevance)
}

func TestNormalize_SkipsEmptyContent(t *testing.T) {
	results := Normalize("web", []repository.RawResult{
		{"title": "nur titel"},
		{"content": "   "},
		{"content": "brauchbar"},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "brauchbar", results[0].Content)
}

func TestNormalize_Float32Score(t *testing.T) {
	// Milvus-SDK liefert float32-Distanzen
	results := Normalize("examples", []repository.RawResult{
		{"content": "a", "score": float32(0.5)},
	})
	require.Len(t, results, 1)
	assert.InDelta(t, 0.5, results[0].Relevance, 1e-6)
}

func TestBuildCitations(t *testing.T) {
	results := []NormalizedResult{
		{Title: "A", Content: "erster", URL: "https://a.example"},
		{Title: "B", Content: "ohne url"},
		{Title: "C", Content: "zweiter", URL: "https://c.example"},
		{Title: "D", Content: "auch ohne"},
		{Title: "E", Content: "dritter", URL: "https://e.example"},
		{Title: "F", Content: "ohne"},
		{Title: "G", Content: "ohne"},
		{Title: "H", Content: "ohne"},
		{Title: "I", Content: "ohne"},
	}

	citations := BuildCitations(results, 8, 200)
	require.Len(t, citations, 3)

	assert.Equal(t, 1, citations[0].Ordinal)
	assert.Equal(t, "A", citations[0].Title)
	assert.Equal(t, 2, citations[1].Ordinal)
	assert.Equal(t, "C", citations[1].Title)
	assert.Equal(t, 3, citations[2].Ordinal)
	assert.Equal(t, "E", citations[2].Title)
}

func TestBuildCitations_CapAndSnippet(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'x'
	}

	results := make([]NormalizedResult, 10)
	for i := range results {
		results[i] = NormalizedResult{Title: "T", Content: string(long), URL: "https://example.org"}
	}

	citations := BuildCitations(results, 8, 200)
	require.Len(t, citations, 8)
	for _, c := range citations {
		assert.Equal(t, 200, len([]rune(c.Snippet)))
	}
}
