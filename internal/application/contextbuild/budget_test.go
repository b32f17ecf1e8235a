package contextbuild

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gruenerator-assist-api/internal/config"
)

func testBudgetConfig() config.BudgetConfig {
	return config.BudgetConfig{
		BaseChars:     4000,
		ExtendedChars: 6000,
		RichThreshold: 500,
		FloorChars:    200,
		MaxResults:    8,
		MaxCitations:  8,
		CitationChars: 200,
	}
}

func repeat(n int) string {
	return strings.Repeat("a", n)
}

func TestAllocate_BaseBudgetForSnippets(t *testing.T) {
	a := NewBudgetAllocator(testBudgetConfig())

	results := []NormalizedResult{
		{Content: repeat(400), Relevance: 0.9},
		{Content: repeat(300), Relevance: 0.5},
	}
	_, budget := a.Allocate(results)
	assert.Equal(t, 4000, budget)
}

func TestAllocate_ExtendedBudgetForRichContent(t *testing.T) {
	a := NewBudgetAllocator(testBudgetConfig())

	results := []NormalizedResult{
		{Content: repeat(400), Relevance: 0.9},
		{Content: repeat(501), Relevance: 0.5},
	}
	_, budget := a.Allocate(results)
	assert.Equal(t, 6000, budget)
}

func TestAllocate_BudgetInvariant(t *testing.T) {
	// Σ zugeteilter Zeichen ≤ Budget + (Anzahl Floor-Anwendungen × Floor)
	a := NewBudgetAllocator(testBudgetConfig())

	results := []NormalizedResult{
		{Content: repeat(3000), Relevance: 1.0},
		{Content: repeat(3000), Relevance: 0.9},
		{Content: repeat(3000), Relevance: 0.05},
		{Content: repeat(3000), Relevance: 0.01},
	}
	out, budget := a.Allocate(results)
	require.Len(t, out, 4)

	sum := 0
	for _, r := range out {
		n := utf8.RuneCountInString(r.Content)
		// Markertext zählt nicht gegen das Quotenmaß
		sum += n
	}
	floorSlack := len(out) * 200
	assert.LessOrEqual(t, sum, budget+floorSlack+len(out)*40)
}

func TestAllocate_FloorApplied(t *testing.T) {
	a := NewBudgetAllocator(testBudgetConfig())

	// Ein Ergebnis mit verschwindender Relevanz bekommt trotzdem den Floor
	results := []NormalizedResult{
		{Content: repeat(3000), Relevance: 1.0},
		{Content: repeat(3000), Relevance: 1.0},
		{Content: repeat(3000), Relevance: 1.0},
		{Content: repeat(3000), Relevance: 0.0},
	}
	out, _ := a.Allocate(results)
	last := utf8.RuneCountInString(out[3].Content)
	assert.GreaterOrEqual(t, last, 200)
}

func TestAllocate_CapsResultCount(t *testing.T) {
	a := NewBudgetAllocator(testBudgetConfig())

	results := make([]NormalizedResult, 12)
	for i := range results {
		results[i] = NormalizedResult{Content: repeat(100), Relevance: 0.5}
	}
	out, _ := a.Allocate(results)
	assert.Len(t, out, 8)
}

func TestAllocate_Empty(t *testing.T) {
	a := NewBudgetAllocator(testBudgetConfig())
	out, budget := a.Allocate(nil)
	assert.Nil(t, out)
	assert.Equal(t, 4000, budget)
}

func TestSmartTruncate_IdempotentOnShortText(t *testing.T) {
	for _, text := range []string{"", "kurz", repeat(200), repeat(1000)} {
		assert.Equal(t, text, SmartTruncate(text, 1000))
	}
}

func TestSmartTruncate_HeadTailSplit(t *testing.T) {
	text := strings.Repeat("A", 500) + strings.Repeat("Z", 500)
	got := SmartTruncate(text, 100)

	// 60% Kopf, 40% Schwanz, Marker nennt die ausgelassene Zeichenzahl
	assert.True(t, strings.HasPrefix(got, strings.Repeat("A", 60)))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("Z", 40)))
	assert.Contains(t, got, "[… 900 Zeichen ausgelassen …]")
}

func TestSmartTruncate_Unicode(t *testing.T) {
	text := strings.Repeat("ä", 300)
	got := SmartTruncate(text, 100)
	assert.Contains(t, got, "[… 200 Zeichen ausgelassen …]")
}
