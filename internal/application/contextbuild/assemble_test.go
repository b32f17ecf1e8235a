package contextbuild

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/service"
)

type stubChat struct {
	content string
	err     error
	calls   int
}

func (s *stubChat) Generate(_ context.Context, _ *service.ChatRequest) (*service.ChatResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &service.ChatResponse{Content: s.content, PromptTokens: 50, CompletionTokens: 10}, nil
}

func testAssemblerConfig() config.AssemblerConfig {
	return config.AssemblerConfig{
		ResearchCleaning: true,
		AttachmentChars:  8000,
		AttachmentTotal:  20000,
		SynthesisChars:   2000,
	}
}

func TestAssemble_SectionOrder(t *testing.T) {
	a := NewAssembler(nil, testAssemblerConfig(), "m", 1024)

	out, usage := a.Assemble(context.Background(), &AssembleInput{
		BaseRole:      "Du bist der Gruenerator-Assistent.",
		Intent:        classify.IntentInformational,
		MemoryContext: "Nutzer arbeitet im Kreisverband.",
		AttachmentSummaries: []entity.AttachmentSummary{
			{Name: "alt.pdf", Summary: "Frühere Analyse"},
		},
		Attachments: []entity.Attachment{
			{Name: "neu.pdf", Content: "Aktueller Inhalt"},
		},
		SummaryText: "Kurzfassung des Dokuments.",
		Results: []NormalizedResult{
			{Title: "Quelle", Source: "web", Content: "Snippet"},
		},
	})

	assert.Nil(t, usage)

	// Feste Reihenfolge der Abschnitte
	positions := []int{
		strings.Index(out, "Du bist der Gruenerator-Assistent."),
		strings.Index(out, "recherchierte Material"),
		strings.Index(out, "## Nutzerkontext"),
		strings.Index(out, "## Frühere Anhänge"),
		strings.Index(out, "## Aktuelle Anhänge"),
		strings.Index(out, "## Dokumentzusammenfassung"),
		strings.Index(out, "## Rechercheergebnisse"),
	}
	for i, p := range positions {
		require.GreaterOrEqual(t, p, 0, "abschnitt %d fehlt", i)
		if i > 0 {
			assert.Greater(t, p, positions[i-1], "abschnitt %d steht vor abschnitt %d", i, i-1)
		}
	}
}

func TestAssemble_NoRetrievalHint(t *testing.T) {
	a := NewAssembler(nil, testAssemblerConfig(), "m", 1024)

	out, _ := a.Assemble(context.Background(), &AssembleInput{
		BaseRole: "Rolle",
		Intent:   classify.IntentNoRetrieval,
	})

	assert.Contains(t, out, "kein Material recherchiert")
	assert.NotContains(t, out, "## Rechercheergebnisse")
}

func TestAssemble_ResearchSynthesis(t *testing.T) {
	chat := &stubChat{content: "Kohärentes Briefing."}
	a := NewAssembler(chat, testAssemblerConfig(), "m", 1024)

	out, usage := a.Assemble(context.Background(), &AssembleInput{
		Intent:            classify.IntentDeepResearch,
		ResearchSynthesis: true,
		ResearchBrief:     "Vergleich Wärmepumpe vs Gasheizung",
		Results: []NormalizedResult{
			{Title: "A", Source: "web", Content: "roh1"},
			{Title: "B", Source: "web", Content: "roh2"},
		},
	})

	assert.Equal(t, 1, chat.calls)
	assert.Contains(t, out, "Kohärentes Briefing.")
	assert.NotContains(t, out, "roh1")
	require.NotNil(t, usage)
	assert.Equal(t, 50, usage.PromptTokens)
}

func TestAssemble_SynthesisFailureFallsBackToRaw(t *testing.T) {
	chat := &stubChat{err: errors.New("timeout")}
	a := NewAssembler(chat, testAssemblerConfig(), "m", 1024)

	out, usage := a.Assemble(context.Background(), &AssembleInput{
		Intent:            classify.IntentDeepResearch,
		ResearchSynthesis: true,
		Results: []NormalizedResult{
			{Title: "A", Source: "web", Content: "rohinhalt"},
		},
	})

	assert.Contains(t, out, "rohinhalt")
	assert.Nil(t, usage)
}

func TestAssemble_SynthesisDisabledByCapabilityFlag(t *testing.T) {
	chat := &stubChat{content: "sollte nie benutzt werden"}
	cfg := testAssemblerConfig()
	cfg.ResearchCleaning = false
	a := NewAssembler(chat, cfg, "m", 1024)

	out, _ := a.Assemble(context.Background(), &AssembleInput{
		Intent:            classify.IntentDeepResearch,
		ResearchSynthesis: true,
		Results: []NormalizedResult{
			{Title: "A", Source: "web", Content: "rohinhalt"},
		},
	})

	assert.Equal(t, 0, chat.calls)
	assert.Contains(t, out, "rohinhalt")
}

func TestAssemble_SynthesisCapped(t *testing.T) {
	chat := &stubChat{content: strings.Repeat("x", 5000)}
	a := NewAssembler(chat, testAssemblerConfig(), "m", 1024)

	out, _ := a.Assemble(context.Background(), &AssembleInput{
		Intent:            classify.IntentDeepResearch,
		ResearchSynthesis: true,
		Results: []NormalizedResult{
			{Title: "A", Source: "web", Content: "roh"},
		},
	})

	// Synthese wird auf SynthesisChars gekappt
	assert.LessOrEqual(t, strings.Count(out, "x"), 2000)
}

func TestAssemble_AttachmentBudgets(t *testing.T) {
	a := NewAssembler(nil, testAssemblerConfig(), "m", 1024)

	big := strings.Repeat("b", 9000)
	atts := make([]entity.Attachment, 4)
	for i := range atts {
		atts[i] = entity.Attachment{Name: "doc", Content: big}
	}

	out, _ := a.Assemble(context.Background(), &AssembleInput{
		Intent:      classify.IntentInformational,
		Attachments: atts,
	})

	// Einzeldokument auf 8000 gekappt, Gesamtbudget 20000:
	// zwei volle Dokumente plus ein Rest, das vierte fällt weg
	total := strings.Count(out, "b")
	assert.LessOrEqual(t, total, 20000)
	assert.Greater(t, total, 16000)
	assert.Equal(t, 3, strings.Count(out, "### doc"))
}

func TestAssemble_AttachmentsAfterExhaustedBudgetDropped(t *testing.T) {
	a := NewAssembler(nil, testAssemblerConfig(), "m", 1024)

	// Die ersten drei Dokumente verbrauchen das Gesamtbudget von 20000,
	// alles danach erscheint nicht mehr im Kontext
	atts := []entity.Attachment{
		{Name: "erstes", Content: strings.Repeat("a", 8000)},
		{Name: "zweites", Content: strings.Repeat("a", 8000)},
		{Name: "drittes", Content: strings.Repeat("a", 8000)},
		{Name: "viertes", Content: "kurzer text"},
		{Name: "fünftes", Content: "noch ein text"},
	}

	out, _ := a.Assemble(context.Background(), &AssembleInput{
		Intent:      classify.IntentInformational,
		Attachments: atts,
	})

	assert.Contains(t, out, "### erstes")
	assert.Contains(t, out, "### drittes")
	assert.NotContains(t, out, "### viertes")
	assert.NotContains(t, out, "### fünftes")
}
