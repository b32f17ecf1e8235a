package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"kreativauftrag mit thema",
			"schreib eine pressemitteilung über die Energiewende",
			"Energiewende",
		},
		{
			"auftrag mit höflichkeitsfloskel",
			"verfasse mir bitte einen Antrag zum Radwegeausbau",
			"Radwegeausbau",
		},
		{
			"englischer auftrag",
			"write an article about heat pumps",
			"heat pumps",
		},
		{
			"reines thema bleibt unverändert",
			"Kindergrundsicherung",
			"Kindergrundsicherung",
		},
		{
			"frage bleibt weitgehend erhalten",
			"wie hoch ist der CO2-Preis 2026?",
			"wie hoch ist der CO2-Preis 2026",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OptimizeQuery(tt.input))
		})
	}
}

func TestOptimizeQuery_FailSafe(t *testing.T) {
	// Das Stripping darf nie eine leere oder fast leere Anfrage liefern
	tests := []struct {
		name  string
		input string
	}{
		{"nur auftrag ohne thema", "schreib eine Rede"},
		{"nur verb", "schreibe"},
		{"kurzes thema nach stripping", "erstelle einen Text zu KI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.input, OptimizeQuery(tt.input))
		})
	}
}

func TestOptimizeQuery_Whitespace(t *testing.T) {
	assert.Equal(t, "", OptimizeQuery("   "))
}

func TestExtractSearchTopic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"suche im netz", "suche im netz nach klimapolitik", "klimapolitik"},
		{"suche im internet", "suche im internet nach Mietendeckel Urteil", "Mietendeckel Urteil"},
		{"recherchiere", "recherchiere zu kommunaler Wärmeplanung", "kommunaler Wärmeplanung"},
		{"ohne suchphrase", "schreib einen Artikel über Bürgerenergie", "Bürgerenergie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSearchTopic(tt.input))
		})
	}
}

func TestExtractSearchTopic_ShortRemainder(t *testing.T) {
	// Nach dem Phrasen-Stripping bleibt zu wenig übrig: Original durchreichen
	got := ExtractSearchTopic("suche nach KI")
	assert.Equal(t, "suche nach KI", got)
}
