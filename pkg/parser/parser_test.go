package parser_test

import (
	"testing"

	"github.com/aretw0/nutri/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemLine(t *testing.T) {
	tests := []struct {
		input    string
		wantOK   bool
		wantName string
		wantQty  float64
	}{
		{"pollo cocido 180g", true, "pollo cocido", 180},
		{"arroz 200", true, "arroz", 200},
		{"pepino 100 g", true, "pepino", 100},
		{"  Pan   Integral   45,5 gr ", true, "Pan Integral", 45.5},
		{"avena 1.5", true, "avena", 1.5},
		{"huevo 2 100g", true, "huevo 2", 100},
		{"arroz200", true, "arroz", 200},
		{"   ", false, "", 0},
		{"", false, "", 0},
		{"solotexto", false, "", 0},
		{"algo -5g", false, "", 0},
		{"algo 0g", false, "", 0},
		{"180g", false, "", 0},
		{"pollo 180g extra", false, "", 0},
		{"- 5", false, "", 0},
		{"... 100", false, "", 0},
		{"algo - 5g", false, "", 0},
		{"algo -- 5", false, "", 0},
		{"yogur: 100", true, "yogur", 100},
		{"leche + 200ml", true, "leche", 200},
		{"café (taza) 250", true, "café (taza)", 250},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			item, ok := parser.ParseItemLine(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantName, item.Name)
			assert.InDelta(t, tt.wantQty, item.Quantity, 1e-9)
		})
	}
}

func TestParseItemLine_RoundTrip(t *testing.T) {
	items := []parser.Item{
		{Name: "pollo cocido", Quantity: 180},
		{Name: "Queso Fresco", Quantity: 12.5},
		{Name: "pan 7 semillas", Quantity: 60},
		{Name: "yogur", Quantity: 0.25},
	}
	for _, it := range items {
		line := parser.FormatItemLine(it)
		got, ok := parser.ParseItemLine(line)
		require.True(t, ok, "line %q", line)
		assert.Equal(t, it.Name, got.Name)
		assert.Equal(t, it.Quantity, got.Quantity)

		again, ok := parser.ParseItemLine(parser.FormatItemLine(got))
		require.True(t, ok)
		assert.Equal(t, got, again)
	}
}

func TestParseItemLine_Deterministic(t *testing.T) {
	first, ok1 := parser.ParseItemLine("lentejas 150 g")
	for i := 0; i < 100; i++ {
		got, ok := parser.ParseItemLine("lentejas 150 g")
		assert.Equal(t, ok1, ok)
		assert.Equal(t, first, got)
	}
}

func TestParseDecimal(t *testing.T) {
	v, ok := parser.ParseDecimal("172,5")
	assert.True(t, ok)
	assert.Equal(t, 172.5, v)

	v, ok = parser.ParseDecimal("80.")
	assert.True(t, ok)
	assert.Equal(t, 80.0, v)

	_, ok = parser.ParseDecimal("1,2,3")
	assert.False(t, ok)

	_, ok = parser.ParseDecimal("abc")
	assert.False(t, ok)
}

func TestParseInt(t *testing.T) {
	v, ok := parser.ParseInt(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = parser.ParseInt("42.5")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "superavit", parser.Normalize("  Superávit "))
	assert.Equal(t, "muy alto", parser.Normalize("MUY_ALTO"))
	assert.Equal(t, "muy alto", parser.Normalize("muy   alto"))
	assert.Equal(t, "deficit", parser.Normalize("Déficit"))
}

func TestNormalizeCommand(t *testing.T) {
	assert.Equal(t, "/start@nutri_bot", parser.NormalizeCommand("/START@nutri_bot"))
	assert.Equal(t, "/start", parser.NormalizeCommand("/start deep-link"))
	assert.Equal(t, "help", parser.NormalizeCommand(" Help "))
	assert.Equal(t, "", parser.NormalizeCommand("help me"))
	assert.Equal(t, "", parser.NormalizeCommand(""))
}
