package attribution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testVocabulary() Vocabulary {
	return Vocabulary{
		MarketerBySymbol: map[string]string{
			"⭐":  "anna",
			"⭐⭐": "bert",
			"🔥":  "cara",
		},
		ProductSymbols: []ProductSymbol{
			{Product: "Glow Lamp", Symbol: "💡"},
			{Product: "Lamp", Symbol: "🔦"},
		},
	}
}

func TestAttributeLongestSymbolWins(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	// ⭐ is a prefix of ⭐⭐; the longer symbol must win.
	core, symbol := engine.Attribute("Super Widget ⭐⭐ – Buy Now")
	require.Equal("⭐⭐", symbol)
	require.Equal("super widget", core)

	core, symbol = engine.Attribute("Super Widget ⭐")
	require.Equal("⭐", symbol)
	require.Equal("super widget", core)
}

func TestAttributeTruncatesAtSeparators(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	core, _ := engine.Attribute("Super Widget 🔥 - Free Shipping!")
	require.Equal("super widget", core)

	core, _ = engine.Attribute("Super Widget 🔥 – Landing Page")
	require.Equal("super widget", core)
}

func TestAttributeIdempotentOnCoreTitle(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	core, _ := engine.Attribute("Ultra Gadget ⭐⭐ (2-Pack!) – Sale")
	again, symbol := engine.Attribute(core)
	require.Equal(core, again)
	require.Empty(symbol)
}

func TestAttributeNoSymbol(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	core, symbol := engine.Attribute("Plain Title")
	require.Empty(symbol)
	require.Equal("plain title", core)
}

func TestMarketerFor(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	require.Equal("bert", engine.MarketerFor("Widget ⭐⭐"))
	require.Equal("anna", engine.MarketerFor("Widget ⭐"))
	require.Equal("", engine.MarketerFor("Widget"))
}

func TestProductSymbolFor(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	// Slice order decides between overlapping product names.
	require.Equal("💡", engine.ProductSymbolFor("GLOW LAMP deluxe"))
	require.Equal("🔦", engine.ProductSymbolFor("Desk Lamp"))
	require.Equal(DefaultProductSymbol, engine.ProductSymbolFor("Widget"))
}

func TestNewEngineRejectsEmptySymbol(t *testing.T) {
	require := require.New(t)

	_, err := NewEngine(Vocabulary{MarketerBySymbol: map[string]string{"": "nobody"}})
	require.Error(err)

	_, err = NewEngine(Vocabulary{ProductSymbols: []ProductSymbol{{Product: "", Symbol: "x"}}})
	require.Error(err)
}

func TestSymbolsOrder(t *testing.T) {
	require := require.New(t)

	engine, err := NewEngine(testVocabulary())
	require.NoError(err)

	// Length is in bytes; the flame emoji encodes longer than a single star.
	require.Equal([]string{"⭐⭐", "🔥", "⭐"}, engine.Symbols())
}
