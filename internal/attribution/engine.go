// Package attribution maps free-text page and product titles to a normalized
// core title plus a marketer symbol. Titles come from two independent systems
// with no shared key, so substring matching against a small curated symbol
// vocabulary is the attribution mechanism.
package attribution

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultProductSymbol marks purchase events whose product matched no entry
// in the product map.
const DefaultProductSymbol = "\U0001F6D2" // 🛒

// ProductSymbol is one product-name to symbol association. Matching is
// case-insensitive substring, evaluated in slice order.
type ProductSymbol struct {
	Product string `json:"product"`
	Symbol  string `json:"symbol"`
}

// Vocabulary is the externally supplied attribution config. It is validated
// once at engine construction and never re-read.
type Vocabulary struct {
	// MarketerBySymbol maps each known symbol to the marketer it tags.
	MarketerBySymbol map[string]string `json:"page_title_mapping"`
	// ProductSymbols is an ordered product-name to symbol mapping.
	ProductSymbols []ProductSymbol `json:"product_to_symbol_mapping"`
}

// Engine performs symbol attribution. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	symbols  []string // longest-first
	marketer map[string]string
	products []ProductSymbol // product names pre-lowered
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// NewEngine validates the vocabulary and builds an engine. Symbols are
// ordered longest-first so a symbol that is a substring of a longer one never
// wins by accident; ties break lexicographically for determinism.
func NewEngine(v Vocabulary) (*Engine, error) {
	marketer := make(map[string]string, len(v.MarketerBySymbol))
	symbols := make([]string, 0, len(v.MarketerBySymbol))
	for sym, name := range v.MarketerBySymbol {
		if sym == "" {
			return nil, fmt.Errorf("empty symbol in marketer mapping")
		}
		marketer[sym] = name
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool {
		if len(symbols[i]) != len(symbols[j]) {
			return len(symbols[i]) > len(symbols[j])
		}
		return symbols[i] < symbols[j]
	})

	products := make([]ProductSymbol, 0, len(v.ProductSymbols))
	for _, p := range v.ProductSymbols {
		if p.Product == "" {
			return nil, fmt.Errorf("empty product name in product mapping")
		}
		products = append(products, ProductSymbol{
			Product: strings.ToLower(p.Product),
			Symbol:  p.Symbol,
		})
	}

	return &Engine{symbols: symbols, marketer: marketer, products: products}, nil
}

// Symbols returns the known symbols in longest-first match order.
func (e *Engine) Symbols() []string {
	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Attribute extracts the join key from a raw title: the first known symbol
// (longest-first) found anywhere in the title, and the normalized core title.
func (e *Engine) Attribute(title string) (coreTitle, symbol string) {
	for _, s := range e.symbols {
		if strings.Contains(title, s) {
			symbol = s
			break
		}
	}
	return e.normalize(title), symbol
}

// normalize lowers the title, truncates at the first en-dash or spaced
// hyphen, strips every known symbol and all non-word, non-space runes, and
// trims whitespace. It is idempotent on its own output.
func (e *Engine) normalize(title string) string {
	cleaned := strings.ToLower(title)
	if i := strings.Index(cleaned, "–"); i >= 0 {
		cleaned = cleaned[:i]
	}
	if i := strings.Index(cleaned, " - "); i >= 0 {
		cleaned = cleaned[:i]
	}
	for _, s := range e.symbols {
		cleaned = strings.ReplaceAll(cleaned, strings.ToLower(s), "")
	}
	cleaned = nonWord.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// MarketerFor returns the marketer mapped from the first known symbol found
// in the original, non-normalized title, or "" when none matches.
func (e *Engine) MarketerFor(title string) string {
	for _, s := range e.symbols {
		if strings.Contains(title, s) {
			return e.marketer[s]
		}
	}
	return ""
}

// ProductSymbolFor matches a product title against the product map
// case-insensitively and returns the mapped symbol, or the default placeholder
// when no product name is contained in the title.
func (e *Engine) ProductSymbolFor(productTitle string) string {
	lowered := strings.ToLower(productTitle)
	for _, p := range e.products {
		if strings.Contains(lowered, p.Product) {
			return p.Symbol
		}
	}
	return DefaultProductSymbol
}
