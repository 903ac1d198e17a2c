package scanner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Category is a closed set of strategy categories. The registry is keyed
// by it, so an unknown category can never reach a scan.
type Category string

const (
	CategoryDayTrading   Category = "day_trading"
	CategoryShortSelling Category = "short_selling"
	CategorySwingShort   Category = "swing_short"
	CategorySwingLong    Category = "swing_long"
	CategoryLongTerm     Category = "long_term"
)

// AllCategories returns every known category in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryDayTrading,
		CategoryShortSelling,
		CategorySwingShort,
		CategorySwingLong,
		CategoryLongTerm,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDayTrading, CategoryShortSelling, CategorySwingShort, CategorySwingLong, CategoryLongTerm:
		return true
	}
	return false
}

// ParseCategory converts a request string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// CategoryProfile maps one category to its symbols of interest.
type CategoryProfile struct {
	Category Category `json:"category"`
	Symbols  []string `json:"symbols"`
}

// CategoryRegistry holds the static category-to-symbols configuration and
// its reverse index. It is read-only during a scan; Reload swaps the whole
// table atomically, never element by element.
type CategoryRegistry struct {
	mu       sync.RWMutex
	profiles map[Category][]string
	reverse  map[string][]Category
}

// NewCategoryRegistry builds a registry from the given profiles. Symbols
// are normalized to uppercase and deduplicated per category.
func NewCategoryRegistry(profiles []CategoryProfile) *CategoryRegistry {
	r := &CategoryRegistry{}
	r.Reload(profiles)
	return r
}

// Reload replaces the whole symbol universe in one atomic swap.
func (r *CategoryRegistry) Reload(profiles []CategoryProfile) {
	table := make(map[Category][]string, len(profiles))
	reverse := make(map[string][]Category)

	for _, p := range profiles {
		if !p.Category.Valid() {
			continue
		}
		seen := make(map[string]bool, len(p.Symbols))
		symbols := make([]string, 0, len(p.Symbols))
		for _, s := range p.Symbols {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			symbols = append(symbols, s)
			reverse[s] = append(reverse[s], p.Category)
		}
		table[p.Category] = symbols
	}

	r.mu.Lock()
	r.profiles = table
	r.reverse = reverse
	r.mu.Unlock()
}

// SymbolsFor returns the union of the given categories' symbol sets,
// sorted for deterministic iteration.
func (r *CategoryRegistry) SymbolsFor(categories []Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, c := range categories {
		for _, s := range r.profiles[c] {
			seen[s] = true
		}
	}

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// CategoriesFor returns every category interested in the given symbol.
func (r *CategoryRegistry) CategoriesFor(symbol string) []Category {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.RLock()
	defer r.mu.RUnlock()

	cats := r.reverse[symbol]
	out := make([]Category, len(cats))
	copy(out, cats)
	return out
}

// Profiles returns a snapshot of the current configuration.
func (r *CategoryRegistry) Profiles() []CategoryProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CategoryProfile, 0, len(r.profiles))
	for _, c := range AllCategories() {
		symbols, ok := r.profiles[c]
		if !ok {
			continue
		}
		cp := CategoryProfile{Category: c, Symbols: make([]string, len(symbols))}
		copy(cp.Symbols, symbols)
		out = append(out, cp)
	}
	return out
}
