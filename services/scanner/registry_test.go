package scanner

import (
	"reflect"
	"testing"
)

func testProfiles() []CategoryProfile {
	return []CategoryProfile{
		{Category: CategoryDayTrading, Symbols: []string{"RELIANCE", "tcs", "RELIANCE "}},
		{Category: CategoryShortSelling, Symbols: []string{"RELIANCE", "INFY"}},
		{Category: CategoryLongTerm, Symbols: []string{"HDFCBANK"}},
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Day_Trading ")
	if err != nil || c != CategoryDayTrading {
		t.Fatalf("ParseCategory = %v, %v", c, err)
	}
	if _, err := ParseCategory("scalping"); err == nil {
		t.Fatal("ParseCategory accepted an unknown category")
	}
}

func TestSymbolsForUnion(t *testing.T) {
	r := NewCategoryRegistry(testProfiles())

	got := r.SymbolsFor([]Category{CategoryDayTrading, CategoryShortSelling})
	want := []string{"INFY", "RELIANCE", "TCS"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SymbolsFor = %v, want %v", got, want)
	}

	if got := r.SymbolsFor([]Category{CategorySwingLong}); len(got) != 0 {
		t.Fatalf("SymbolsFor(unconfigured) = %v, want empty", got)
	}
}

func TestCategoriesForReverseIndex(t *testing.T) {
	r := NewCategoryRegistry(testProfiles())

	got := r.CategoriesFor("reliance")
	want := []Category{CategoryDayTrading, CategoryShortSelling}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CategoriesFor = %v, want %v", got, want)
	}
	if got := r.CategoriesFor("UNKNOWN"); len(got) != 0 {
		t.Fatalf("CategoriesFor(unknown) = %v, want empty", got)
	}
}

func TestReloadSwapsWholeTable(t *testing.T) {
	r := NewCategoryRegistry(testProfiles())

	r.Reload([]CategoryProfile{
		{Category: CategorySwingLong, Symbols: []string{"WIPRO"}},
		{Category: "bogus", Symbols: []string{"NOPE"}},
	})

	if got := r.CategoriesFor("RELIANCE"); len(got) != 0 {
		t.Fatalf("old symbols survived reload: %v", got)
	}
	if got := r.SymbolsFor([]Category{CategorySwingLong}); !reflect.DeepEqual(got, []string{"WIPRO"}) {
		t.Fatalf("SymbolsFor after reload = %v", got)
	}
	if got := r.CategoriesFor("NOPE"); len(got) != 0 {
		t.Fatalf("invalid category was loaded: %v", got)
	}
}

func TestProfilesSnapshotOrder(t *testing.T) {
	r := NewCategoryRegistry(testProfiles())

	profiles := r.Profiles()
	if len(profiles) != 3 {
		t.Fatalf("Profiles() returned %d entries, want 3", len(profiles))
	}
	want := []Category{CategoryDayTrading, CategoryShortSelling, CategoryLongTerm}
	for i, p := range profiles {
		if p.Category != want[i] {
			t.Fatalf("profile %d is %s, want %s", i, p.Category, want[i])
		}
	}

	// Mutating the snapshot must not leak into the registry.
	profiles[0].Symbols[0] = "MUTATED"
	if got := r.SymbolsFor([]Category{CategoryDayTrading}); got[0] == "MUTATED" {
		t.Fatal("Profiles() leaked internal state")
	}
}
