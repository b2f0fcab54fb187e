package intake

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/model"
)

func lunchMenu() []model.CatalogItem {
	return []model.CatalogItem{
		{Name: "Pappu", LocalizedName: "పప్పు", Price: decimal.NewFromInt(60)},
		{Name: "Tomato Pappu", LocalizedName: "టమాటా పప్పు", Price: decimal.NewFromInt(70)},
		{Name: "Palakura Pappu", Price: decimal.NewFromInt(70)},
		{Name: "Curd Rice", Price: decimal.NewFromInt(40)},
		{Name: "Idli", Price: decimal.NewFromInt(10)},
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "mixed case", input: "Tomato Pappu", expected: "tomato pappu"},
		{name: "multiple spaces", input: "CURD   rice", expected: "curd rice"},
		{name: "punctuation", input: "curd-rice!", expected: "curd rice"},
		{name: "telugu keeps vowel signs", input: "టమాటా పప్పు", expected: "టమాటా పప్పు"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.input); got != tt.expected {
				t.Errorf("normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMatch_ExactNameWins(t *testing.T) {
	m := NewMatcher(lunchMenu())
	result := m.Match("pappu")

	if result.Status != Matched {
		t.Fatalf("Match status = %v, want Matched", result.Status)
	}
	if result.Item.Name != "Pappu" {
		t.Errorf("Matched item = %q, want Pappu", result.Item.Name)
	}
}

func TestMatch_MostWordsWins(t *testing.T) {
	m := NewMatcher(lunchMenu())
	result := m.Match("tomato pappu please")

	if result.Status != Matched {
		t.Fatalf("Match status = %v, want Matched", result.Status)
	}
	if result.Item.Name != "Tomato Pappu" {
		t.Errorf("Matched item = %q, want Tomato Pappu", result.Item.Name)
	}
}

func TestMatch_TeluguName(t *testing.T) {
	m := NewMatcher(lunchMenu())
	result := m.Match("టమాటా పప్పు")

	if result.Status != Matched {
		t.Fatalf("Match status = %v, want Matched", result.Status)
	}
	if result.Item.Name != "Tomato Pappu" {
		t.Errorf("Matched item = %q, want Tomato Pappu", result.Item.Name)
	}
}

func TestMatch_Plural(t *testing.T) {
	m := NewMatcher(lunchMenu())
	result := m.Match("idlis")

	if result.Status != Matched || result.Item.Name != "Idli" {
		t.Errorf("Match(idlis) = %+v, want Idli", result)
	}
}

func TestMatch_Ambiguous(t *testing.T) {
	m := NewMatcher(lunchMenu())
	result := m.Match("pappu curry")

	if result.Status != Ambiguous {
		t.Fatalf("Match status = %v, want Ambiguous", result.Status)
	}
	if len(result.Candidates) != 3 {
		t.Errorf("Candidates count = %d, want 3", len(result.Candidates))
	}
}

func TestMatch_Unmatched(t *testing.T) {
	m := NewMatcher(lunchMenu())
	for _, text := range []string{"biryani", "", "!!"} {
		if result := m.Match(text); result.Status != Unmatched {
			t.Errorf("Match(%q) status = %v, want Unmatched", text, result.Status)
		}
	}
}

func TestMatch_DuplicateMenuEntriesCountOnce(t *testing.T) {
	menu := append(lunchMenu(), model.CatalogItem{Name: "Idli", Price: decimal.NewFromInt(12)})
	result := NewMatcher(menu).Match("idli")

	if result.Status != Matched {
		t.Fatalf("Match status = %v, want Matched", result.Status)
	}
	if !result.Item.Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Matched price = %s, want first entry's 10", result.Item.Price)
	}
}

func TestMatchStatus_String(t *testing.T) {
	if Matched.String() != "Matched" || Ambiguous.String() != "Ambiguous" || Unmatched.String() != "Unmatched" {
		t.Error("unexpected status names")
	}
	if MatchStatus(9).String() != "Unknown" {
		t.Error("out of range status should be Unknown")
	}
}
