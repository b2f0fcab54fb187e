package intake

import (
	"strings"
	"unicode"

	"github.com/tiffindesk/api/internal/model"
)

// MatchStatus represents the outcome of matching one line against the menu.
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// MatchResult contains the result of a matching operation.
type MatchResult struct {
	Status     MatchStatus
	Item       *model.CatalogItem  // when Matched
	Candidates []model.CatalogItem // when Ambiguous
}

// Matcher matches free-text descriptions to menu items by the words in their
// English and Telugu names.
type Matcher struct {
	items    []model.CatalogItem
	names    [][]string // normalized full names per item
	keywords [][]string // name tokens per item
}

// NewMatcher pre-tokenizes the names of items.
func NewMatcher(items []model.CatalogItem) *Matcher {
	m := &Matcher{
		items:    items,
		names:    make([][]string, len(items)),
		keywords: make([][]string, len(items)),
	}
	for i, it := range items {
		seen := map[string]bool{}
		for _, name := range []string{it.Name, it.LocalizedName} {
			n := normalize(name)
			if n == "" {
				continue
			}
			m.names[i] = append(m.names[i], n)
			for _, tok := range tokenize(n) {
				if !seen[tok] {
					seen[tok] = true
					m.keywords[i] = append(m.keywords[i], tok)
				}
			}
		}
	}
	return m
}

// Match finds the menu item text refers to. A whole-name match wins outright;
// otherwise the items sharing the most words with text are candidates.
func (m *Matcher) Match(text string) MatchResult {
	normalized := normalize(text)
	if normalized == "" {
		return MatchResult{Status: Unmatched}
	}

	var exact []model.CatalogItem
	for i, names := range m.names {
		for _, n := range names {
			if n == normalized {
				exact = append(exact, m.items[i])
				break
			}
		}
	}
	if res, ok := decide(exact); ok {
		return res
	}

	input := map[string]bool{}
	for _, tok := range tokenize(normalized) {
		input[tok] = true
	}

	maxScore := 0
	var top []model.CatalogItem
	for i, keywords := range m.keywords {
		score := 0
		for _, kw := range keywords {
			if input[kw] || input[kw+"s"] {
				score++
			}
		}
		switch {
		case score == 0 || score < maxScore:
		case score > maxScore:
			maxScore = score
			top = []model.CatalogItem{m.items[i]}
		default:
			top = append(top, m.items[i])
		}
	}
	if res, ok := decide(top); ok {
		return res
	}
	return MatchResult{Status: Unmatched}
}

// decide turns a candidate list into a result. Items repeated under the same
// name count once.
func decide(found []model.CatalogItem) (MatchResult, bool) {
	var distinct []model.CatalogItem
	for _, it := range found {
		dup := false
		for _, d := range distinct {
			if d.Name == it.Name {
				dup = true
				break
			}
		}
		if !dup {
			distinct = append(distinct, it)
		}
	}
	switch len(distinct) {
	case 0:
		return MatchResult{}, false
	case 1:
		return MatchResult{Status: Matched, Item: &distinct[0]}, true
	default:
		return MatchResult{Status: Ambiguous, Candidates: distinct}, true
	}
}

// normalize lower-cases s and turns everything but letters, digits and
// combining marks into single spaces. Marks are kept so Telugu words stay
// whole.
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// tokenize splits a string on whitespace
func tokenize(s string) []string {
	return strings.Fields(s)
}
