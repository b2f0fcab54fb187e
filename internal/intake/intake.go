package intake

import "github.com/tiffindesk/api/internal/model"

// Pick is a menu item read from a message with the total quantity asked for.
type Pick struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Unresolved is a line that named several menu items equally well.
type Unresolved struct {
	Line       string   `json:"line"`
	Candidates []string `json:"candidates"`
}

// Result is what could be read from one message.
type Result struct {
	Picks     []Pick       `json:"selections"`
	Ambiguous []Unresolved `json:"ambiguous"`
	Unmatched []string     `json:"unmatched"`
}

// Read parses text and matches every line against menu. Picks keep the order
// items first appear in; repeated items add up.
func Read(menu []model.CatalogItem, text string) Result {
	res := Result{Picks: []Pick{}, Ambiguous: []Unresolved{}, Unmatched: []string{}}
	lines, warnings := ParseMessage(text)
	res.Unmatched = append(res.Unmatched, warnings...)

	m := NewMatcher(menu)
	index := map[string]int{}
	for _, l := range lines {
		mr := m.Match(l.Description)
		switch mr.Status {
		case Matched:
			if i, ok := index[mr.Item.Name]; ok {
				res.Picks[i].Quantity += l.Quantity
				continue
			}
			index[mr.Item.Name] = len(res.Picks)
			res.Picks = append(res.Picks, Pick{Name: mr.Item.Name, Quantity: l.Quantity})
		case Ambiguous:
			u := Unresolved{Line: l.RawText}
			for _, c := range mr.Candidates {
				u.Candidates = append(u.Candidates, c.Name)
			}
			res.Ambiguous = append(res.Ambiguous, u)
		default:
			res.Unmatched = append(res.Unmatched, l.RawText)
		}
	}
	return res
}
