// Package intake reads the order messages customers send back after a menu
// announcement ("2 idli", "pappu x3", a pasted "- Pappu - ₹60" line) and
// matches each line against the day's menu.
package intake

import (
	"strconv"
	"strings"
	"unicode"
)

// Line is one parsed message line.
type Line struct {
	RawText     string
	Description string
	Quantity    int
}

// Count words customers put after a number ("2 plates", "3pcs").
var countUnits = map[string]bool{
	"x": true, "nos": true, "no": true, "pcs": true, "pc": true,
	"plate": true, "plates": true, "packet": true, "packets": true,
	"box": true, "boxes": true, "qty": true,
}

// ParseMessage splits text into item lines. Lines left with no description
// once quantities and prices are taken out are reported as warnings.
func ParseMessage(text string) (lines []Line, warnings []string) {
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		line, ok := parseLine(raw)
		if !ok {
			warnings = append(warnings, "skipped: "+raw)
			continue
		}
		lines = append(lines, line)
	}
	return lines, warnings
}

// parseLine parses a single line such as "2 idli", "idli x2", "2x dosa" or
// "- Pappu - ₹60". Quantity defaults to 1; the first count found wins.
func parseLine(raw string) (Line, bool) {
	qty := 0
	var desc []string
	tokens := strings.Fields(strings.ToLower(raw))
	for i := 0; i < len(tokens); i++ {
		tok := strings.Trim(tokens[i], "-*•:,.()")
		if tok == "" || isPrice(tok) {
			continue
		}
		if (tok == "rs" || tok == "₹") && i+1 < len(tokens) && isAmount(tokens[i+1]) {
			i++
			continue
		}
		if n, ok := parseCount(tok); ok {
			if qty == 0 {
				qty = n
			}
			if i+1 < len(tokens) && countUnits[strings.Trim(tokens[i+1], ",.")] {
				i++
			}
			continue
		}
		if countUnits[tok] && i+1 < len(tokens) {
			if n, err := strconv.Atoi(tokens[i+1]); err == nil && n > 0 {
				if qty == 0 {
					qty = n
				}
				i++
				continue
			}
		}
		desc = append(desc, tok)
	}
	if len(desc) == 0 {
		return Line{}, false
	}
	if qty == 0 {
		qty = 1
	}
	return Line{RawText: raw, Description: strings.Join(desc, " "), Quantity: qty}, true
}

// parseCount parses "2", "x2", "2x", "×2" and "2pcs" style tokens.
func parseCount(tok string) (int, bool) {
	tok = strings.TrimPrefix(tok, "×")
	tok = strings.TrimSuffix(tok, "×")
	if strings.HasPrefix(tok, "x") && len(tok) > 1 && unicode.IsDigit(rune(tok[1])) {
		tok = tok[1:]
	}

	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 {
		return 0, false
	}
	if unit := tok[digitEnd:]; unit != "" && !countUnits[unit] {
		return 0, false
	}
	n, err := strconv.Atoi(tok[:digitEnd])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// isPrice reports rupee amounts like "₹60", "rs60" and "rs.60".
func isPrice(tok string) bool {
	for _, prefix := range []string{"₹", "rs.", "rs"} {
		if rest, ok := strings.CutPrefix(tok, prefix); ok && rest != "" {
			return isAmount(rest)
		}
	}
	return false
}

func isAmount(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimRight(s, "/-"), 64)
	return err == nil
}
