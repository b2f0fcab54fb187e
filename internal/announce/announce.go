// Package announce composes the WhatsApp menu announcements sent to customers
// in English and Telugu. Everything here is pure string formatting.
package announce

import (
	"fmt"
	"strings"
	"time"

	"github.com/tiffindesk/api/internal/model"
)

const (
	rule        = "━━━━━━━━━━━━━━━"
	dateDisplay = "02/January/2006"
)

// CustomMenu is an extra, one-off menu announced alongside the regular meals.
type CustomMenu struct {
	Title          string              `json:"title"`
	LocalizedTitle string              `json:"teluguTitle,omitempty"`
	Items          []model.CatalogItem `json:"items"`
	// OrderBy, DeliveryFrom and DeliveryTo are 24-hour "15:04" times.
	OrderBy      string `json:"orderBy,omitempty"`
	DeliveryFrom string `json:"deliveryFrom,omitempty"`
	DeliveryTo   string `json:"deliveryTo,omitempty"`
}

// Menus is everything announced for one delivery date.
type Menus struct {
	Date      time.Time
	Breakfast []model.CatalogItem
	Lunch     []model.CatalogItem
	Dinner    []model.CatalogItem
	Bakery    []model.CatalogItem
	Custom    *CustomMenu
}

// Messages holds one ready-to-send text per audience. Empty strings mean
// there was nothing to announce.
type Messages struct {
	Telugu  string `json:"telugu"`
	English string `json:"english"`
	Bakery  string `json:"bakery"`
	Custom  string `json:"custom"`
}

type section struct {
	emoji    string
	english  string
	telugu   string
	deadline string
	items    []model.CatalogItem
}

// Compose renders the announcements for m.
func Compose(m Menus) Messages {
	day := m.Date.Format(dateDisplay)
	meals := []section{
		{"🌞", "Breakfast", "టిఫిన్", "08:30 AM", m.Breakfast},
		{"🍚", "Lunch", "మధ్యాహ్న భోజనం", "09:00 AM", m.Lunch},
		{"🌙", "Dinner", "రాత్రి భోజనం", "05:00 PM", m.Dinner},
	}

	var msgs Messages
	if hasItems(meals) {
		var te, en strings.Builder
		te.WriteString("🍲 మా ఇంటి వంట మీకు!\n\n📅 డెలివరీ తేదీ:\n " + day)
		en.WriteString("🍽️ *Maa Inti Vanta - just for you*\n\n📅 *Delivery Date:*\n " + day)
		for _, s := range meals {
			te.WriteString(teluguSection(s, day))
			en.WriteString(englishSection(s, day))
		}
		te.WriteString("\n\n🚚 డెలివరీ సమయాలు:\n" +
			"🌞 టిఫిన్: 07:30 - 08:30 AM\n" +
			"🍚 మధ్యాహ్న భోజనం: 12:30 - 01:30 PM\n" +
			"🌙 రాత్రి భోజనం: 08:00 - 09:00 PM\n\n" +
			"📦 డెలివరీ ఛార్జీలు:\n3 కి.మీ లోపు – ₹30\n3 కి.మీ - 6 కి.మీ – ₹60\n\nధన్యవాదాలు!")
		en.WriteString("\n\n🚚 *Delivery Timings:*\n" +
			"🌞Breakfast: 07:30 - 08:30 AM\n" +
			"🍚Lunch: 12:30 - 01:30 PM\n" +
			"🌙Dinner: 08:00 - 09:00 PM\n\n" +
			"📦 *Delivery Charges:*\n3 KM – ₹30\n3 KM - 6 KM – ₹60\n\nThank You!")
		msgs.Telugu, msgs.English = te.String(), en.String()
	}

	if len(m.Bakery) > 0 {
		bakery := section{"🍰", "Bakery", "బేకరీ", "04:00 PM", m.Bakery}
		msgs.Bakery = "🍽 Maa Inti Vanta - just for you\n📅 Delivery Date: " + day +
			englishSection(bakery, day) +
			teluguSection(bakery, day) +
			"\n🚚 Delivery Timings/డెలివరీ సమయాలు:\n🍰Bakery: 06:30 PM\n🍰 బేకరీ: 06:30 PM"
	}

	if m.Custom != nil {
		msgs.Custom = customMessage(*m.Custom, day)
	}
	return msgs
}

func hasItems(sections []section) bool {
	for _, s := range sections {
		if len(s.items) > 0 {
			return true
		}
	}
	return false
}

func itemLine(name string, it model.CatalogItem) string {
	if it.Price.IsZero() {
		return "- " + name
	}
	return fmt.Sprintf("- %s - ₹%s", name, it.Price.String())
}

func englishSection(s section, day string) string {
	if len(s.items) == 0 {
		return ""
	}
	lines := make([]string, len(s.items))
	for i, it := range s.items {
		lines[i] = itemLine(it.Name, it)
	}
	return fmt.Sprintf("\n%s *%s*\n%s\n\n🕒 *Order by:*\n %s – %s\n%s",
		s.emoji, s.english, strings.Join(lines, "\n"), s.deadline, day, rule)
}

func teluguSection(s section, day string) string {
	if len(s.items) == 0 {
		return ""
	}
	lines := make([]string, len(s.items))
	for i, it := range s.items {
		lines[i] = itemLine(localized(it), it)
	}
	return fmt.Sprintf("\n%s %s\n%s\n\n🕒 ఆర్డర్ గడువు:\n %s – %s\n%s",
		s.emoji, s.telugu, strings.Join(lines, "\n"), s.deadline, day, rule)
}

func localized(it model.CatalogItem) string {
	if it.LocalizedName != "" {
		return it.LocalizedName
	}
	return it.Name
}

// customMessage announces a custom menu. Items without a name or a price are
// left out; with none left there is no message.
func customMessage(c CustomMenu, day string) string {
	var en, te []string
	for _, it := range c.Items {
		if strings.TrimSpace(it.Name) == "" || it.Price.IsZero() {
			continue
		}
		en = append(en, fmt.Sprintf("- %s - ₹%s", it.Name, it.Price.String()))
		te = append(te, fmt.Sprintf("- %s - ₹%s", localized(it), it.Price.String()))
	}
	if len(en) == 0 {
		return ""
	}

	orderBy := To12Hour(c.OrderBy)
	if orderBy == "" {
		orderBy = "Not specified"
	}
	delivery := "Not specified"
	if from, to := To12Hour(c.DeliveryFrom), To12Hour(c.DeliveryTo); from != "" && to != "" {
		delivery = from + " - " + to
	}
	teTitle := c.LocalizedTitle
	if teTitle == "" {
		teTitle = c.Title
	}

	return "🍽 *Maa Inti Vanta - just for you*\n📅 *Delivery Date: " + day + "*\n" +
		"✨ " + c.Title + "\n" + strings.Join(en, "\n") + "\n\n🕒 *Order By:* " + orderBy +
		"\n" + rule + "\n" +
		"✨ " + teTitle + "\n" + strings.Join(te, "\n") + "\n\n*🕒 ఆర్డర్ గడువు:* " + orderBy +
		"\n\n🚚 Delivery Timings/డెలివరీ సమయాలు:\n" + delivery
}

// To12Hour turns "14:30" into "02:30 PM". Unparseable input yields "".
func To12Hour(hhmm string) string {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return ""
	}
	return t.Format("03:04 PM")
}

// FromStored builds Menus from the meal-keyed map saved for a date. Meals
// other than the four regular ones are ignored; pass custom menus explicitly.
func FromStored(date time.Time, stored map[string][]model.CatalogItem, custom *CustomMenu) Menus {
	return Menus{
		Date:      date,
		Breakfast: stored["breakfast"],
		Lunch:     stored["lunch"],
		Dinner:    stored["dinner"],
		Bakery:    stored["bakery"],
		Custom:    custom,
	}
}
