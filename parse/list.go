// Package parse turns free-text grocery lists into cart items. The
// line parser handles well-formed lists ("2 lbs chicken breast", one
// item per line); GeminiParser covers dictated or messy input.
package parse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cartify/cartify/checkout"
)

// ListParser converts free text into cart items.
type ListParser interface {
	Parse(ctx context.Context, text string) ([]checkout.CartItem, error)
}

// LineParser is the deterministic, offline list parser.
type LineParser struct{}

// Parse implements ListParser. It never fails; unparseable lines are
// kept whole as the product name.
func (LineParser) Parse(_ context.Context, text string) ([]checkout.CartItem, error) {
	return ParseList(text), nil
}

// units maps accepted unit spellings to their canonical form.
var units = map[string]string{
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"kg": "kg", "kilo": "kg", "kilos": "kg", "kilogram": "kg", "kilograms": "kg",
	"g": "g", "gram": "g", "grams": "g",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"ml": "ml",
	"gal": "gallon", "gallon": "gallon", "gallons": "gallon",
	"qt": "quart", "quart": "quart", "quarts": "quart",
	"pt": "pint", "pint": "pint", "pints": "pint",
	"cup": "cup", "cups": "cup",
	"dozen": "dozen", "doz": "dozen",
	"bunch": "bunch", "bunches": "bunch",
	"head": "head", "heads": "head",
	"bag": "bag", "bags": "bag",
	"box": "box", "boxes": "box",
	"can": "can", "cans": "can",
	"jar": "jar", "jars": "jar",
	"loaf": "loaf", "loaves": "loaf",
	"pack": "pack", "packs": "pack",
	"bottle": "bottle", "bottles": "bottle",
	"stick": "stick", "sticks": "stick",
	"each": "each", "ea": "each",
}

// categoryKeywords maps product words to a store category, used to
// narrow catalog search. Deliberately coarse; unmatched names simply
// get no category.
var categoryKeywords = map[string]string{
	// Meat & seafood
	"chicken": "meat", "beef": "meat", "pork": "meat", "turkey": "meat",
	"bacon": "meat", "sausage": "meat", "ham": "meat", "steak": "meat",
	"salmon": "seafood", "tuna": "seafood", "shrimp": "seafood", "fish": "seafood",
	// Dairy & eggs
	"milk": "dairy", "cheese": "dairy", "yogurt": "dairy", "butter": "dairy",
	"cream": "dairy", "egg": "dairy", "eggs": "dairy",
	// Produce
	"apple": "produce", "apples": "produce", "banana": "produce", "bananas": "produce",
	"lettuce": "produce", "tomato": "produce", "tomatoes": "produce",
	"potato": "produce", "potatoes": "produce", "onion": "produce", "onions": "produce",
	"carrot": "produce", "carrots": "produce", "broccoli": "produce",
	"spinach": "produce", "avocado": "produce", "garlic": "produce",
	"lemon": "produce", "lime": "produce", "orange": "produce", "oranges": "produce",
	// Bakery & grains
	"bread": "bakery", "bagel": "bakery", "bagels": "bakery", "tortilla": "bakery",
	"rice": "pantry", "pasta": "pantry", "flour": "pantry", "cereal": "pantry",
	"oats": "pantry", "sugar": "pantry", "salt": "pantry", "oil": "pantry",
	// Beverages
	"juice": "beverages", "coffee": "beverages", "tea": "beverages",
	"soda": "beverages", "water": "beverages",
	// Frozen
	"frozen": "frozen",
}

// ParseList splits free text into one cart item per non-empty line.
// Each line may start with a quantity (integer, decimal, or a simple
// fraction like 1/2) and a unit from a known set; the remainder is the
// product name. Bullets and "1." style numbering are stripped. Lines
// without a quantity default to 1 "each".
func ParseList(text string) []checkout.CartItem {
	var items []checkout.CartItem
	for _, line := range strings.Split(text, "\n") {
		line = stripBullet(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		item, ok := parseLine(line, len(items)+1)
		if ok {
			items = append(items, item)
		}
	}
	return items
}

// stripBullet removes list decoration: "-", "*", "•", or "3." prefixes.
func stripBullet(line string) string {
	for _, b := range []string{"- ", "* ", "• "} {
		if rest, ok := strings.CutPrefix(line, b); ok {
			return strings.TrimSpace(rest)
		}
	}
	// Numbered list markers like "3." or "12)". The delimiter must be
	// followed by a space so decimal quantities ("1.5 kg") survive.
	if i := strings.IndexAny(line, ".)"); i > 0 && i+1 < len(line) && line[i+1] == ' ' {
		if _, err := strconv.Atoi(line[:i]); err == nil {
			return strings.TrimSpace(line[i+1:])
		}
	}
	return line
}

func parseLine(line string, n int) (checkout.CartItem, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return checkout.CartItem{}, false
	}

	quantity := 1.0
	unit := "each"
	rest := fields

	if q, ok := parseQuantity(fields[0]); ok && len(fields) > 1 {
		quantity = q
		rest = fields[1:]
		if canonical, ok := units[strings.ToLower(strings.TrimSuffix(rest[0], "."))]; ok && len(rest) > 1 {
			unit = canonical
			rest = rest[1:]
		}
	}

	// "dozen eggs", "bunch of cilantro"
	if canonical, ok := units[strings.ToLower(rest[0])]; ok && len(rest) > 1 && rest[0] == fields[0] {
		unit = canonical
		rest = rest[1:]
	}
	if strings.EqualFold(rest[0], "of") && len(rest) > 1 {
		rest = rest[1:]
	}

	name := strings.Join(rest, " ")
	return checkout.CartItem{
		ID:          fmt.Sprintf("item-%d", n),
		ProductName: name,
		Quantity:    quantity,
		Unit:        unit,
		Category:    categorize(name),
	}, true
}

// parseQuantity accepts integers, decimals, and simple fractions.
func parseQuantity(tok string) (float64, bool) {
	if num, den, ok := strings.Cut(tok, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN == nil && errD == nil && d != 0 {
			return n / d, true
		}
		return 0, false
	}
	q, err := strconv.ParseFloat(tok, 64)
	if err != nil || q <= 0 {
		return 0, false
	}
	return q, true
}

func categorize(name string) string {
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if cat, ok := categoryKeywords[word]; ok {
			return cat
		}
	}
	return ""
}
