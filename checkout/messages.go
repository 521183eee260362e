package checkout

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"

	"github.com/cartify/cartify/grocer"
)

// User-facing texts for the confirmation surface. The consuming UI is
// free to render its own copy; these cover the common cases so every
// frontend phrases the flow the same way.
const (
	MsgConfirmPrompt = `
		Couldn't find a sure match for *%s*.
		Pick one of the options below, or skip it.`

	MsgNoMatchFound = `
		No match found for *%s* at %s.
		Skip it, or cancel and try another retailer.`

	MsgCartCreated = `
		Your cart is ready: %d items, %s total.
		Open the checkout link to finish your order.`

	MsgCartFailed = `
		Couldn't create your cart: %s
		Your matched items are saved - you can retry without redoing anything.`

	MsgItemSkipped = `Skipped *%s* - it won't be in your cart.`
)

// FormatText trims and dedents a message template and applies the
// format arguments.
func FormatText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// FormatPrice renders a price for display.
func FormatPrice(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatCandidate renders one candidate as a pick-list row, e.g.
// "Chicken Breast 1lb - $8.00 (16 oz)".
func FormatCandidate(p grocer.Product) string {
	line := fmt.Sprintf("%s - %s", p.Name, FormatPrice(p.Price))
	if p.Size != "" {
		line += fmt.Sprintf(" (%s)", p.Size)
	}
	return line
}
