package printing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/litepos/internal/models"
)

type template func(p models.TicketPayload) string

var templates = map[models.PrintDest]template{
	models.DestReceipt: receipt,
	models.DestKitchen: kitchen,
	models.DestBar:     bar,
}

// Render formats payload as the ticket for dest. Unknown destinations use
// the receipt layout.
func Render(dest models.PrintDest, payload json.RawMessage) (string, error) {
	var p models.TicketPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("decode ticket payload: %w", err)
	}

	tpl, ok := templates[dest]
	if !ok {
		tpl = receipt
	}
	return tpl(p), nil
}

func receipt(p models.TicketPayload) string {
	var b strings.Builder
	b.WriteString("RECEIPT\n")
	fmt.Fprintf(&b, "Order: %s\n", p.OrderID)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "%d x %s%s - ₹%s\n", it.Qty, it.Name, size(it), it.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "TOTAL: ₹%s\n", p.Total.StringFixed(2))
	return b.String()
}

func kitchen(p models.TicketPayload) string {
	var b strings.Builder
	b.WriteString("KITCHEN TICKET\n")
	fmt.Fprintf(&b, "Order: %s\n", p.OrderID)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "%d x %s%s\n", it.Qty, it.Name, size(it))
	}
	notes := p.Notes
	if notes == "" {
		notes = "-"
	}
	fmt.Fprintf(&b, "Notes: %s\n", notes)
	return b.String()
}

func bar(p models.TicketPayload) string {
	var b strings.Builder
	b.WriteString("BAR TICKET\n")
	fmt.Fprintf(&b, "Order: %s\n", p.OrderID)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "%d x %s\n", it.Qty, it.Name)
	}
	return b.String()
}

func size(it models.OrderItem) string {
	if it.Size == "" {
		return ""
	}
	return " (" + it.Size + ")"
}
