// Package compose renders collaborator results into user-facing sentences.
// Every function is total: missing fields degrade to placeholders and a
// panic in formatting degrades to a generic sentence instead of propagating.
package compose

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mkarlsen/shopchat/pkg/connectors"
)

const formatFailure = "I couldn't format that result, sorry about that."

const maxListed = 5

// safe shields a composer from formatting panics.
func safe(fn func() string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = formatFailure
		}
	}()
	return fn()
}

// FormatDate renders a dataset date (2006-01-02) as "January 2, 2006".
// Malformed dates pass through verbatim.
func FormatDate(raw string) string {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return t.Format("January 2, 2006")
}

func priorityOr(p string) string {
	if strings.TrimSpace(p) == "" {
		return "N/A"
	}
	return p
}

// SortByDateDesc returns a copy sorted most-recent first. Unparseable
// dates sort by their raw string so the order stays stable.
func SortByDateDesc(orders []connectors.Order) []connectors.Order {
	sorted := make([]connectors.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, erri := time.Parse("2006-01-02", sorted[i].OrderDate)
		tj, errj := time.Parse("2006-01-02", sorted[j].OrderDate)
		if erri != nil || errj != nil {
			return sorted[i].OrderDate > sorted[j].OrderDate
		}
		return ti.After(tj)
	})
	return sorted
}

// ChosenOrder renders the single order a user picked from a listing.
func ChosenOrder(o connectors.Order) string {
	return safe(func() string {
		return fmt.Sprintf("Your %s order on %s has priority %s, costing $%.2f plus $%.2f shipping.",
			o.Label(), FormatDate(o.OrderDate), priorityOr(o.Priority), o.Sales, o.ShippingCost)
	})
}

// OrderSummary renders the most recent order for a customer, with a count
// when there are more.
func OrderSummary(customerID string, orders []connectors.Order) string {
	return safe(func() string {
		if len(orders) == 0 {
			return fmt.Sprintf("I couldn't find any orders for Customer ID %s.", customerID)
		}

		sorted := SortByDateDesc(orders)
		recent := sorted[0]
		line := fmt.Sprintf("on %s: %s for $%.2f (shipping $%.2f), priority: %s.",
			FormatDate(recent.OrderDate), recent.Label(), recent.Sales, recent.ShippingCost, priorityOr(recent.Priority))

		if len(sorted) == 1 {
			return fmt.Sprintf("Your only order (Customer ID %s) was %s", customerID, line)
		}
		return fmt.Sprintf("You have %d orders. Your most recent was %s Let me know if you'd like details on any other order!",
			len(sorted), line)
	})
}

// OrderChoiceList renders a numbered disambiguation listing and asks which
// entry the user wants.
func OrderChoiceList(customerID, keyword string, orders []connectors.Order) string {
	return safe(func() string {
		label := strings.TrimSpace(keyword)
		if label != "" {
			label += " "
		}
		lines := make([]string, 0, len(orders)+2)
		lines = append(lines, fmt.Sprintf("I found %d %sorders for Customer ID %s:", len(orders), label, customerID))
		lines = append(lines, numberedOrderLines(orders)...)
		lines = append(lines, "Which one would you like details for?")
		return strings.Join(lines, "\n")
	})
}

// UnmatchedKeywordList explains that nothing matched the item keyword and
// shows the customer's most recent orders instead.
func UnmatchedKeywordList(customerID, keyword string, orders []connectors.Order) string {
	return safe(func() string {
		shown := SortByDateDesc(orders)
		if len(shown) > maxListed {
			shown = shown[:maxListed]
		}
		lines := make([]string, 0, len(shown)+1)
		lines = append(lines, fmt.Sprintf("I couldn't find a %s order for Customer ID %s, but here are your most recent orders:",
			keyword, customerID))
		lines = append(lines, numberedOrderLines(shown)...)
		return strings.Join(lines, "\n")
	})
}

// PriorityOrders renders the most recent orders at a priority level.
func PriorityOrders(orders []connectors.Order, level string) string {
	return safe(func() string {
		lower := strings.ToLower(level)
		if len(orders) == 0 {
			return fmt.Sprintf("I couldn't find any %s-priority orders.", lower)
		}

		lines := make([]string, 0, len(orders)+1)
		lines = append(lines, fmt.Sprintf("Here are the %d most recent %s-priority orders:", len(orders), lower))
		for i, o := range orders {
			cid := "N/A"
			if o.CustomerID != 0 {
				cid = fmt.Sprintf("%d", o.CustomerID)
			}
			lines = append(lines, fmt.Sprintf("%d. %s — %s for $%.2f (shipping $%.2f; Customer ID: %s)",
				i+1, FormatDate(o.OrderDate), o.Label(), o.Sales, o.ShippingCost, cid))
		}
		return strings.Join(lines, "\n")
	})
}

func numberedOrderLines(orders []connectors.Order) []string {
	lines := make([]string, 0, len(orders))
	for i, o := range orders {
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, FormatDate(o.OrderDate), o.Label()))
	}
	return lines
}
