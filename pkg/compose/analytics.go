package compose

import (
	"fmt"
	"strings"

	"github.com/mkarlsen/shopchat/pkg/connectors"
)

func SalesByCategory(data []connectors.CategorySales) string {
	return safe(func() string {
		lines := []string{"Here's the total sales by category:"}
		for _, d := range data {
			cat := d.Category
			if cat == "" {
				cat = "Unknown"
			}
			lines = append(lines, fmt.Sprintf("- %s: $%.2f", cat, d.Sales))
		}
		return strings.Join(lines, "\n")
	})
}

func ProfitByGender(data []connectors.GenderProfit) string {
	return safe(func() string {
		lines := []string{"Total profit by customer gender:"}
		for _, d := range data {
			gender := d.Gender
			if gender == "" {
				gender = "Unknown"
			}
			lines = append(lines, fmt.Sprintf("- %s: $%.2f", gender, d.Profit))
		}
		return strings.Join(lines, "\n")
	})
}

func ShippingSummary(summary connectors.ShippingSummary) string {
	return safe(func() string {
		return fmt.Sprintf("Shipping cost summary:\n- Average: $%.2f\n- Minimum: $%.2f\n- Maximum: $%.2f",
			summary.Average, summary.Min, summary.Max)
	})
}

func HighProfitProducts(data []connectors.Order) string {
	return safe(func() string {
		if len(data) == 0 {
			return "I couldn't find any high-profit products right now."
		}
		shown := data
		if len(shown) > maxListed {
			shown = shown[:maxListed]
		}
		lines := []string{"Here are some high-profit products:"}
		for i, d := range shown {
			name := d.Label()
			if name == "item" {
				name = "Unknown"
			}
			lines = append(lines, fmt.Sprintf("%d. %s — Profit: $%.2f", i+1, name, d.Profit))
		}
		return strings.Join(lines, "\n")
	})
}
