package compose

import (
	"fmt"
	"strings"

	"github.com/mkarlsen/shopchat/pkg/connectors"
)

const maxFeatures = 3

// ProductResults renders product-search hits: an apology for none, a pitch
// for one, and a capped numbered list with an average-price footer for many.
func ProductResults(products []connectors.Product, query string) string {
	return safe(func() string {
		if len(products) == 0 {
			return "I couldn't find any products matching your query. Could you try different keywords?"
		}

		if len(products) == 1 {
			return singleProduct(products[0], query)
		}

		shown := products
		if len(shown) > maxListed {
			shown = shown[:maxListed]
		}

		lines := []string{fmt.Sprintf("Here are the top %d results for '%s':", len(shown), query)}
		var prices []float64
		for i, p := range shown {
			title := p.Title
			if title == "" {
				title = "N/A"
			}
			priceStr := "N/A"
			if p.Price != nil {
				prices = append(prices, *p.Price)
				priceStr = fmt.Sprintf("$%.2f", *p.Price)
			}
			lines = append(lines, fmt.Sprintf("%d. %s — %s (Rating: %.1f/5)", i+1, title, priceStr, p.Rating))
		}

		out := strings.Join(lines, "\n")
		if len(prices) > 0 {
			var sum float64
			for _, p := range prices {
				sum += p
			}
			out += fmt.Sprintf("\nThe average price of these is $%.2f.", sum/float64(len(prices)))
		}
		return out
	})
}

func singleProduct(p connectors.Product, query string) string {
	title := p.Title
	if title == "" {
		title = "N/A"
	}
	priceStr := "an unlisted price"
	if p.Price != nil {
		priceStr = fmt.Sprintf("$%.2f", *p.Price)
	}

	featTxt := ""
	if len(p.Features) > 0 {
		feats := p.Features
		if len(feats) > maxFeatures {
			feats = feats[:maxFeatures]
		}
		featTxt = " Key features: " + strings.Join(feats, "; ") + "."
	}

	return fmt.Sprintf("I found one product for '%s': %s priced at %s with a %.1f/5 star rating.%s",
		query, title, priceStr, p.Rating, featTxt)
}
