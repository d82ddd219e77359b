package dialog

import (
	"context"
	"fmt"

	"github.com/mkarlsen/shopchat/pkg/compose"
	"github.com/mkarlsen/shopchat/pkg/intent"
	"github.com/mkarlsen/shopchat/pkg/logger"
	"github.com/mkarlsen/shopchat/pkg/providers"
	"github.com/mkarlsen/shopchat/pkg/session"
)

const (
	searchTopK      = 5
	searchMinRating = 0
)

// dispatchIntent classifies free text and hands it to the matching handler.
func (e *Engine) dispatchIntent(ctx context.Context, sess *session.Session, message string) (string, []providers.Source) {
	resolved := e.resolver.Classify(ctx, message)

	logger.DebugCF("dialog", "Intent resolved", map[string]interface{}{
		"session_id": sess.ID(),
		"intent":     string(resolved),
	})

	switch resolved {
	case intent.ProductSearch:
		return e.productSearch(ctx, message), nil

	case intent.LastOrder:
		sess.SetExpected(session.ExpectCustomerIDLastOrder)
		return askCustomerIDLastOrder, nil

	case intent.SpecificOrder:
		sess.SetData(dataOrderItem, "")
		sess.SetExpected(session.ExpectCustomerIDSpecificOrder)
		return "Please provide your Customer ID so I can look up that order.", nil

	case intent.HighPriority:
		return e.priorityOrders(ctx, "High"), nil

	case intent.SalesByCategory:
		return e.salesByCategory(ctx), nil

	case intent.ProfitByGender:
		return e.profitByGender(ctx), nil

	case intent.ShippingSummary:
		return e.shippingSummary(ctx), nil

	case intent.HighProfit:
		return e.highProfitProducts(ctx), nil
	}

	return e.askAssistant(ctx, sess, message)
}

// handleEvaluative answers "is X any good for Y": look the product up first,
// then let the assistant judge the fit against what we found.
func (e *Engine) handleEvaluative(ctx context.Context, product, use string) (string, []providers.Source) {
	found, err := e.products.Search(ctx, product, searchTopK, searchMinRating)
	if err != nil {
		logger.ErrorCF("dialog", "Product search failed", map[string]interface{}{
			"query": product,
			"error": err.Error(),
		})
		found = nil
	}

	prompt := fmt.Sprintf("Is %s a good choice for %s? Answer in two or three sentences.", product, use)
	if len(found) > 0 {
		p := found[0]
		detail := p.Title
		if p.Rating > 0 {
			detail = fmt.Sprintf("%s (rated %.1f/5)", detail, p.Rating)
		}
		prompt = fmt.Sprintf("A customer is considering %s for %s. Is it a good fit? Answer in two or three sentences.", detail, use)
	}

	answer, err := e.assistant.Ask(ctx, prompt)
	if err != nil {
		if len(found) > 0 {
			return compose.ProductResults(found, product), nil
		}
		return apologyAssistant, nil
	}
	return answer.Content, answer.Sources
}

func (e *Engine) productSearch(ctx context.Context, query string) string {
	found, err := e.products.Search(ctx, query, searchTopK, searchMinRating)
	if err != nil {
		logger.ErrorCF("dialog", "Product search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return apologyProducts
	}
	return compose.ProductResults(found, query)
}

func (e *Engine) priorityOrders(ctx context.Context, level string) string {
	orders, err := e.orders.ByPriority(ctx, level)
	if err != nil {
		logger.ErrorCF("dialog", "Priority lookup failed", map[string]interface{}{
			"level": level,
			"error": err.Error(),
		})
		return apologyOrders
	}
	recent := compose.SortByDateDesc(orders)
	if len(recent) > searchTopK {
		recent = recent[:searchTopK]
	}
	return compose.PriorityOrders(recent, level)
}

func (e *Engine) salesByCategory(ctx context.Context) string {
	rows, err := e.analytics.SalesByCategory(ctx)
	if err != nil {
		return e.analyticsFailure("sales by category", err)
	}
	return compose.SalesByCategory(rows)
}

func (e *Engine) profitByGender(ctx context.Context) string {
	rows, err := e.analytics.ProfitByGender(ctx)
	if err != nil {
		return e.analyticsFailure("profit by gender", err)
	}
	return compose.ProfitByGender(rows)
}

func (e *Engine) shippingSummary(ctx context.Context) string {
	summary, err := e.analytics.ShippingSummary(ctx)
	if err != nil {
		return e.analyticsFailure("shipping summary", err)
	}
	return compose.ShippingSummary(summary)
}

func (e *Engine) highProfitProducts(ctx context.Context) string {
	orders, err := e.analytics.HighProfitProducts(ctx)
	if err != nil {
		return e.analyticsFailure("high profit products", err)
	}
	return compose.HighProfitProducts(orders)
}

func (e *Engine) analyticsFailure(what string, err error) string {
	logger.ErrorCF("dialog", "Analytics lookup failed", map[string]interface{}{
		"lookup": what,
		"error":  err.Error(),
	})
	return apologyAnalytics
}

func (e *Engine) askAssistant(ctx context.Context, sess *session.Session, message string) (string, []providers.Source) {
	answer, err := e.assistant.Ask(ctx, message)
	if err != nil {
		logger.WarnCF("dialog", "Assistant unavailable", map[string]interface{}{
			"session_id": sess.ID(),
			"error":      err.Error(),
		})
		return apologyAssistant, nil
	}
	return answer.Content, answer.Sources
}
