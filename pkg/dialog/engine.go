// Package dialog is the orchestration core: it resolves the session,
// satisfies a pending slot if one is waiting, and otherwise routes free
// text through the intent resolver to a handler.
package dialog

import (
	"context"

	"github.com/mkarlsen/shopchat/pkg/connectors"
	"github.com/mkarlsen/shopchat/pkg/intent"
	"github.com/mkarlsen/shopchat/pkg/logger"
	"github.com/mkarlsen/shopchat/pkg/providers"
	"github.com/mkarlsen/shopchat/pkg/session"
)

// OrderService is the order collaborator. ByCustomer reports
// connectors.ErrNotFound for an unknown customer, distinguishable from a
// transport failure.
type OrderService interface {
	ByCustomer(ctx context.Context, customerID string) ([]connectors.Order, error)
	ByPriority(ctx context.Context, level string) ([]connectors.Order, error)
}

type ProductService interface {
	Search(ctx context.Context, query string, topK int, minRating float64) ([]connectors.Product, error)
}

type AnalyticsService interface {
	SalesByCategory(ctx context.Context) ([]connectors.CategorySales, error)
	ProfitByGender(ctx context.Context) ([]connectors.GenderProfit, error)
	ShippingSummary(ctx context.Context) (connectors.ShippingSummary, error)
	HighProfitProducts(ctx context.Context) ([]connectors.Order, error)
}

// Assistant is the LLM fallback. It may be permanently failing when no API
// key is configured; the engine treats every failure the same way.
type Assistant interface {
	Ask(ctx context.Context, prompt string) (providers.Answer, error)
}

// Reply is what the engine hands back for one inbound message.
type Reply struct {
	Text      string
	SessionID string
	Sources   []providers.Source
}

type Engine struct {
	sessions  *session.Manager
	resolver  *intent.Resolver
	orders    OrderService
	products  ProductService
	analytics AnalyticsService
	assistant Assistant
}

func NewEngine(sessions *session.Manager, resolver *intent.Resolver, orders OrderService, products ProductService, analytics AnalyticsService, assistant Assistant) *Engine {
	return &Engine{
		sessions:  sessions,
		resolver:  resolver,
		orders:    orders,
		products:  products,
		analytics: analytics,
		assistant: assistant,
	}
}

// Process handles one inbound message. It never returns an error: every
// failure path terminates in a natural-language sentence and a valid
// session id so the conversation can continue.
func (e *Engine) Process(ctx context.Context, sessionID, message string) Reply {
	sess, endTurn := e.sessions.BeginTurn(ctx, sessionID)
	defer endTurn()

	sess.AddTurn("user", message)

	logger.InfoCF("dialog", "Processing message", map[string]interface{}{
		"session_id": sess.ID(),
		"expected":   string(sess.Expected()),
	})

	text, sources := e.route(ctx, sess, message)

	sess.AddTurn("bot", text)
	e.sessions.Save(ctx, sess)

	return Reply{Text: text, SessionID: sess.ID(), Sources: sources}
}

// route walks the rule chain in priority order. The order is a contract:
// cancel always wins, thanks answers even mid-slot, pending slots consume
// their input before any free-text rule, and intent dispatch comes last.
func (e *Engine) route(ctx context.Context, sess *session.Session, message string) (string, []providers.Source) {
	norm := normalize(message)

	if isCancel(norm) {
		sess.ClearData()
		sess.SetExpected(session.ExpectNone)
		return cancelReply, nil
	}

	if isThanks(norm) {
		return thanksReply(sess.Expected()), nil
	}

	if expected := sess.Expected(); expected != session.ExpectNone {
		return e.handleSlot(ctx, sess, expected, message), nil
	}

	if reply, ok := smallTalk(norm); ok {
		return reply, nil
	}

	if product, use, ok := matchEvaluative(message); ok {
		return e.handleEvaluative(ctx, product, use)
	}

	if item, ok := matchOrderStatus(norm); ok {
		sess.SetData("order_item", item)
		sess.SetExpected(session.ExpectCustomerIDSpecificOrder)
		return "Please provide your Customer ID to retrieve your " + item + " order.", nil
	}

	if matchLastOrder(norm) {
		sess.SetExpected(session.ExpectCustomerIDLastOrder)
		return askCustomerIDLastOrder, nil
	}

	return e.dispatchIntent(ctx, sess, message)
}
