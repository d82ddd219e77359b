package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkarlsen/shopchat/pkg/compose"
	"github.com/mkarlsen/shopchat/pkg/connectors"
	"github.com/mkarlsen/shopchat/pkg/logger"
	"github.com/mkarlsen/shopchat/pkg/session"
)

const (
	dataCustomerID     = "customer_id"
	dataOrderItem      = "order_item"
	dataSpecificOrders = "specific_orders"
)

var (
	fiveDigitPattern = regexp.MustCompile(`\b(\d{5})\b`)
	numberPattern    = regexp.MustCompile(`\b(\d+)\b`)
	recencyPattern   = regexp.MustCompile(`\b(more recent|most recent|recent)\b`)
)

// firstCustomerID extracts the first 5-digit token, wherever it appears.
func firstCustomerID(message string) (string, bool) {
	m := fiveDigitPattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (e *Engine) handleSlot(ctx context.Context, sess *session.Session, expected session.ExpectedInput, message string) string {
	switch expected {
	case session.ExpectOrderChoice:
		return e.handleOrderChoice(sess, message)
	case session.ExpectCustomerIDSpecificOrder:
		return e.handleCustomerIDSpecificOrder(ctx, sess, message)
	case session.ExpectCustomerIDLastOrder:
		return e.handleCustomerIDLastOrder(ctx, sess, message)
	}

	// Unknown slot tag, e.g. from an older session record. Reset rather
	// than loop forever.
	logger.WarnCF("dialog", "Unknown expected input, resetting", map[string]interface{}{
		"session_id": sess.ID(),
		"expected":   string(expected),
	})
	sess.SetExpected(session.ExpectNone)
	return cancelReply
}

// handleOrderChoice resolves "2" or "the most recent one" against the
// cached candidate list. Anything unparsable or out of range re-prompts
// without touching the cached list.
func (e *Engine) handleOrderChoice(sess *session.Session, message string) string {
	orders := cachedOrders(sess)
	if len(orders) == 0 {
		sess.SetExpected(session.ExpectNone)
		return "Sorry, I lost track of that order list — could you ask about your order again?"
	}

	lower := strings.ToLower(message)

	idx := -1
	if recencyPattern.MatchString(lower) {
		// The cached list is sorted most-recent first.
		idx = 0
	} else if m := numberPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(orders) {
			idx = n - 1
		}
	}

	if idx < 0 {
		return reAskOrderChoice
	}

	sess.SetExpected(session.ExpectNone)
	return compose.ChosenOrder(orders[idx])
}

func (e *Engine) handleCustomerIDSpecificOrder(ctx context.Context, sess *session.Session, message string) string {
	cid, ok := firstCustomerID(message)
	if !ok {
		return reAskCustomerID
	}

	sess.SetData(dataCustomerID, cid)
	sess.SetExpected(session.ExpectNone)

	orders, err := e.orders.ByCustomer(ctx, cid)
	if err != nil {
		return e.orderFetchFailure(sess, cid, err)
	}

	keyword := sess.DataString(dataOrderItem)
	filtered := filterByKeyword(orders, keyword)

	if len(filtered) == 0 {
		return compose.UnmatchedKeywordList(cid, keyword, orders)
	}
	if len(filtered) == 1 {
		return compose.ChosenOrder(filtered[0])
	}

	sorted := compose.SortByDateDesc(filtered)
	sess.SetData(dataSpecificOrders, sorted)
	sess.SetExpected(session.ExpectOrderChoice)
	return compose.OrderChoiceList(cid, keyword, sorted)
}

func (e *Engine) handleCustomerIDLastOrder(ctx context.Context, sess *session.Session, message string) string {
	cid, ok := firstCustomerID(message)
	if !ok {
		return reAskCustomerID
	}

	sess.SetData(dataCustomerID, cid)
	sess.SetExpected(session.ExpectNone)

	orders, err := e.orders.ByCustomer(ctx, cid)
	if err != nil {
		return e.orderFetchFailure(sess, cid, err)
	}

	return compose.OrderSummary(cid, orders)
}

func (e *Engine) orderFetchFailure(sess *session.Session, cid string, err error) string {
	if errors.Is(err, connectors.ErrNotFound) {
		return fmt.Sprintf("No orders found for Customer ID %s.", cid)
	}
	logger.ErrorCF("dialog", "Order service error", map[string]interface{}{
		"session_id":  sess.ID(),
		"customer_id": cid,
		"error":       err.Error(),
	})
	return apologyOrders
}

// filterByKeyword keeps orders whose product name or category contains
// every keyword token, case-insensitively. An empty keyword keeps all.
func filterByKeyword(orders []connectors.Order, keyword string) []connectors.Order {
	tokens := strings.Fields(strings.ToLower(keyword))
	if len(tokens) == 0 {
		return orders
	}

	var out []connectors.Order
	for _, o := range orders {
		haystack := strings.ToLower(o.Product + " " + o.Category)
		match := true
		for _, tok := range tokens {
			if !strings.Contains(haystack, tok) {
				match = false
				break
			}
		}
		if match {
			out = append(out, o)
		}
	}
	return out
}

// cachedOrders reads the disambiguation candidates back out of session
// data. A session revived from a serializing driver holds generic JSON, so
// fall back to re-decoding.
func cachedOrders(sess *session.Session) []connectors.Order {
	v, ok := sess.Data(dataSpecificOrders)
	if !ok {
		return nil
	}
	if orders, ok := v.([]connectors.Order); ok {
		return orders
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var orders []connectors.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil
	}
	return orders
}
