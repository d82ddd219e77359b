package dialog

import (
	"regexp"
	"strings"

	"github.com/mkarlsen/shopchat/pkg/session"
)

const (
	cancelReply             = "No problem, let's start fresh. What can I help you with?"
	greetingReply           = "Hello! How can I help you today? You can ask about products, your orders, or sales analytics."
	farewellReply           = "Goodbye! Happy shopping."
	askCustomerIDLastOrder  = "Sure — what's your 5-digit Customer ID for your last order?"
	reAskCustomerID         = "I still need your 5-digit Customer ID to proceed."
	reAskOrderChoice        = "Sorry, I didn't get which one — please say the number or 'the most recent one'."
	apologyOrders           = "Sorry, I couldn't fetch your orders at the moment."
	apologyProducts         = "Sorry, I couldn't reach the product service right now."
	apologyAnalytics        = "Sorry, I'm having trouble reaching that service right now."
	apologyAssistant        = "Sorry, I can't answer that right now. Please try again in a moment."
)

var (
	cancelWords   = []string{"cancel", "nevermind", "never mind", "stop"}
	greetingWords = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}
	farewellWords = []string{"bye", "goodbye", "see you", "good night"}
	thanksWords   = []string{"thanks", "thank you", "thx", "ty"}

	evaluativePattern  = regexp.MustCompile(`(?i)\bis\s+(?:the\s+|a\s+|an\s+)?(.+?)\s+(?:any\s+)?good\s+for\s+(.+?)[?!.\s]*$`)
	orderStatusPattern = regexp.MustCompile(`\bstatus of my (.+?) order\b`)
	lastOrderPattern   = regexp.MustCompile(`\b(last order|details of my last order|recent order|my order)\b`)
)

// normalize lowercases, trims, and strips trailing punctuation so keyword
// matching sees "Thanks!!" as "thanks".
func normalize(message string) string {
	norm := strings.ToLower(strings.TrimSpace(message))
	return strings.TrimRight(norm, " .!?,")
}

func matchKeyword(norm string, words []string) bool {
	for _, w := range words {
		if norm == w {
			return true
		}
	}
	return false
}

func isCancel(norm string) bool { return matchKeyword(norm, cancelWords) }

func isThanks(norm string) bool { return matchKeyword(norm, thanksWords) }

// smallTalk answers greetings and farewells when no slot is pending.
func smallTalk(norm string) (string, bool) {
	if matchKeyword(norm, greetingWords) {
		return greetingReply, true
	}
	if matchKeyword(norm, farewellWords) {
		return farewellReply, true
	}
	return "", false
}

// thanksReply acknowledges, and reminds the user of a still-pending ask so
// a mid-flow "thanks" doesn't strand the conversation.
func thanksReply(expected session.ExpectedInput) string {
	base := "You're welcome!"
	if reminder := pendingAsk(expected); reminder != "" {
		return base + " " + reminder
	}
	return base + " Is there anything else I can help you with?"
}

func pendingAsk(expected session.ExpectedInput) string {
	switch expected {
	case session.ExpectCustomerIDLastOrder, session.ExpectCustomerIDSpecificOrder:
		return "Whenever you're ready, I still need your 5-digit Customer ID."
	case session.ExpectOrderChoice:
		return "Whenever you're ready, just tell me the number of the order you'd like details for."
	}
	return ""
}

func matchEvaluative(message string) (product, use string, ok bool) {
	m := evaluativePattern.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func matchOrderStatus(norm string) (item string, ok bool) {
	m := orderStatusPattern.FindStringSubmatch(norm)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func matchLastOrder(norm string) bool {
	return lastOrderPattern.MatchString(norm)
}
