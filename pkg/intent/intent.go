package intent

// Intent is the classified purpose of a free-text message when no slot is
// pending.
type Intent string

const (
	ProductSearch   Intent = "product_search"
	LastOrder       Intent = "last_order"
	SpecificOrder   Intent = "specific_order"
	HighPriority    Intent = "high_priority"
	SalesByCategory Intent = "sales_by_category"
	ProfitByGender  Intent = "profit_by_gender"
	ShippingSummary Intent = "shipping_summary"
	HighProfit      Intent = "high_profit"

	// Fallback means nothing matched at all; the caller decides how to
	// answer, typically by asking the LLM directly.
	Fallback Intent = "fallback"
)

// Canonical is the declared intent ordering. Ties during scoring break in
// favor of the earlier entry, which keeps classification deterministic.
var Canonical = []Intent{
	ProductSearch,
	LastOrder,
	SpecificOrder,
	HighPriority,
	SalesByCategory,
	ProfitByGender,
	ShippingSummary,
	HighProfit,
}

// examples holds the canonical phrases each intent is scored against.
var examples = map[Intent][]string{
	ProductSearch: {
		"find products",
		"show me",
		"search for",
		"recommend me",
		"what are the top",
	},
	LastOrder: {
		"my last order",
		"most recent order",
		"details of my last purchase",
		"latest purchase",
	},
	SpecificOrder: {
		"status of my order",
		"track my order",
		"order status",
		"where is my",
	},
	HighPriority: {
		"high priority orders",
		"urgent orders",
		"priority orders",
	},
	SalesByCategory: {
		"sales by category",
		"total sales",
		"how much did we sell",
	},
	ProfitByGender: {
		"profit by gender",
		"gender profit",
	},
	ShippingSummary: {
		"shipping summary",
		"shipping cost summary",
	},
	HighProfit: {
		"high profit products",
		"most profitable products",
	},
}
