package connectors

import "errors"

// ErrNotFound reports that the collaborator answered cleanly with "no such
// record". Callers must be able to tell it apart from a transport failure.
var ErrNotFound = errors.New("no matching records")

// Order is one row of the order dataset. JSON keys follow the dataset's
// column names, which is what the order service emits.
type Order struct {
	OrderDate    string  `json:"Order_Date"`
	CustomerID   int     `json:"Customer_Id"`
	Gender       string  `json:"Gender"`
	DeviceType   string  `json:"Device_Type"`
	Category     string  `json:"Product_Category"`
	Product      string  `json:"Product"`
	Sales        float64 `json:"Sales"`
	Profit       float64 `json:"Profit"`
	ShippingCost float64 `json:"Shipping_Cost"`
	Priority     string  `json:"Order_Priority"`
}

// Label returns the product name, falling back to the category.
func (o Order) Label() string {
	if o.Product != "" {
		return o.Product
	}
	if o.Category != "" {
		return o.Category
	}
	return "item"
}

type CategorySales struct {
	Category string  `json:"Product_Category"`
	Sales    float64 `json:"Sales"`
}

type GenderProfit struct {
	Gender string  `json:"Gender"`
	Profit float64 `json:"Profit"`
}

type ShippingSummary struct {
	Average float64 `json:"average_shipping_cost"`
	Min     float64 `json:"min_shipping_cost"`
	Max     float64 `json:"max_shipping_cost"`
}

// Product is a product-search hit. Price is a pointer because the catalog
// has entries without a usable price.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Rating      float64  `json:"rating"`
	Features    []string `json:"features"`
	Description string   `json:"description"`
}
